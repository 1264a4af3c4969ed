package public

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/feelookup/deploy/config"
	"github.com/langowen/feelookup/internal/entities"
	mwLogger "github.com/langowen/feelookup/internal/lookup_ui/ports/http/public/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type Server struct {
	Server    *http.Server
	service   Service
	templates *template.Template
}

func NewServer(service Service) *Server {
	return &Server{
		service:   service,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Router wires the page, fragment and operational routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.Health)

	r.Get("/", s.Index)
	r.Get("/lookup", s.Lookup)
	r.Post("/lookup", s.Lookup)
	r.Get("/lookup/results", s.LookupResults)
	r.Get("/api/states", s.GetStates)
	r.Get("/api/stats", s.GetStats)

	return r
}

func StartServer(ctx context.Context, service Service, cfg *config.Config) <-chan struct{} {
	server := NewServer(service)

	server.Server = &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	doneChan := make(chan struct{})

	go func() {
		slog.Info("http server listening", "addr", server.Server.Addr)
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", pageData{
		States: s.service.States(),
	})
}

// Lookup handles the form submission and renders the whole page.
func (s *Server) Lookup(w http.ResponseWriter, r *http.Request) {
	query := entities.NewLookupQuery(r.FormValue("state"), r.FormValue("procedureCode"))

	data := pageData{
		States:        s.service.States(),
		State:         query.State,
		ProcedureCode: query.ProcedureCode,
	}

	rates, err := s.service.Lookup(r.Context(), query)
	if errors.Is(err, entities.ErrMissingInput) {
		data.Alert = entities.MissingInputAlert
		s.render(w, http.StatusBadRequest, "index", data)
		return
	}

	data.Results = newResultsView(rates, err)
	s.render(w, http.StatusOK, "index", data)
}

// LookupResults renders only the result rows, for callers that swap the
// table body themselves.
func (s *Server) LookupResults(w http.ResponseWriter, r *http.Request) {
	query := entities.NewLookupQuery(r.URL.Query().Get("state"), r.URL.Query().Get("procedureCode"))

	rates, err := s.service.Lookup(r.Context(), query)
	if errors.Is(err, entities.ErrMissingInput) {
		RespondWithError(w, http.StatusBadRequest, entities.MissingInputAlert)
		return
	}

	s.render(w, http.StatusOK, "results", newResultsView(rates, err))
}

func (s *Server) GetStates(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.States())
}

// GetStats reports the most requested state/procedure pairs and the cache
// hit rate.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		RespondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}

	RespondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	errorText := message
	if len(details) > 0 {
		errorText += "\nDetails: " + details[0]
	}

	if _, err := w.Write([]byte(errorText)); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
