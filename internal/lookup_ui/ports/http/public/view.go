package public

import (
	"bytes"
	"github.com/langowen/feelookup/internal/entities"
	"github.com/pkg/errors"
	"log/slog"
	"net"
	"net/http"
)

const noResultsMessage = "No results found"

type pageData struct {
	States        []string
	State         string
	ProcedureCode string
	Alert         string
	Results       *resultsView
}

// resultsView holds exactly one of Error, Message or Rows.
type resultsView struct {
	Rows    []rowView
	Message string
	Error   string
}

type rowView struct {
	Provider string
	Rate     string
	Date     string
}

func newResultsView(rates []entities.Rate, err error) *resultsView {
	if err != nil {
		return &resultsView{Error: errorMessage(err)}
	}

	if len(rates) == 0 {
		return &resultsView{Message: noResultsMessage}
	}

	rows := make([]rowView, len(rates))
	for i, rate := range rates {
		rows[i] = rowView{
			Provider: rate.DisplayProvider(),
			Rate:     rate.DisplayRate(),
			Date:     rate.DisplayDate(),
		}
	}

	return &resultsView{Rows: rows}
}

// errorMessage turns a lookup failure into text that is safe to show.
// Transport details stay in the logs.
func errorMessage(err error) string {
	var upstreamErr *entities.UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Message
	}

	if errors.Is(err, entities.ErrUnexpectedPayload) {
		return entities.ErrUnexpectedPayload.Error()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "rates service timed out"
	}

	return "rates service unavailable"
}

func (s *Server) render(w http.ResponseWriter, code int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response", "template", name, "error", err)
	}
}
