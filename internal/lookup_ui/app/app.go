package lookupApp

import (
	"context"
	"github.com/langowen/feelookup/deploy/config"
	"github.com/langowen/feelookup/internal/lookup_ui/adapter/api_client/rates"
	"github.com/langowen/feelookup/internal/lookup_ui/adapter/cache"
	"github.com/langowen/feelookup/internal/lookup_ui/ports/http/public"
	"github.com/langowen/feelookup/internal/lookup_ui/service"
	redisPack "github.com/redis/go-redis/v9"
	"log"
	"log/slog"
	"os"
)

type LookupApp struct {
	cfg   *config.Config
	redis *redisPack.Client
}

func NewLookupApp(cfg *config.Config) *LookupApp {
	return &LookupApp{cfg: cfg}
}

func (a *LookupApp) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	slog.Info("starting lookup ui",
		"port", a.cfg.HTTPServer.Port,
		"rates_api", a.cfg.RatesAPI.URL,
		"cache_enabled", a.cfg.Redis.Enabled(),
	)

	client, stats := a.initRatesClient(ctx)
	slog.Info("Rates client initialized")

	lookupService := service.NewService(client, stats)
	slog.Info("Service initialized")

	serverDone := public.StartServer(ctx, lookupService, a.cfg)
	slog.Info("server started")

	done := make(chan struct{})
	go func() {
		<-serverDone
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				slog.Error("Failed to close redis client", "error", err)
			}
		}
		close(done)
	}()

	return done
}

func (a *LookupApp) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     a.cfg.Log.SlogLevel(),
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

// initRatesClient returns the rates client and, when Redis is configured,
// the cache that also records lookup statistics.
func (a *LookupApp) initRatesClient(ctx context.Context) (service.RatesClient, service.StatsStorage) {
	httpClient := rates.NewHTTPClient(a.cfg.RatesAPI.URL, a.cfg.RatesAPI.Timeout, a.cfg.RatesAPI.RPS)

	if !a.cfg.Redis.Enabled() {
		slog.Info("Redis not configured, rates cache and stats disabled")
		return httpClient, nil
	}

	a.redis = a.initRedis(ctx)
	slog.Info("Redis client initialized")

	cached := cache.NewRatesClient(a.redis, a.cfg.Redis.TTL, httpClient, "")
	return cached, cached
}

func (a *LookupApp) initRedis(ctx context.Context) *redisPack.Client {
	options := &redisPack.Options{
		Addr:     a.cfg.Redis.Host,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}

	rdb, err := cache.InitClient(ctx, options)
	if err != nil {
		log.Fatalln("Failed to initialize Redis client", "error", err)
	}

	return rdb
}
