package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"log"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	HTTPServer HTTPServer
	RatesAPI   RatesAPI
	Redis      Redis
	Log        Log
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8082"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type RatesAPI struct {
	URL     string        `env:"RATES_API_URL" env-required:"true"`
	Timeout time.Duration `env:"RATES_API_TIMEOUT" env-default:"10s"`
	RPS     int           `env:"RATES_API_RPS" env-default:"0"`
}

// Redis is optional: an empty Host disables the response cache.
type Redis struct {
	Host     string        `env:"REDIS_HOST"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"REDIS_TTL" env-default:"24h"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

func NewConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Error reading env: %v", err)
	}

	return cfg
}

func Load() (*Config, error) {
	const op = "config.Load"

	cfg := &Config{}

	_ = godotenv.Load(".env")

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return cfg, nil
}

func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (r Redis) Enabled() bool {
	return r.Host != ""
}
