package service

import (
	"context"
	"github.com/langowen/feelookup/internal/entities"
	"github.com/langowen/feelookup/internal/lookup_ui/metrics"
	"github.com/pkg/errors"
	"log/slog"
)

type Service struct {
	client RatesClient
	stats  StatsStorage
}

// NewService builds the lookup service. stats may be nil when nothing
// records lookup statistics.
func NewService(client RatesClient, stats StatsStorage) *Service {
	return &Service{
		client: client,
		stats:  stats,
	}
}

func (s *Service) States() []string {
	return entities.States()
}

// Lookup validates the query and asks the rates API exactly once.
// An incomplete query never reaches the client.
func (s *Service) Lookup(ctx context.Context, query entities.LookupQuery) ([]entities.Rate, error) {
	const op = "service.Lookup"

	if err := query.Validate(); err != nil {
		metrics.Lookups.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	rates, err := s.client.GetRates(ctx, query.State, query.ProcedureCode)
	if err != nil {
		metrics.Lookups.WithLabelValues(metrics.OutcomeError).Inc()
		slog.Error("rate lookup failed",
			"op", op,
			"state", query.State,
			"procedure_code", query.ProcedureCode,
			"error", err.Error(),
		)
		return nil, errors.Wrap(err, op)
	}

	if len(rates) == 0 {
		metrics.Lookups.WithLabelValues(metrics.OutcomeEmpty).Inc()
	} else {
		metrics.Lookups.WithLabelValues(metrics.OutcomeOK).Inc()
	}

	slog.Debug("rate lookup done",
		"state", query.State,
		"procedure_code", query.ProcedureCode,
		"rows", len(rates),
	)

	return rates, nil
}

func (s *Service) Stats(ctx context.Context) (*entities.Stats, error) {
	const op = "service.Stats"

	if s.stats == nil {
		return entities.EmptyStats(), nil
	}

	stats, err := s.stats.Stats(ctx)
	if err != nil {
		slog.Error("stats lookup failed", "op", op, "error", err.Error())
		return nil, errors.Wrap(err, op)
	}

	return stats, nil
}
