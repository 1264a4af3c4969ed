package service

import (
	"context"
	"github.com/langowen/feelookup/internal/entities"
)

type RatesClient interface {
	GetRates(ctx context.Context, state, procedureCode string) ([]entities.Rate, error)
}

type StatsStorage interface {
	Stats(ctx context.Context) (*entities.Stats, error)
}
