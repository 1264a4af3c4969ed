package public

import (
	"context"
	"github.com/langowen/feelookup/internal/entities"
)

type Service interface {
	States() []string
	Lookup(ctx context.Context, query entities.LookupQuery) ([]entities.Rate, error)
	Stats(ctx context.Context) (*entities.Stats, error)
}
