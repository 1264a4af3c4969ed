package entities

import "github.com/shopspring/decimal"

// PopularRatesLimit is how many state/procedure pairs the stats report lists.
const PopularRatesLimit = 10

type PopularRate struct {
	State         string `json:"state"`
	ProcedureCode string `json:"procedure_code"`
	Accesses      int64  `json:"accesses"`
}

type CacheStats struct {
	TotalQueries int64   `json:"total_queries"`
	CacheHits    int64   `json:"cache_hits"`
	HitRate      float64 `json:"hit_rate"`
}

type Stats struct {
	PopularRates []PopularRate `json:"popular_rates"`
	CacheStats   CacheStats    `json:"cache_stats"`
}

// NewCacheStats derives the hit rate as a percentage rounded to two places.
func NewCacheStats(hits, misses int64) CacheStats {
	total := hits + misses
	stats := CacheStats{
		TotalQueries: total,
		CacheHits:    hits,
	}
	if total > 0 {
		stats.HitRate = decimal.NewFromInt(hits).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(total)).
			Round(2).
			InexactFloat64()
	}
	return stats
}

func EmptyStats() *Stats {
	return &Stats{PopularRates: []PopularRate{}}
}
