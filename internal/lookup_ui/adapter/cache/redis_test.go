package cache

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/go-redis/redismock/v9"
	"github.com/langowen/feelookup/internal/entities"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type mockRatesClient struct {
	calls      int
	getRatesFn func(ctx context.Context, state, procedureCode string) ([]entities.Rate, error)
}

func (m *mockRatesClient) GetRates(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
	m.calls++
	if m.getRatesFn != nil {
		return m.getRatesFn(ctx, state, procedureCode)
	}
	return nil, nil
}

func acmeRates() []entities.Rate {
	provider := "Acme"
	date := "2024-01-01"
	return []entities.Rate{{Provider: &provider, Date: &date}}
}

func TestNewRatesClient_Defaults(t *testing.T) {
	c := NewRatesClient(nil, 0, &mockRatesClient{}, "")
	assert.Equal(t, 24*time.Hour, c.ttl)
	assert.Equal(t, "rates", c.namespace)

	c = NewRatesClient(nil, time.Minute, &mockRatesClient{}, "custom")
	assert.Equal(t, time.Minute, c.ttl)
	assert.Equal(t, "custom", c.namespace)
}

func TestRatesClient_NilRedis(t *testing.T) {
	inner := &mockRatesClient{
		getRatesFn: func(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
			return acmeRates(), nil
		},
	}

	rates, err := NewRatesClient(nil, time.Hour, inner, "").GetRates(context.Background(), "GA", "99213")
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestRatesClient_CacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, err := json.Marshal(acmeRates())
	require.NoError(t, err)
	mock.ExpectGet("rates:GA:99213").SetVal(string(cached))
	mock.ExpectHIncrBy("rates:stats", "hits", 1).SetVal(1)
	mock.ExpectZIncrBy("rates:popular", 1, "GA:99213").SetVal(1)

	inner := &mockRatesClient{}
	rates, err := NewRatesClient(rdb, time.Hour, inner, "").GetRates(context.Background(), "GA", "99213")
	require.NoError(t, err)

	require.Len(t, rates, 1)
	assert.Equal(t, "Acme", rates[0].DisplayProvider())
	assert.Equal(t, 0, inner.calls, "inner client must not be called on cache hit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesClient_CacheMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected, err := json.Marshal(acmeRates())
	require.NoError(t, err)
	mock.ExpectGet("rates:GA:99213").RedisNil()
	mock.ExpectHIncrBy("rates:stats", "misses", 1).SetVal(1)
	mock.ExpectSet("rates:GA:99213", expected, time.Hour).SetVal("OK")
	mock.ExpectZIncrBy("rates:popular", 1, "GA:99213").SetVal(1)

	inner := &mockRatesClient{
		getRatesFn: func(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
			return acmeRates(), nil
		},
	}

	rates, err := NewRatesClient(rdb, time.Hour, inner, "").GetRates(context.Background(), "GA", "99213")
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesClient_CachesEmptyResult(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("rates:GA:00000").RedisNil()
	mock.ExpectHIncrBy("rates:stats", "misses", 1).SetVal(1)
	mock.ExpectSet("rates:GA:00000", []byte("[]"), time.Hour).SetVal("OK")
	mock.ExpectZIncrBy("rates:popular", 1, "GA:00000").SetVal(1)

	inner := &mockRatesClient{}
	rates, err := NewRatesClient(rdb, time.Hour, inner, "").GetRates(context.Background(), "GA", "00000")
	require.NoError(t, err)
	assert.NotNil(t, rates)
	assert.Empty(t, rates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesClient_InnerErrorNotCached(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expectedErr := &entities.UpstreamError{Message: "bad state"}
	mock.ExpectGet("rates:ZZ:99213").RedisNil()
	mock.ExpectHIncrBy("rates:stats", "misses", 1).SetVal(1)

	inner := &mockRatesClient{
		getRatesFn: func(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
			return nil, expectedErr
		},
	}

	_, err := NewRatesClient(rdb, time.Hour, inner, "").GetRates(context.Background(), "ZZ", "99213")
	assert.True(t, errors.Is(err, expectedErr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesClient_CorruptedCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	expected, err := json.Marshal(acmeRates())
	require.NoError(t, err)
	mock.ExpectGet("rates:GA:99213").SetVal("not json")
	mock.ExpectDel("rates:GA:99213").SetVal(1)
	mock.ExpectHIncrBy("rates:stats", "misses", 1).SetVal(1)
	mock.ExpectSet("rates:GA:99213", expected, time.Hour).SetVal("OK")
	mock.ExpectZIncrBy("rates:popular", 1, "GA:99213").SetVal(1)

	inner := &mockRatesClient{
		getRatesFn: func(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
			return acmeRates(), nil
		},
	}

	rates, err := NewRatesClient(rdb, time.Hour, inner, "").GetRates(context.Background(), "GA", "99213")
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesClient_RedisDownFallsBack(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("rates:GA:99213").SetErr(errors.New("connection refused"))
	mock.ExpectHIncrBy("rates:stats", "misses", 1).SetErr(errors.New("connection refused"))
	mock.ExpectSet("rates:GA:99213", []byte("[]"), time.Hour).SetErr(errors.New("connection refused"))
	mock.ExpectZIncrBy("rates:popular", 1, "GA:99213").SetErr(errors.New("connection refused"))

	inner := &mockRatesClient{
		getRatesFn: func(ctx context.Context, state, procedureCode string) ([]entities.Rate, error) {
			return []entities.Rate{}, nil
		},
	}

	rates, err := NewRatesClient(rdb, time.Hour, inner, "").GetRates(context.Background(), "GA", "99213")
	require.NoError(t, err)
	assert.Empty(t, rates)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKey(t *testing.T) {
	c := NewRatesClient(nil, 0, &mockRatesClient{}, "")

	assert.Equal(t, "rates:GA:99213", c.cacheKey("GA", "99213"))
	assert.Equal(t, "rates:GA:a%3Ab", c.cacheKey("GA", "a:b"))
	assert.NotEqual(t, c.cacheKey("GA", "a b"), c.cacheKey("GA", "a_b"))
}

func TestRatesClient_Stats_NilRedis(t *testing.T) {
	stats, err := NewRatesClient(nil, time.Hour, &mockRatesClient{}, "").Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entities.EmptyStats(), stats)
}

func TestRatesClient_Stats(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectZRevRangeWithScores("rates:popular", 0, 9).SetVal([]redis.Z{
		{Score: 5, Member: "GA:99213"},
		{Score: 2, Member: "NY:a%3Ab+c"},
		{Score: 1, Member: "broken"},
	})
	mock.ExpectHGetAll("rates:stats").SetVal(map[string]string{"hits": "1", "misses": "2"})

	stats, err := NewRatesClient(rdb, time.Hour, &mockRatesClient{}, "").Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []entities.PopularRate{
		{State: "GA", ProcedureCode: "99213", Accesses: 5},
		{State: "NY", ProcedureCode: "a:b c", Accesses: 2},
	}, stats.PopularRates)
	assert.Equal(t, entities.CacheStats{TotalQueries: 3, CacheHits: 1, HitRate: 33.33}, stats.CacheStats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesClient_Stats_NothingRecorded(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectZRevRangeWithScores("rates:popular", 0, 9).SetVal([]redis.Z{})
	mock.ExpectHGetAll("rates:stats").SetVal(map[string]string{})

	stats, err := NewRatesClient(rdb, time.Hour, &mockRatesClient{}, "").Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entities.EmptyStats(), stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesClient_Stats_RedisError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectZRevRangeWithScores("rates:popular", 0, 9).SetErr(errors.New("connection refused"))

	_, err := NewRatesClient(rdb, time.Hour, &mockRatesClient{}, "").Stats(context.Background())
	assert.Error(t, err)
}

func TestSplitMember(t *testing.T) {
	state, code, ok := splitMember(member("GA", "a:b c"))
	require.True(t, ok)
	assert.Equal(t, "GA", state)
	assert.Equal(t, "a:b c", code)

	_, _, ok = splitMember("nocolon")
	assert.False(t, ok)

	_, _, ok = splitMember("GA:%zz")
	assert.False(t, ok)
}
