package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategiz/alert-monitor/models"
)

type stubCache struct {
	quote *models.CachedQuote
	err   error
	calls int
}

func (c *stubCache) Get(ctx context.Context, symbol string) (*models.CachedQuote, error) {
	c.calls++
	return c.quote, c.err
}

type stubProvider struct {
	quote *models.CachedQuote
	err   error
	calls int
}

func (p *stubProvider) FetchQuote(ctx context.Context, symbol string) (*models.CachedQuote, error) {
	p.calls++
	return p.quote, p.err
}

func TestLatest_CacheHit(t *testing.T) {
	cached := &models.CachedQuote{
		Symbol:    "BTC-USD",
		Price:     decimal.NewFromInt(50000),
		Timestamp: time.Now(),
	}
	cache := &stubCache{quote: cached}
	provider := &stubProvider{}

	source := NewPriceSource(cache, provider, 0)
	quote, err := source.Latest(context.Background(), "BTC-USD")

	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, 0, provider.calls, "cache hit should never reach the fallback")
}

func TestLatest_StaleCacheEntryStillReturned(t *testing.T) {
	cached := &models.CachedQuote{
		Symbol:    "AAPL",
		Price:     decimal.NewFromFloat(182.50),
		Timestamp: time.Now().Add(-2 * time.Hour),
	}
	cache := &stubCache{quote: cached}

	source := NewPriceSource(cache, nil, 30*time.Minute)
	quote, err := source.Latest(context.Background(), "AAPL")

	// Staleness is logged, not rejected; the batch job may just be delayed
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.True(t, quote.Price.Equal(decimal.NewFromFloat(182.50)))
}

func TestLatest_CacheMissFallsBackOnce(t *testing.T) {
	live := &models.CachedQuote{
		Symbol:    "ETH-USD",
		Price:     decimal.NewFromInt(3000),
		Timestamp: time.Now(),
		Source:    "live",
	}
	cache := &stubCache{}
	provider := &stubProvider{quote: live}

	source := NewPriceSource(cache, provider, 0)
	quote, err := source.Latest(context.Background(), "ETH-USD")

	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, "live", quote.Source)
	assert.Equal(t, 1, provider.calls)
}

func TestLatest_FallbackFailureMeansAbsent(t *testing.T) {
	cache := &stubCache{}
	provider := &stubProvider{err: errors.New("provider timeout")}

	source := NewPriceSource(cache, provider, 0)
	quote, err := source.Latest(context.Background(), "ETH-USD")

	// A failed live fetch degrades to no price, never an alert error
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestLatest_NoFallbackConfigured(t *testing.T) {
	cache := &stubCache{}

	source := NewPriceSource(cache, nil, 0)
	quote, err := source.Latest(context.Background(), "ETH-USD")

	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestLatest_CacheErrorIsInfrastructureFault(t *testing.T) {
	cache := &stubCache{err: errors.New("redis: connection refused")}
	provider := &stubProvider{quote: &models.CachedQuote{Symbol: "BTC-USD"}}

	source := NewPriceSource(cache, provider, 0)
	quote, err := source.Latest(context.Background(), "BTC-USD")

	// Store failures surface as errors and never silently fall back
	require.Error(t, err)
	assert.Nil(t, quote)
	assert.Equal(t, 0, provider.calls)
}
