package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/strategiz/alert-monitor/models"
)

const (
	quoteKeyPrefix      = "quote:"
	quoteFetchTimeout   = 10 * time.Second
	DefaultMaxQuoteAge  = 30 * time.Minute
)

// QuoteCache reads the latest quote written for a symbol by the market data
// batch job. A nil quote with a nil error means the symbol is not cached.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (*models.CachedQuote, error)
}

// QuoteProvider fetches a live quote when the cache has no entry
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*models.CachedQuote, error)
}

// PriceSource resolves the latest known price for a symbol: local cache
// first, then exactly one fallback to the live provider on a cache miss.
// A missing price is an absent result, not an error; only infrastructure
// faults (cache store unreachable, corrupt entry) surface as errors.
type PriceSource struct {
	cache    QuoteCache
	fallback QuoteProvider // optional
	maxAge   time.Duration
}

// NewPriceSource creates a price source. fallback may be nil when no live
// provider is configured.
func NewPriceSource(cache QuoteCache, fallback QuoteProvider, maxAge time.Duration) *PriceSource {
	if maxAge <= 0 {
		maxAge = DefaultMaxQuoteAge
	}
	return &PriceSource{
		cache:    cache,
		fallback: fallback,
		maxAge:   maxAge,
	}
}

// Latest returns the latest quote for the symbol, or nil when no price is
// available from either the cache or the fallback provider.
func (s *PriceSource) Latest(ctx context.Context, symbol string) (*models.CachedQuote, error) {
	quote, err := s.cache.Get(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote cache lookup for %s: %w", symbol, err)
	}

	if quote != nil {
		if age := quote.Age(time.Now()); age > s.maxAge {
			log.Printf("Cached quote for %s is %s old (batch job may be delayed)", symbol, age.Round(time.Minute))
		}
		return quote, nil
	}

	if s.fallback == nil {
		log.Printf("No cached quote for %s and no fallback provider configured", symbol)
		return nil, nil
	}

	log.Printf("Cache miss for %s, falling back to live quote provider", symbol)
	live, err := s.fallback.FetchQuote(ctx, symbol)
	if err != nil {
		// Fallback failures degrade to an absent price rather than an error
		log.Printf("Live quote fetch for %s failed: %v", symbol, err)
		return nil, nil
	}
	return live, nil
}

// RedisQuoteCache reads quotes stored as JSON by the batch collector
type RedisQuoteCache struct {
	client *redis.Client
}

// NewRedisQuoteCache creates a redis-backed quote cache
func NewRedisQuoteCache(client *redis.Client) *RedisQuoteCache {
	return &RedisQuoteCache{client: client}
}

// Get fetches quote:{symbol}. redis.Nil is a plain cache miss.
func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (*models.CachedQuote, error) {
	data, err := c.client.Get(ctx, quoteKeyPrefix+symbol).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var quote models.CachedQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, fmt.Errorf("corrupt cached quote for %s: %w", symbol, err)
	}
	return &quote, nil
}

// quoteResponse is the live quote provider payload
type quoteResponse struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// HTTPQuoteProvider fetches live quotes from the configured provider
type HTTPQuoteProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPQuoteProvider creates a live quote provider client
func NewHTTPQuoteProvider(baseURL string) *HTTPQuoteProvider {
	return &HTTPQuoteProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: quoteFetchTimeout,
		},
	}
}

// FetchQuote retrieves a single live quote
func (p *HTTPQuoteProvider) FetchQuote(ctx context.Context, symbol string) (*models.CachedQuote, error) {
	url := fmt.Sprintf("%s/v1/quotes/%s", p.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote provider returned status %d for %s", resp.StatusCode, symbol)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	return &models.CachedQuote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(parsed.Price),
		Timestamp: time.UnixMilli(parsed.Timestamp),
		Source:    "live",
	}, nil
}
