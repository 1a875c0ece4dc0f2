package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedQuote is the latest known price for a symbol as written by the
// out-of-band market data batch job. Read-only to the alert monitor.
type CachedQuote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"` // batch, live
}

// Age returns how stale the quote is relative to now
func (q *CachedQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}
