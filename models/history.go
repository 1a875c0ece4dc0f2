package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// MetadataEntry is one key/value pair of signal metadata. Values are
// primitives only (string, bool, or number); order is preserved so history
// entries render indicators in the order the executor produced them.
type MetadataEntry struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Metadata is an ordered key/value bag attached to a history record
type Metadata []MetadataEntry

// Set appends or replaces an entry, keeping insertion order
func (m Metadata) Set(key string, value interface{}) Metadata {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, MetadataEntry{Key: key, Value: value})
}

// Get returns the value for a key, or nil if absent
func (m Metadata) Get(key string) interface{} {
	for i := range m {
		if m[i].Key == key {
			return m[i].Value
		}
	}
	return nil
}

// AlertHistory is an append-only audit record written once a signal passes
// all suppression checks. Never updated or deleted by the monitor.
type AlertHistory struct {
	ID        int64           `gorm:"primaryKey;autoIncrement:false" json:"id"` // snowflake
	AlertID   string          `gorm:"index" json:"alert_id"`
	UserID    string          `gorm:"index" json:"user_id"`
	Signal    string          `json:"signal"` // BUY, SELL
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `gorm:"type:decimal(20,8)" json:"price"`
	Metadata  string          `gorm:"type:jsonb" json:"metadata"` // indicator values + reason
	Timestamp time.Time       `gorm:"index" json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
}

// SetMetadata encodes the ordered metadata bag into the JSON column
func (h *AlertHistory) SetMetadata(meta Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	h.Metadata = string(data)
	return nil
}

// MetadataBag decodes the JSON metadata column
func (h *AlertHistory) MetadataBag() Metadata {
	var meta Metadata
	if h.Metadata == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(h.Metadata), &meta); err != nil {
		return nil
	}
	return meta
}
