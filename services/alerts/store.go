package alerts

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/strategiz/alert-monitor/models"
)

// Store persists alert tracking state and the append-only signal history.
// The monitor is the only writer of the mutable tracking fields; each
// logical update is applied as one patch to avoid partial-update races.
type Store interface {
	FindActiveByTier(ctx context.Context, tier string) ([]models.AlertDeployment, error)
	ResetDailyCount(ctx context.Context, alertID, userID string, now time.Time) error
	UpdateLastChecked(ctx context.Context, alertID, userID string, now time.Time) error
	RecordSignal(ctx context.Context, alertID, userID string, patch models.AlertStatePatch) error
	ResetErrors(ctx context.Context, alertID, userID string) error
	RecordFailure(ctx context.Context, alertID, userID string, consecutiveErrors int, message, status string) error
	AppendHistory(ctx context.Context, record *models.AlertHistory) error
}

// GormStore is the postgres-backed alert state store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store on an initialized gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindActiveByTier returns the tier's ACTIVE alert deployments. ERROR and
// PAUSED alerts are excluded here, so a tripped alert never reaches a pass.
func (s *GormStore) FindActiveByTier(ctx context.Context, tier string) ([]models.AlertDeployment, error) {
	var alerts []models.AlertDeployment
	err := s.db.WithContext(ctx).
		Where("subscription_tier = ? AND status = ? AND deployment_kind = ?",
			tier, models.StatusActive, models.KindAlert).
		Order("id").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// ResetDailyCount zeroes the daily trigger counter and advances the reset marker
func (s *GormStore) ResetDailyCount(ctx context.Context, alertID, userID string, now time.Time) error {
	return s.patch(ctx, alertID, userID, map[string]interface{}{
		"daily_trigger_count": 0,
		"last_daily_reset":    now,
	})
}

// UpdateLastChecked stamps the alert with the evaluation time
func (s *GormStore) UpdateLastChecked(ctx context.Context, alertID, userID string, now time.Time) error {
	return s.patch(ctx, alertID, userID, map[string]interface{}{
		"last_checked_at": now,
	})
}

// RecordSignal applies the cooldown, dedup and rate-limit tracking fields
// for one delivered signal in a single update
func (s *GormStore) RecordSignal(ctx context.Context, alertID, userID string, patch models.AlertStatePatch) error {
	return s.patch(ctx, alertID, userID, map[string]interface{}{
		"last_triggered_at":   patch.TriggeredAt,
		"last_signal_type":    patch.SignalType,
		"last_signal_symbol":  patch.SignalSymbol,
		"trigger_count":       gorm.Expr("trigger_count + 1"),
		"daily_trigger_count": gorm.Expr("daily_trigger_count + 1"),
	})
}

// ResetErrors clears the consecutive error counter after a clean evaluation
func (s *GormStore) ResetErrors(ctx context.Context, alertID, userID string) error {
	return s.patch(ctx, alertID, userID, map[string]interface{}{
		"consecutive_errors": 0,
		"error_message":      "",
	})
}

// RecordFailure persists the breaker transition after an infrastructure
// error, including the ERROR status once the trip threshold is reached
func (s *GormStore) RecordFailure(ctx context.Context, alertID, userID string, consecutiveErrors int, message, status string) error {
	return s.patch(ctx, alertID, userID, map[string]interface{}{
		"consecutive_errors": consecutiveErrors,
		"error_message":      message,
		"status":             status,
	})
}

// AppendHistory writes one immutable history record
func (s *GormStore) AppendHistory(ctx context.Context, record *models.AlertHistory) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *GormStore) patch(ctx context.Context, alertID, userID string, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.AlertDeployment{}).
		Where("id = ? AND user_id = ?", alertID, userID).
		Updates(fields).Error
}
