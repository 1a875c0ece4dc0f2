package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Subscription tiers determining evaluation cadence and cooldown duration
const (
	TierPro     = "PRO"
	TierStarter = "STARTER"
	TierFree    = "FREE"
)

// Alert deployment statuses
const (
	StatusActive = "ACTIVE"
	StatusPaused = "PAUSED"
	StatusError  = "ERROR"
)

// Deployment kinds
const (
	KindAlert = "ALERT"
	KindBot   = "BOT"
)

// Default circuit breaker threshold: consecutive errors before an alert
// is flipped to ERROR status
const DefaultMaxConsecutiveErrors = 5

// AlertDeployment represents a user's deployed strategy alert.
// Mutable tracking fields (cooldown, daily counters, error counters) are
// updated exclusively by the monitor's state-update step after each pass.
type AlertDeployment struct {
	ID         string `gorm:"primaryKey" json:"id"`
	UserID     string `gorm:"index" json:"user_id"`
	StrategyID string `gorm:"index" json:"strategy_id"`
	ProviderID string `json:"provider_id"` // coinbase, schwab, etc.

	AlertName string `json:"alert_name"`
	Symbols   string `gorm:"type:jsonb" json:"symbols"` // JSON array of ticker strings
	Exchange  string `json:"exchange"`                  // NYSE, NASDAQ, CRYPTO, etc.

	DeploymentKind   string `gorm:"default:'ALERT'" json:"deployment_kind"` // ALERT, BOT
	SubscriptionTier string `gorm:"default:'FREE'" json:"subscription_tier"`
	Status           string `gorm:"default:'ACTIVE';index" json:"status"`

	// Delivery
	NotificationChannels string `gorm:"type:jsonb" json:"notification_channels"` // email, sms, push, in-app
	NotificationEmail    string `json:"notification_email,omitempty"`

	// Cooldown and deduplication tracking
	CooldownMinutes  *int       `json:"cooldown_minutes,omitempty"` // nil = tier default
	LastCheckedAt    *time.Time `json:"last_checked_at,omitempty"`
	LastTriggeredAt  *time.Time `json:"last_triggered_at,omitempty"`
	LastSignalType   string     `json:"last_signal_type,omitempty"` // BUY or SELL
	LastSignalSymbol string     `json:"last_signal_symbol,omitempty"`

	// Daily rate limiting
	TriggerCount      int        `gorm:"default:0" json:"trigger_count"`
	DailyTriggerCount int        `gorm:"default:0" json:"daily_trigger_count"`
	DailyTriggerLimit int        `gorm:"default:0" json:"daily_trigger_limit"` // 0 = no limit
	LastDailyReset    *time.Time `json:"last_daily_reset,omitempty"`

	// Circuit breaker
	ConsecutiveErrors    int    `gorm:"default:0" json:"consecutive_errors"`
	MaxConsecutiveErrors int    `gorm:"default:5" json:"max_consecutive_errors"`
	ErrorMessage         string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SymbolList decodes the JSON symbols column into an ordered slice
func (a *AlertDeployment) SymbolList() []string {
	var symbols []string
	if a.Symbols == "" {
		return symbols
	}
	if err := json.Unmarshal([]byte(a.Symbols), &symbols); err != nil {
		return nil
	}
	return symbols
}

// SetSymbols encodes an ordered symbol slice into the JSON column
func (a *AlertDeployment) SetSymbols(symbols []string) error {
	data, err := json.Marshal(symbols)
	if err != nil {
		return err
	}
	a.Symbols = string(data)
	return nil
}

// ChannelList decodes the JSON notification channels column
func (a *AlertDeployment) ChannelList() []string {
	var channels []string
	if a.NotificationChannels == "" {
		return channels
	}
	if err := json.Unmarshal([]byte(a.NotificationChannels), &channels); err != nil {
		return nil
	}
	return channels
}

// SetChannels encodes notification channels into the JSON column
func (a *AlertDeployment) SetChannels(channels []string) error {
	data, err := json.Marshal(channels)
	if err != nil {
		return err
	}
	a.NotificationChannels = string(data)
	return nil
}

// IsAlertDeployment reports whether this deployment is evaluated by the
// alert monitor (BOT deployments are a future feature)
func (a *AlertDeployment) IsAlertDeployment() bool {
	return a.DeploymentKind == "" || a.DeploymentKind == KindAlert
}

// EffectiveCooldownMinutes returns the per-alert cooldown override when set,
// otherwise the tier default
func (a *AlertDeployment) EffectiveCooldownMinutes() int {
	if a.CooldownMinutes != nil {
		return *a.CooldownMinutes
	}
	switch a.SubscriptionTier {
	case TierPro:
		return 1
	case TierStarter:
		return 5
	default:
		return 15
	}
}

// DailyLimitReached reports whether the alert has used up today's triggers.
// A zero limit means unlimited.
func (a *AlertDeployment) DailyLimitReached() bool {
	if a.DailyTriggerLimit <= 0 {
		return false
	}
	return a.DailyTriggerCount >= a.DailyTriggerLimit
}

// ErrorThreshold returns the configured circuit breaker threshold
func (a *AlertDeployment) ErrorThreshold() int {
	if a.MaxConsecutiveErrors > 0 {
		return a.MaxConsecutiveErrors
	}
	return DefaultMaxConsecutiveErrors
}

// NeedsDailyReset reports whether LastDailyReset is before today's UTC date
func (a *AlertDeployment) NeedsDailyReset(now time.Time) bool {
	if a.LastDailyReset == nil {
		return true
	}
	ry, rm, rd := a.LastDailyReset.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return ry != ny || rm != nm || rd != nd
}

// AlertStatePatch is the single atomic state update applied after a signal
// passes all suppression checks. All fields are written together to avoid
// partial-update races between cooldown, dedup and rate-limit tracking.
type AlertStatePatch struct {
	TriggeredAt  time.Time
	SignalType   string
	SignalSymbol string
}

// MigrateAlertModels runs database migrations for alert-related models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&AlertDeployment{},
		&AlertHistory{},
	)
}
