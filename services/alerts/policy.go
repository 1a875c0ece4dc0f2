package alerts

import (
	"time"

	"github.com/strategiz/alert-monitor/models"
)

// Decision is the outcome of the cooldown/dedup policy for a proposed signal
type Decision int

const (
	Allow Decision = iota
	SuppressCooldown
	SuppressDuplicate
)

func (d Decision) String() string {
	switch d {
	case SuppressCooldown:
		return "SUPPRESS_COOLDOWN"
	case SuppressDuplicate:
		return "SUPPRESS_DUPLICATE"
	default:
		return "ALLOW"
	}
}

// InCooldown reports whether the symbol is still inside the alert's
// tier-based cooldown window. Cooldown is per-symbol: a trigger on a
// different symbol never suppresses this one.
func InCooldown(alert *models.AlertDeployment, symbol string, now time.Time) bool {
	if alert.LastTriggeredAt == nil {
		return false
	}
	if alert.LastSignalSymbol != "" && alert.LastSignalSymbol != symbol {
		return false
	}

	cooldown := time.Duration(alert.EffectiveCooldownMinutes()) * time.Minute
	return now.Before(alert.LastTriggeredAt.Add(cooldown))
}

// IsDuplicate reports whether the proposed signal repeats the alert's last
// recorded signal. Users are notified only on a signal change (BUY -> SELL),
// never on a repeat of the current state.
func IsDuplicate(alert *models.AlertDeployment, signalType, symbol string) bool {
	return alert.LastSignalType == signalType && alert.LastSignalSymbol == symbol
}

// Decide applies the suppression policy to a proposed signal. Cooldown is
// evaluated before dedup: a still-cooling-down symbol is suppressed for
// cooldown even when the signal type changed.
func Decide(alert *models.AlertDeployment, symbol, signalType string, now time.Time) Decision {
	if InCooldown(alert, symbol, now) {
		return SuppressCooldown
	}
	if IsDuplicate(alert, signalType, symbol) {
		return SuppressDuplicate
	}
	return Allow
}
