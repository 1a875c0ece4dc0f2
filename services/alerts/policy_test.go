package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/strategiz/alert-monitor/models"
)

func alertWithLastSignal(tier, signalType, symbol string, triggeredAt time.Time) *models.AlertDeployment {
	return &models.AlertDeployment{
		ID:               "alert-1",
		SubscriptionTier: tier,
		LastTriggeredAt:  &triggeredAt,
		LastSignalType:   signalType,
		LastSignalSymbol: symbol,
	}
}

func TestDecide_CooldownWindow(t *testing.T) {
	now := time.Now()
	cooldown := 30
	alert := alertWithLastSignal(models.TierFree, "BUY", "AAPL", now)
	alert.CooldownMinutes = &cooldown

	// 10 minutes in: still cooling down
	decision := Decide(alert, "AAPL", "SELL", now.Add(10*time.Minute))
	assert.Equal(t, SuppressCooldown, decision)

	// 31 minutes in: window has passed, SELL is a signal change
	decision = Decide(alert, "AAPL", "SELL", now.Add(31*time.Minute))
	assert.Equal(t, Allow, decision)
}

func TestDecide_CooldownIsPerSymbol(t *testing.T) {
	now := time.Now()
	alert := alertWithLastSignal(models.TierFree, "BUY", "AAPL", now)

	// A trigger on AAPL never cools down MSFT
	decision := Decide(alert, "MSFT", "BUY", now.Add(1*time.Minute))
	assert.Equal(t, Allow, decision)
}

func TestDecide_DuplicateSignal(t *testing.T) {
	now := time.Now()
	alert := alertWithLastSignal(models.TierFree, "BUY", "BTC-USD", now.Add(-2*time.Hour))

	// Same type and symbol: only signal changes are delivered
	assert.Equal(t, SuppressDuplicate, Decide(alert, "BTC-USD", "BUY", now))

	// Signal change is allowed
	assert.Equal(t, Allow, Decide(alert, "BTC-USD", "SELL", now))
}

func TestDecide_CooldownTakesPrecedenceOverDedup(t *testing.T) {
	now := time.Now()
	alert := alertWithLastSignal(models.TierFree, "BUY", "AAPL", now)

	// Still cooling down and the type changed: cooldown wins
	decision := Decide(alert, "AAPL", "SELL", now.Add(1*time.Minute))
	assert.Equal(t, SuppressCooldown, decision)
}

func TestDecide_NeverTriggered(t *testing.T) {
	alert := &models.AlertDeployment{ID: "alert-1", SubscriptionTier: models.TierPro}
	assert.Equal(t, Allow, Decide(alert, "AAPL", "BUY", time.Now()))
}

func TestInCooldown_TierDefaults(t *testing.T) {
	now := time.Now()

	cases := []struct {
		tier    string
		minutes int
	}{
		{models.TierPro, 1},
		{models.TierStarter, 5},
		{models.TierFree, 15},
	}

	for _, tc := range cases {
		alert := alertWithLastSignal(tc.tier, "BUY", "AAPL", now)

		assert.True(t, InCooldown(alert, "AAPL", now.Add(time.Duration(tc.minutes)*time.Minute-time.Second)),
			"tier %s should still be cooling down", tc.tier)
		assert.False(t, InCooldown(alert, "AAPL", now.Add(time.Duration(tc.minutes)*time.Minute+time.Second)),
			"tier %s cooldown should have expired", tc.tier)
	}
}
