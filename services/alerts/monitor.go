package alerts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/execution"
)

// PriceSource resolves the latest known price for a symbol. A nil quote
// with a nil error means no price is available; only infrastructure faults
// return an error.
type PriceSource interface {
	Latest(ctx context.Context, symbol string) (*models.CachedQuote, error)
}

// Dispatcher fans a detected signal out to the user's configured channels.
// Implementations must not block the evaluation loop waiting for delivery;
// their failures are their own and never roll back monitor state.
type Dispatcher interface {
	SendSignalNotification(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal)
}

// Status is the monitor's health check snapshot
type Status struct {
	Running         bool       `json:"running"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastAlertCount  int        `json:"last_alert_count"`
	LastSignalCount int        `json:"last_signal_count"`
}

// evaluation outcome per alert within a pass
type outcome int

const (
	outcomeNoSignal outcome = iota
	outcomeSignal
	outcomeCooldown
	outcomeDedup
	outcomeRateLimited
	outcomeError
)

// Monitor drives tier evaluation passes over active alert deployments.
// A process-wide guard ensures at most one pass (of any tier) runs at a
// time; a tier whose timer fires while another pass is active skips that
// invocation entirely.
type Monitor struct {
	store      Store
	prices     PriceSource
	executor   execution.Executor
	dispatcher Dispatcher
	ids        *snowflake.Node

	running atomic.Bool
	now     func() time.Time

	mu              sync.RWMutex
	lastRunAt       *time.Time
	lastAlertCount  int
	lastSignalCount int
}

// NewMonitor wires the evaluation engine against its collaborators
func NewMonitor(store Store, prices PriceSource, executor execution.Executor, dispatcher Dispatcher) (*Monitor, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create id node: %w", err)
	}
	return &Monitor{
		store:      store,
		prices:     prices,
		executor:   executor,
		dispatcher: dispatcher,
		ids:        node,
		now:        time.Now,
	}, nil
}

// RunTierPass evaluates every active alert of the tier once. If another
// pass is already in progress the invocation is skipped, not queued:
// cadence is best-effort in exchange for never running two passes against
// shared alert state.
func (m *Monitor) RunTierPass(tier string) {
	if !m.running.CompareAndSwap(false, true) {
		log.Printf("Alert monitoring already running, skipping %s tier pass", tier)
		return
	}
	defer m.running.Store(false)

	ctx := context.Background()
	start := m.now()

	log.Printf("======== %s Tier Alert Monitoring ========", tier)

	alerts, err := m.store.FindActiveByTier(ctx, tier)
	if err != nil {
		// Pass-fatal: cannot even list alerts. Abort, leave all alerts untouched.
		log.Printf("Fatal error in %s tier pass: failed to list active alerts: %v", tier, err)
		return
	}
	log.Printf("Found %d active %s alerts to monitor", len(alerts), tier)

	var processed, signals, skippedCooldown, skippedRateLimit, skippedDedup, errors int

	for i := range alerts {
		alert := &alerts[i]

		result, signalCount := m.evaluateAlert(ctx, alert)
		processed++

		switch result {
		case outcomeSignal:
			signals += signalCount
			log.Printf("Alert %s triggered %d signal(s)", alert.ID, signalCount)
		case outcomeCooldown:
			skippedCooldown++
		case outcomeDedup:
			skippedDedup++
		case outcomeRateLimited:
			skippedRateLimit++
		case outcomeError:
			errors++
		}
	}

	m.mu.Lock()
	m.lastRunAt = &start
	m.lastAlertCount = processed
	m.lastSignalCount = signals
	m.mu.Unlock()

	log.Printf("======== %s Tier COMPLETED ========", tier)
	log.Printf("Processed: %d | Signals: %d | Errors: %d", processed, signals, errors)
	log.Printf("Skipped - Cooldown: %d | RateLimit: %d | Dedup: %d",
		skippedCooldown, skippedRateLimit, skippedDedup)
}

// Status returns the health check snapshot
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Running:         m.running.Load(),
		LastRunAt:       m.lastRunAt,
		LastAlertCount:  m.lastAlertCount,
		LastSignalCount: m.lastSignalCount,
	}
}

// evaluateAlert runs one alert through the full check chain inside its own
// error boundary, so a failure here never aborts the pass for sibling alerts.
func (m *Monitor) evaluateAlert(ctx context.Context, alert *models.AlertDeployment) (result outcome, signalCount int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic evaluating alert %s: %v", alert.ID, r)
			m.handleAlertError(ctx, alert, fmt.Errorf("panic: %v", r))
			result = outcomeError
			signalCount = 0
			return
		}
		// An evaluation that completed without an infrastructure error
		// clears the consecutive error counter, however it ended. The
		// counter is never touched mid-evaluation: a failure in a later
		// step must build on the previous count, not on a fresh zero.
		if result != outcomeError && ShouldResetErrors(alert) {
			if err := m.store.ResetErrors(ctx, alert.ID, alert.UserID); err != nil {
				log.Printf("Failed to reset error counter for alert %s: %v", alert.ID, err)
			} else {
				alert.ConsecutiveErrors = 0
			}
		}
	}()

	now := m.now()

	// Daily reset before any rate-limit decision
	if alert.NeedsDailyReset(now) {
		if err := m.store.ResetDailyCount(ctx, alert.ID, alert.UserID, now); err != nil {
			m.handleAlertError(ctx, alert, fmt.Errorf("daily reset: %w", err))
			return outcomeError, 0
		}
		alert.DailyTriggerCount = 0
		alert.LastDailyReset = &now
	}

	// Cost-saving short-circuit: no price fetch, no execution
	if alert.DailyLimitReached() {
		log.Printf("Alert %s has reached daily limit (%d)", alert.ID, alert.DailyTriggerLimit)
		return outcomeRateLimited, 0
	}

	for _, symbol := range alert.SymbolList() {
		// A symbol in cooldown abandons the alert's remaining symbols for
		// this pass: one signal per alert per pass.
		if InCooldown(alert, symbol, now) {
			log.Printf("Alert %s symbol %s in cooldown, skipping", alert.ID, symbol)
			return outcomeCooldown, 0
		}

		quote, err := m.prices.Latest(ctx, symbol)
		if err != nil {
			m.handleAlertError(ctx, alert, fmt.Errorf("price lookup for %s: %w", symbol, err))
			return outcomeError, 0
		}
		if quote == nil {
			// Missing price skips only this symbol
			log.Printf("No price available for symbol %s (alert %s)", symbol, alert.ID)
			continue
		}

		if err := m.store.UpdateLastChecked(ctx, alert.ID, alert.UserID, now); err != nil {
			m.handleAlertError(ctx, alert, fmt.Errorf("update last checked: %w", err))
			return outcomeError, 0
		}

		execResult, err := m.executor.Execute(ctx, alert.StrategyID, alert.ProviderID, alert.UserID)
		if err != nil {
			m.handleAlertError(ctx, alert, fmt.Errorf("strategy execution: %w", err))
			return outcomeError, 0
		}
		if !execResult.Succeeded() {
			// Transient: not a signal, not a breaker error
			log.Printf("Strategy execution failed for alert %s: %s", alert.ID, execResult.Message)
			continue
		}

		for _, signal := range execResult.Signals {
			if !signal.IsActionable() {
				continue
			}

			decision := Decide(alert, symbol, signal.Type, now)
			if decision != Allow {
				// Any suppression abandons the alert's remaining signals
				// and symbols for this pass
				log.Printf("Signal %s for %s on alert %s suppressed (%s)",
					signal.Type, symbol, alert.ID, decision)
				if signalCount > 0 {
					return outcomeSignal, signalCount
				}
				if decision == SuppressCooldown {
					return outcomeCooldown, 0
				}
				return outcomeDedup, 0
			}

			if err := m.deliverSignal(ctx, alert, signal, symbol, quote, execResult.Metrics, now); err != nil {
				m.handleAlertError(ctx, alert, err)
				return outcomeError, signalCount
			}
			signalCount++

			log.Printf("Alert %s triggered %s signal for %s at $%s",
				alert.ID, signal.Type, symbol, quote.Price.StringFixed(2))
		}

		if signalCount > 0 {
			// First triggering symbol ends the loop for this alert this pass
			break
		}
	}

	if signalCount > 0 {
		return outcomeSignal, signalCount
	}
	return outcomeNoSignal, 0
}

// deliverSignal records history, dispatches notifications and applies the
// alert's tracking patch as one logical update
func (m *Monitor) deliverSignal(ctx context.Context, alert *models.AlertDeployment, signal execution.Signal, symbol string, quote *models.CachedQuote, metrics map[string]interface{}, now time.Time) error {
	history := &models.AlertHistory{
		ID:        m.ids.Generate().Int64(),
		AlertID:   alert.ID,
		UserID:    alert.UserID,
		Signal:    signal.Type,
		Symbol:    symbol,
		Price:     quote.Price,
		Timestamp: now,
	}

	meta := models.Metadata{}
	for key, value := range metrics {
		meta = meta.Set(key, value)
	}
	meta = meta.Set("reason", signal.Reason)
	if signal.Quantity != 0 {
		meta = meta.Set("quantity", signal.Quantity)
	}
	if err := history.SetMetadata(meta); err != nil {
		return fmt.Errorf("encode history metadata: %w", err)
	}

	if err := m.store.AppendHistory(ctx, history); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	// Best-effort fan-out; the dispatcher owns its own failures
	m.dispatcher.SendSignalNotification(alert, signal, symbol, quote.Price)

	patch := models.AlertStatePatch{
		TriggeredAt:  now,
		SignalType:   signal.Type,
		SignalSymbol: symbol,
	}
	if err := m.store.RecordSignal(ctx, alert.ID, alert.UserID, patch); err != nil {
		return fmt.Errorf("record signal state: %w", err)
	}

	alert.LastTriggeredAt = &patch.TriggeredAt
	alert.LastSignalType = signal.Type
	alert.LastSignalSymbol = symbol
	alert.DailyTriggerCount++
	alert.TriggerCount++
	return nil
}

// handleAlertError applies the circuit breaker transition for an
// infrastructure failure
func (m *Monitor) handleAlertError(ctx context.Context, alert *models.AlertDeployment, cause error) {
	log.Printf("Error processing alert %s: %v", alert.ID, cause)

	next := NextErrorState(alert)
	if err := m.store.RecordFailure(ctx, alert.ID, alert.UserID, next.ConsecutiveErrors, cause.Error(), next.Status); err != nil {
		log.Printf("Failed to update alert error state for %s: %v", alert.ID, err)
		return
	}

	alert.ConsecutiveErrors = next.ConsecutiveErrors
	alert.ErrorMessage = cause.Error()
	alert.Status = next.Status

	if next.Tripped {
		log.Printf("Circuit breaker tripped for alert %s after %d consecutive errors",
			alert.ID, next.ConsecutiveErrors)
	}
}
