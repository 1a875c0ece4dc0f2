package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Signal types produced by strategy execution
const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
	SignalHold = "HOLD"
)

// Execution result statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

const executeTimeout = 30 * time.Second

// Signal is one typed trading signal from a strategy run
type Signal struct {
	Type     string  `json:"type"` // BUY, SELL, HOLD
	Reason   string  `json:"reason,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
}

// IsActionable reports whether the signal should reach the policy layer
// (HOLD signals are discarded before suppression checks)
func (s Signal) IsActionable() bool {
	return s.Type == SignalBuy || s.Type == SignalSell
}

// ExecutionResult is the outcome of running a strategy against a provider
// context: zero or more signals plus diagnostic indicator metrics
type ExecutionResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Signals []Signal               `json:"signals"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// Succeeded reports whether the run completed normally. A failed run is a
// transient skip, not an error; only transport faults feed the breaker.
func (r *ExecutionResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Executor runs strategy logic for an alert's strategy and provider context
type Executor interface {
	Execute(ctx context.Context, strategyID, providerID, userID string) (*ExecutionResult, error)
}

// executeRequest is the strategy execution service payload
type executeRequest struct {
	StrategyID string `json:"strategyId"`
	ProviderID string `json:"providerId"`
	UserID     string `json:"userId"`
}

// HTTPExecutor calls the strategy execution service
type HTTPExecutor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPExecutor creates an executor client against the execution service
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: executeTimeout,
		},
	}
}

// Execute runs the strategy remotely and returns its signals and metrics
func (e *HTTPExecutor) Execute(ctx context.Context, strategyID, providerID, userID string) (*ExecutionResult, error) {
	payload, err := json.Marshal(executeRequest{
		StrategyID: strategyID,
		ProviderID: providerID,
		UserID:     userID,
	})
	if err != nil {
		return nil, err
	}

	url := e.baseURL + "/v1/strategies/execute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result ExecutionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse execution result: %w", err)
	}
	return &result, nil
}
