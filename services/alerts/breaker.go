package alerts

import (
	"github.com/strategiz/alert-monitor/models"
)

// ErrorTransition is the alert's breaker state after one more consecutive
// infrastructure failure
type ErrorTransition struct {
	ConsecutiveErrors int
	Status            string
	Tripped           bool
}

// NextErrorState computes the breaker transition for a failed evaluation.
// At the trip threshold the alert flips to ERROR, which is terminal for the
// monitor: ERROR alerts are excluded from every future pass until an
// external reset.
func NextErrorState(alert *models.AlertDeployment) ErrorTransition {
	errors := alert.ConsecutiveErrors + 1
	if errors >= alert.ErrorThreshold() {
		return ErrorTransition{
			ConsecutiveErrors: errors,
			Status:            models.StatusError,
			Tripped:           true,
		}
	}
	return ErrorTransition{
		ConsecutiveErrors: errors,
		Status:            alert.Status,
	}
}

// ShouldResetErrors reports whether a clean evaluation needs to clear a
// nonzero error counter
func ShouldResetErrors(alert *models.AlertDeployment) bool {
	return alert.ConsecutiveErrors > 0
}
