package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strategiz/alert-monitor/models"
)

func TestNextErrorState_IncrementsBelowThreshold(t *testing.T) {
	alert := &models.AlertDeployment{
		Status:               models.StatusActive,
		ConsecutiveErrors:    1,
		MaxConsecutiveErrors: 5,
	}

	next := NextErrorState(alert)
	assert.Equal(t, 2, next.ConsecutiveErrors)
	assert.Equal(t, models.StatusActive, next.Status)
	assert.False(t, next.Tripped)
}

func TestNextErrorState_TripsAtThreshold(t *testing.T) {
	alert := &models.AlertDeployment{
		Status:               models.StatusActive,
		ConsecutiveErrors:    4,
		MaxConsecutiveErrors: 5,
	}

	next := NextErrorState(alert)
	assert.Equal(t, 5, next.ConsecutiveErrors)
	assert.Equal(t, models.StatusError, next.Status)
	assert.True(t, next.Tripped)
}

func TestNextErrorState_DefaultThreshold(t *testing.T) {
	alert := &models.AlertDeployment{Status: models.StatusActive}

	var next ErrorTransition
	for i := 0; i < models.DefaultMaxConsecutiveErrors; i++ {
		next = NextErrorState(alert)
		alert.ConsecutiveErrors = next.ConsecutiveErrors
	}

	assert.Equal(t, models.DefaultMaxConsecutiveErrors, next.ConsecutiveErrors)
	assert.True(t, next.Tripped)
	assert.Equal(t, models.StatusError, next.Status)
}

func TestShouldResetErrors(t *testing.T) {
	assert.False(t, ShouldResetErrors(&models.AlertDeployment{}))
	assert.True(t, ShouldResetErrors(&models.AlertDeployment{ConsecutiveErrors: 3}))
}
