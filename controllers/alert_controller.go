package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/notify"
)

// AlertController handles alert deployment admin endpoints. Alert creation
// and deletion belong to the deployment API; this surface covers what
// operators need around the monitor itself.
type AlertController struct {
	db         *gorm.DB
	dispatcher *notify.Service
}

// NewAlertController creates a new alert controller
func NewAlertController(db *gorm.DB, dispatcher *notify.Service) *AlertController {
	return &AlertController{
		db:         db,
		dispatcher: dispatcher,
	}
}

// GetAlerts lists alert deployments, optionally filtered by tier and status
// GET /api/v1/alerts
func (ctrl *AlertController) GetAlerts(c *gin.Context) {
	query := ctrl.db.Model(&models.AlertDeployment{})

	if tier := c.Query("tier"); tier != "" {
		query = query.Where("subscription_tier = ?", tier)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var deployments []models.AlertDeployment
	if err := query.Order("created_at DESC").Find(&deployments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": deployments,
		"count":  len(deployments),
	})
}

// GetAlertHistory returns the alert's signal history, newest first
// GET /api/v1/alerts/:id/history
func (ctrl *AlertController) GetAlertHistory(c *gin.Context) {
	alertID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var history []models.AlertHistory
	if err := ctrl.db.Where("alert_id = ?", alertID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

// TestNotification pushes a synthetic signal through the alert's channels
// POST /api/v1/alerts/:id/test
func (ctrl *AlertController) TestNotification(c *gin.Context) {
	alertID := c.Param("id")

	var alert models.AlertDeployment
	if err := ctrl.db.First(&alert, "id = ?", alertID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctrl.dispatcher.SendTestNotification(&alert)
	c.JSON(http.StatusOK, gin.H{"message": "Test notification dispatched"})
}

// ResetBreaker clears a tripped alert back to ACTIVE. This is the external
// reset for alerts the circuit breaker moved to ERROR.
// POST /api/v1/alerts/:id/reset
func (ctrl *AlertController) ResetBreaker(c *gin.Context) {
	alertID := c.Param("id")

	result := ctrl.db.Model(&models.AlertDeployment{}).
		Where("id = ? AND status = ?", alertID, models.StatusError).
		Updates(map[string]interface{}{
			"status":             models.StatusActive,
			"consecutive_errors": 0,
			"error_message":      "",
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No alert in ERROR status with that id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert reset to ACTIVE"})
}
