package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/strategiz/alert-monitor/services/alerts"
	"github.com/strategiz/alert-monitor/services/notify"
)

// MonitorController exposes the monitor's health check surface
type MonitorController struct {
	monitor *alerts.Monitor
	stream  *notify.StreamHub
}

// NewMonitorController creates a new monitor controller
func NewMonitorController(monitor *alerts.Monitor, stream *notify.StreamHub) *MonitorController {
	return &MonitorController{
		monitor: monitor,
		stream:  stream,
	}
}

// GetStatus returns the monitoring status snapshot
// GET /api/v1/monitor/status
func (ctrl *MonitorController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, ctrl.monitor.Status())
}

// StreamSignals upgrades the request to a websocket subscription on the
// live signal stream
// GET /api/v1/monitor/stream
func (ctrl *MonitorController) StreamSignals(c *gin.Context) {
	if ctrl.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Signal stream not enabled"})
		return
	}
	ctrl.stream.HandleWS(c.Writer, c.Request)
}
