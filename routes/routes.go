package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/strategiz/alert-monitor/controllers"
	"github.com/strategiz/alert-monitor/services/alerts"
	"github.com/strategiz/alert-monitor/services/notify"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, monitor *alerts.Monitor, dispatcher *notify.Service, stream *notify.StreamHub) {
	monitorController := controllers.NewMonitorController(monitor, stream)
	alertController := controllers.NewAlertController(db, dispatcher)

	api := router.Group("/api/v1")
	{
		monitorRoutes := api.Group("/monitor")
		{
			monitorRoutes.GET("/status", monitorController.GetStatus)
			monitorRoutes.GET("/stream", monitorController.StreamSignals)
		}

		alertRoutes := api.Group("/alerts")
		{
			alertRoutes.GET("", alertController.GetAlerts)
			alertRoutes.GET("/:id/history", alertController.GetAlertHistory)
			alertRoutes.POST("/:id/test", alertController.TestNotification)
			alertRoutes.POST("/:id/reset", alertController.ResetBreaker)
		}
	}
}
