package routes

import (
	"github.com/gin-gonic/gin"

	"halmon/internal/controllers"
)

func RegisterMonitorRoutes(r gin.IRouter, mc *controllers.MonitorController) {
	api := r.Group("/api")
	{
		api.GET("/status", mc.GetStatus)
		api.GET("/live", mc.GetLive)
		api.GET("/history", mc.GetHistory)
		api.GET("/alarms/triggered", mc.GetTriggered)
		api.POST("/monitoring/start", mc.Start)
		api.POST("/monitoring/stop", mc.Stop)
	}
}

func RegisterAlarmRoutes(r gin.IRouter, ac *controllers.AlarmController) {
	alarms := r.Group("/api/alarms")
	{
		alarms.GET("", ac.List)
		alarms.POST("", ac.Create)
		alarms.DELETE("/:index", ac.Remove)
	}
}
