package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"halmon/internal/services"
)

const defaultStatusHistory = 60

// MonitorController exposes the monitoring lifecycle and live readings
type MonitorController struct {
	monitor *services.Monitor
}

func NewMonitorController(monitor *services.Monitor) *MonitorController {
	return &MonitorController{monitor: monitor}
}

// GetStatus returns state, latest sample, recent history and retained alerts
func (mc *MonitorController) GetStatus(c *gin.Context) {
	n, ok := queryInt(c, "n", defaultStatusHistory)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mc.monitor.Snapshot(n))
}

// GetLive returns the latest sample, or active=false when there is none
func (mc *MonitorController) GetLive(c *gin.Context) {
	sample, ok := mc.monitor.LiveData()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": mc.monitor.Active(), "sample": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "sample": sample})
}

// GetTriggered evaluates every alarm against the latest sample
func (mc *MonitorController) GetTriggered(c *gin.Context) {
	sample, triggered := mc.monitor.AlarmData()
	if !mc.monitor.Active() {
		c.JSON(http.StatusOK, gin.H{"active": false, "triggered": []interface{}{}})
		return
	}
	if triggered == nil {
		c.JSON(http.StatusOK, gin.H{"active": true, "sample": sample, "triggered": []interface{}{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "sample": sample, "triggered": triggered})
}

func (mc *MonitorController) Start(c *gin.Context) {
	mc.monitor.Start()
	c.JSON(http.StatusOK, gin.H{"active": mc.monitor.Active()})
}

func (mc *MonitorController) Stop(c *gin.Context) {
	mc.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"active": mc.monitor.Active()})
}
