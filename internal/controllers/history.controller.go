package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"halmon/internal/models"
	"halmon/internal/services"
)

// GetHistory returns buffered percentages per metric
// Query params: n=<points> (default: all), metric=cpu|memory|disk (default: all)
func (mc *MonitorController) GetHistory(c *gin.Context) {
	n, ok := queryInt(c, "n", 0)
	if !ok {
		return
	}

	history := mc.monitor.History(n)
	metric := c.Query("metric")
	if metric == "" {
		c.JSON(http.StatusOK, gin.H{
			"active":   mc.monitor.Active(),
			"capacity": services.MaxHistory,
			"data":     history,
		})
		return
	}

	rt, err := models.ParseResourceType(metric)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metric"})
		return
	}
	series := history.Series(rt)
	if series == nil {
		series = []models.MetricSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{
		"active": mc.monitor.Active(),
		"metric": rt,
		"data":   series,
	})
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}
