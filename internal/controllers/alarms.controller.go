package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"halmon/internal/logger"
	"halmon/internal/models"
	"halmon/internal/services"
)

// AlarmController manages alarm definitions
type AlarmController struct {
	store *services.AlarmStore
}

func NewAlarmController(store *services.AlarmStore) *AlarmController {
	return &AlarmController{store: store}
}

type createAlarmRequest struct {
	Type      string `json:"type" binding:"required"`
	Threshold *int   `json:"threshold" binding:"required"`
}

type alarmView struct {
	Index int `json:"index"`
	models.Alarm
}

func (ac *AlarmController) List(c *gin.Context) {
	alarms := ac.store.List()
	out := make([]alarmView, len(alarms))
	for i, a := range alarms {
		out[i] = alarmView{Index: i, Alarm: a}
	}
	c.JSON(http.StatusOK, gin.H{"alarms": out})
}

func (ac *AlarmController) Create(c *gin.Context) {
	var req createAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and threshold are required"})
		return
	}

	idx, created, err := ac.store.Create(req.Type, *req.Threshold)
	if err != nil {
		status := http.StatusInternalServerError
		if services.IsUserError(err) {
			status = http.StatusBadRequest
		} else {
			logger.Errorf("[ALARMS] add failed: %v", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	// an existing (type, threshold) pair is reported, not re-created
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	alarms := ac.store.List()
	if idx >= len(alarms) {
		c.JSON(status, gin.H{"index": idx})
		return
	}
	c.JSON(status, alarmView{Index: idx, Alarm: alarms[idx]})
}

func (ac *AlarmController) Remove(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	if !ac.store.Remove(idx) {
		c.JSON(http.StatusNotFound, gin.H{"removed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}
