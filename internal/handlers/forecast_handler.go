package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"channel-sync-service/internal/repository"
	"channel-sync-service/internal/services"
)

// ForecastHandler handles stockout forecast endpoints
type ForecastHandler struct {
	service *services.ForecastService
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(service *services.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// RunForecast computes a fresh forecast and returns the resulting alerts
func (h *ForecastHandler) RunForecast(c *gin.Context) {
	result, err := h.service.Run(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ListAlerts returns persisted stockout alerts
func (h *ForecastHandler) ListAlerts(c *gin.Context) {
	opts := &repository.AlertListOptions{
		Severity:  c.Query("severity"),
		MasterSKU: c.Query("masterSku"),
	}
	opts.Limit, opts.Offset = parsePagination(c)

	alerts, total, err := h.service.ListAlerts(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  alerts,
		"total": total,
	})
}

// GetRunAlerts returns the alerts produced by one sync run
func (h *ForecastHandler) GetRunAlerts(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	alerts, err := h.service.GetRunAlerts(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}
