package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"channel-sync-service/internal/repository"
	"channel-sync-service/internal/services"
)

// SyncHandler handles sync run endpoints
type SyncHandler struct {
	service *services.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *services.SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// ListRuns returns sync runs
func (h *SyncHandler) ListRuns(c *gin.Context) {
	opts := &repository.RunListOptions{
		Channel:  c.Query("channel"),
		Status:   c.Query("status"),
		SyncType: c.Query("syncType"),
	}

	if accountID := c.Query("accountId"); accountID != "" {
		if id, err := uuid.Parse(accountID); err == nil {
			opts.AccountID = id
		}
	}
	opts.Limit, opts.Offset = parsePagination(c)

	runs, total, err := h.service.ListRuns(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  runs,
		"total": total,
	})
}

// CreateRun starts a new sync run
func (h *SyncHandler) CreateRun(c *gin.Context) {
	var req services.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.service.CreateRun(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": run})
}

// GetRun returns a single sync run
func (h *SyncHandler) GetRun(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

// CancelRun cancels a running sync run
func (h *SyncHandler) CancelRun(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.CancelRun(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run cancelled"})
}

// GetRunLogs returns logs for a sync run
func (h *SyncHandler) GetRunLogs(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	opts := &repository.LogListOptions{
		Level: c.Query("level"),
		Limit: 100,
	}

	logs, err := h.service.GetRunLogs(c.Request.Context(), id, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// GetStats returns sync run statistics
func (h *SyncHandler) GetStats(c *gin.Context) {
	var accountID *uuid.UUID
	if accountIDStr := c.Query("accountId"); accountIDStr != "" {
		if id, err := uuid.Parse(accountIDStr); err == nil {
			accountID = &id
		}
	}

	stats, err := h.service.GetStats(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// GetConcurrencyStats returns the run guard's current slot usage
func (h *SyncHandler) GetConcurrencyStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.GetConcurrencyStats()})
}

// parsePagination reads limit/offset query params with a default limit
func parsePagination(c *gin.Context) (int, int) {
	limit := 50
	offset := 0
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}
