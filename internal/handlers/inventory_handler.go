package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"channel-sync-service/internal/repository"
)

// InventoryHandler handles read access to merged inventory
type InventoryHandler struct {
	inventoryRepo *repository.InventoryRepository
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryRepo *repository.InventoryRepository) *InventoryHandler {
	return &InventoryHandler{inventoryRepo: inventoryRepo}
}

// ListInventory returns merged inventory records
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	opts := repository.InventoryListOptions{
		SKU:      c.Query("sku"),
		Location: c.Query("location"),
		Channel:  c.Query("channel"),
	}
	opts.Limit, opts.Offset = parsePagination(c)

	records, total, err := h.inventoryRepo.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   records,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetSKUInventory returns all location rows for one master SKU
func (h *InventoryHandler) GetSKUInventory(c *gin.Context) {
	sku := c.Param("sku")
	if sku == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku is required"})
		return
	}

	records, err := h.inventoryRepo.GetBySKU(c.Request.Context(), sku)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}
