package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"channel-sync-service/internal/models"
	"channel-sync-service/internal/repository"
)

// MappingHandler handles SKU mapping endpoints
type MappingHandler struct {
	mappingRepo *repository.SKUMappingRepository
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(mappingRepo *repository.SKUMappingRepository) *MappingHandler {
	return &MappingHandler{mappingRepo: mappingRepo}
}

// ListMappings returns SKU mappings with pagination
func (h *MappingHandler) ListMappings(c *gin.Context) {
	opts := repository.MappingListOptions{
		Channel:   c.Query("channel"),
		MasterSKU: c.Query("masterSku"),
	}
	opts.Limit, opts.Offset = parsePagination(c)

	mappings, total, err := h.mappingRepo.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   mappings,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// CreateMappingRequest represents the request to create a SKU mapping
type CreateMappingRequest struct {
	Channel       models.ChannelType `json:"channel" binding:"required"`
	ChannelSKU    string             `json:"channelSku" binding:"required"`
	MasterSKU     string             `json:"masterSku" binding:"required"`
	IsCaseProduct bool               `json:"isCaseProduct"`
	UnitsPerCase  int                `json:"unitsPerCase"`
	CreatedBy     string             `json:"createdBy,omitempty"`
}

// CreateMapping creates or replaces a SKU mapping
func (h *MappingHandler) CreateMapping(c *gin.Context) {
	var req CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IsCaseProduct && req.UnitsPerCase < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "case products need unitsPerCase of at least 2"})
		return
	}
	unitsPerCase := req.UnitsPerCase
	if unitsPerCase < 1 {
		unitsPerCase = 1
	}

	mapping := &models.SKUMapping{
		Channel:       req.Channel,
		ChannelSKU:    req.ChannelSKU,
		MasterSKU:     req.MasterSKU,
		IsCaseProduct: req.IsCaseProduct,
		UnitsPerCase:  unitsPerCase,
		CreatedBy:     req.CreatedBy,
	}

	if err := h.mappingRepo.Upsert(c.Request.Context(), mapping); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": mapping})
}

// GetMapping retrieves a single SKU mapping by ID
func (h *MappingHandler) GetMapping(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mapping id"})
		return
	}

	mapping, err := h.mappingRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "mapping not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": mapping})
}

// DeleteMapping deletes a SKU mapping
func (h *MappingHandler) DeleteMapping(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mapping id"})
		return
	}

	if err := h.mappingRepo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mapping deleted"})
}
