package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/service"
)

type InsightHandler struct {
	service *service.InsightService
}

func NewInsightHandler(service *service.InsightService) *InsightHandler {
	return &InsightHandler{service: service}
}

// GetLatestActions returns the newest published cycle's action items.
func (h *InsightHandler) GetLatestActions(c *gin.Context) {
	businessID := c.Param("business_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			errorResponse(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	items, err := h.service.LatestActions(c.Request.Context(), businessID, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to get actions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// GetLatestCycle returns the newest published cycle with its issues.
func (h *InsightHandler) GetLatestCycle(c *gin.Context) {
	businessID := c.Param("business_id")

	result, err := h.service.LatestCycle(c.Request.Context(), businessID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to get latest cycle")
		return
	}
	if result == nil {
		errorResponse(c, http.StatusNotFound, "no published cycle")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetCycle returns a specific published cycle by key.
func (h *InsightHandler) GetCycle(c *gin.Context) {
	businessID := c.Param("business_id")
	cycleKey := c.Param("cycle_key")

	result, err := h.service.GetCycle(c.Request.Context(), businessID, cycleKey)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to get cycle")
		return
	}
	if result == nil {
		errorResponse(c, http.StatusNotFound, "no cycle with key "+cycleKey)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetEffectiveness returns the realized-over-estimated ratio per category.
func (h *InsightHandler) GetEffectiveness(c *gin.Context) {
	businessID := c.Param("business_id")

	eff, err := h.service.Effectiveness(c.Request.Context(), businessID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to get effectiveness")
		return
	}
	if eff == nil {
		eff = []domain.Effectiveness{}
	}

	c.JSON(http.StatusOK, gin.H{"data": eff})
}

// GetAccuracyHistory returns a product's realized-vs-predicted observations.
// The optional since parameter defaults to the rolling 90-day window.
func (h *InsightHandler) GetAccuracyHistory(c *gin.Context) {
	businessID := c.Param("business_id")
	productID := c.Param("product_id")

	since := time.Now().UTC().AddDate(0, 0, -90)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid since date, want YYYY-MM-DD")
			return
		}
		since = parsed
	}

	observations, err := h.service.AccuracyHistory(c.Request.Context(), businessID, productID, since)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to get accuracy history")
		return
	}
	if observations == nil {
		observations = []domain.AccuracyObservation{}
	}

	c.JSON(http.StatusOK, gin.H{"data": observations})
}

type outcomeRequest struct {
	ActionID      string  `json:"action_id" binding:"required"`
	Category      string  `json:"category" binding:"required"`
	EstimatedGain float64 `json:"estimated_gain"`
	RealizedGain  float64 `json:"realized_gain"`
}

// RecordOutcome stores the realized result of an issued action item.
func (h *InsightHandler) RecordOutcome(c *gin.Context) {
	businessID := c.Param("business_id")

	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome := domain.RecommendationOutcome{
		ActionID:      req.ActionID,
		BusinessID:    businessID,
		Category:      domain.ActionCategory(req.Category),
		EstimatedGain: req.EstimatedGain,
		RealizedGain:  req.RealizedGain,
		RecordedAt:    time.Now().UTC(),
	}

	if err := h.service.RecordOutcome(c.Request.Context(), outcome); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to record outcome")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
