package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
)

// AdminHandler maintains the calendar event registry and the regional
// factors. Changes take effect from the next cycle; running cycles keep the
// snapshot they started with.
type AdminHandler struct {
	events  *calendar.Registry
	regions *region.Adjuster
}

func NewAdminHandler(events *calendar.Registry, regions *region.Adjuster) *AdminHandler {
	return &AdminHandler{
		events:  events,
		regions: regions,
	}
}

// UpsertEvent adds or replaces a calendar event by name.
func (h *AdminHandler) UpsertEvent(c *gin.Context) {
	var event calendar.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid event body")
		return
	}
	if event.Name == "" {
		errorResponse(c, http.StatusBadRequest, "event name is required")
		return
	}
	if event.BaseMultiplier <= 0 {
		errorResponse(c, http.StatusBadRequest, "base_multiplier must be positive")
		return
	}

	h.events.Upsert(event)
	c.JSON(http.StatusOK, gin.H{"status": "upserted", "name": event.Name})
}

// RemoveEvent deletes a calendar event by name.
func (h *AdminHandler) RemoveEvent(c *gin.Context) {
	name := c.Param("name")
	h.events.Remove(name)
	c.JSON(http.StatusOK, gin.H{"status": "removed", "name": name})
}

type regionalFactorRequest struct {
	Location             string  `json:"location" binding:"required"`
	Category             string  `json:"category" binding:"required"`
	GrowthRate           float64 `json:"growth_rate"`
	CompetitiveIntensity float64 `json:"competitive_intensity"`
	PolicyImpact         float64 `json:"policy_impact"`
}

// UpsertRegionalFactor supersedes the active factor for a (location,
// category) pair. Prior versions stay available for audit.
func (h *AdminHandler) UpsertRegionalFactor(c *gin.Context) {
	var req regionalFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid factor body")
		return
	}

	h.regions.Upsert(domain.RegionalFactor{
		Location:             req.Location,
		Category:             req.Category,
		GrowthRate:           req.GrowthRate,
		CompetitiveIntensity: req.CompetitiveIntensity,
		PolicyImpact:         req.PolicyImpact,
		EffectiveAt:          time.Now().UTC(),
	})
	c.JSON(http.StatusOK, gin.H{"status": "upserted"})
}

// GetRegionalFactorHistory returns every retained version for a pair, newest
// last.
func (h *AdminHandler) GetRegionalFactorHistory(c *gin.Context) {
	location := c.Query("location")
	category := c.Query("category")
	if location == "" || category == "" {
		errorResponse(c, http.StatusBadRequest, "location and category are required")
		return
	}

	history := h.regions.History(location, category)
	c.JSON(http.StatusOK, gin.H{"data": history})
}
