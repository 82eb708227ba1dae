package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
	"github.com/mounika-192643/InsightSphere-AI/internal/service"
)

type CycleHandler struct {
	service *service.CycleService
}

func NewCycleHandler(service *service.CycleService) *CycleHandler {
	return &CycleHandler{service: service}
}

type runCycleRequest struct {
	Reason string `json:"reason"`
}

// RunCycle triggers (or returns the already published) cycle for a business.
func (h *CycleHandler) RunCycle(c *gin.Context) {
	businessID := c.Param("business_id")

	var req runCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	reason := domain.CycleReason(req.Reason)
	switch reason {
	case "":
		reason = domain.ReasonScheduled
	case domain.ReasonScheduled, domain.ReasonNewData, domain.ReasonPriceChange:
	default:
		errorResponse(c, http.StatusBadRequest, "unknown cycle reason: "+req.Reason)
		return
	}

	result, err := h.service.Trigger(c.Request.Context(), businessID, reason)
	if err != nil {
		if errors.Is(err, domain.ErrCycleAborted) {
			errorResponse(c, http.StatusConflict, "cycle aborted, previous cycle remains in effect")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "failed to run cycle")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetForecast serves an on-demand forecast for one product. The horizon query
// parameter picks one of the configured horizons; absent, the primary horizon
// is used.
func (h *CycleHandler) GetForecast(c *gin.Context) {
	businessID := c.Param("business_id")
	productID := c.Param("product_id")

	horizon := 0
	if raw := c.Query("horizon"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			errorResponse(c, http.StatusBadRequest, "invalid horizon, want a positive day count")
			return
		}
		horizon = v
	}

	fc, err := h.service.Forecast(c.Request.Context(), businessID, productID, horizon)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConstraintViolation):
			errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrInsufficientHistory):
			errorResponse(c, http.StatusUnprocessableEntity, "not enough history to forecast this product")
		default:
			errorResponse(c, http.StatusInternalServerError, "failed to forecast")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": fc})
}

type actualRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Date      string  `json:"date" binding:"required"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
}

// RecordActual matures one realized demand day against its prediction.
func (h *CycleHandler) RecordActual(c *gin.Context) {
	businessID := c.Param("business_id")

	var req actualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	if err := h.service.RecordActual(c.Request.Context(), businessID, req.ProductID, date, req.Predicted, req.Actual); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to record actual")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
