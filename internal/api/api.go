// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mounika-192643/InsightSphere-AI/internal/api/handlers"
	"github.com/mounika-192643/InsightSphere-AI/internal/api/middleware"
	"github.com/mounika-192643/InsightSphere-AI/internal/calendar"
	"github.com/mounika-192643/InsightSphere-AI/internal/region"
	"github.com/mounika-192643/InsightSphere-AI/internal/service"
)

type Services struct {
	CycleService   *service.CycleService
	InsightService *service.InsightService
	Events         *calendar.Registry
	Regions        *region.Adjuster
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.CycleService != nil {
			cycleHandler := handlers.NewCycleHandler(services.CycleService)
			cycleGroup := apiGroup.Group("/businesses/:business_id/cycles")
			{
				cycleGroup.POST("/run", cycleHandler.RunCycle)
				cycleGroup.POST("/actuals", cycleHandler.RecordActual)
			}
			apiGroup.GET("/businesses/:business_id/products/:product_id/forecast", cycleHandler.GetForecast)
		}

		if services.InsightService != nil {
			insightHandler := handlers.NewInsightHandler(services.InsightService)
			insightGroup := apiGroup.Group("/businesses/:business_id")
			{
				insightGroup.GET("/actions", insightHandler.GetLatestActions)
				insightGroup.GET("/cycles/latest", insightHandler.GetLatestCycle)
				insightGroup.GET("/cycles/:cycle_key", insightHandler.GetCycle)
				insightGroup.GET("/effectiveness", insightHandler.GetEffectiveness)
				insightGroup.GET("/products/:product_id/accuracy", insightHandler.GetAccuracyHistory)
				insightGroup.POST("/outcomes", insightHandler.RecordOutcome)
			}
		}

		if services.Events != nil && services.Regions != nil {
			adminHandler := handlers.NewAdminHandler(services.Events, services.Regions)
			adminGroup := apiGroup.Group("/admin")
			{
				adminGroup.POST("/events", adminHandler.UpsertEvent)
				adminGroup.DELETE("/events/:name", adminHandler.RemoveEvent)
				adminGroup.POST("/regions/factors", adminHandler.UpsertRegionalFactor)
				adminGroup.GET("/regions/factors/history", adminHandler.GetRegionalFactorHistory)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
