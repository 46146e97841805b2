package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/backupctl/internal/api/handlers"
	"github.com/andresuchdata/backupctl/internal/api/middleware"
	"github.com/andresuchdata/backupctl/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const banner = "# Backups Server API"

type Services struct {
	RealmService *service.RealmService
}

type Options struct {
	Version        string
	AllowedOrigins []string
}

func NewRouter(services *Services, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	normalizedOrigins, allowAll := normalizeAllowedOrigins(opts.AllowedOrigins)
	if allowAll || len(normalizedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = normalizedOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, banner)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	openapiHandler := handlers.NewOpenAPIHandler(opts.Version)
	router.GET("/openapi.json", openapiHandler.GetDocument)

	if services != nil && services.RealmService != nil {
		metricsHandler := handlers.NewMetricsHandler(services.RealmService)
		router.GET("/metrics", metricsHandler.GetMetrics)
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
