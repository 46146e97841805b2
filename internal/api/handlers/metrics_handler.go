package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/andresuchdata/backupctl/internal/realm"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ContentTypeMetrics is the Prometheus text exposition content type.
const ContentTypeMetrics = "text/plain; version=0.0.4; charset=utf-8"

// MetricsRenderer renders the metrics text of the configured realms.
type MetricsRenderer interface {
	Metrics(ctx context.Context) (string, error)
	ConfigPath() string
}

type MetricsHandler struct {
	service MetricsRenderer
}

func NewMetricsHandler(service MetricsRenderer) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// GetMetrics reloads the realms file and renders fresh gauges for every realm.
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	text, err := h.service.Metrics(c.Request.Context())
	if err != nil {
		message := "failed to render metrics"
		if isConfigLoadError(err) {
			message = "failed to load realms config"
		}
		log.Error().Err(err).Str("config", h.service.ConfigPath()).Msg("metrics: " + message)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"error":   message,
			"message": err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, ContentTypeMetrics, []byte(text))
}

func isConfigLoadError(err error) bool {
	var (
		ioErr    *realm.IOError
		parseErr *realm.ConfigParseError
	)
	return errors.As(err, &ioErr) || errors.As(err, &parseErr)
}
