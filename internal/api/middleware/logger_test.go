package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Logger(), Recovery())
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	return engine
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	buf := captureLogs(t)
	engine := newEngine()

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	entry := lastEntry(t, buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "/health", entry["path"])

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics?x=1", nil))
	entry = lastEntry(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "/metrics?x=1", entry["path"])
	assert.EqualValues(t, 500, entry["status"])
}

func TestRecovery(t *testing.T) {
	buf := captureLogs(t)
	engine := newEngine()

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Recovered from panic")
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, requestLevel("/metrics", http.StatusOK))
	assert.Equal(t, zerolog.WarnLevel, requestLevel("/missing", http.StatusNotFound))
	assert.Equal(t, zerolog.DebugLevel, requestLevel("/health", http.StatusOK))
	assert.Equal(t, zerolog.ErrorLevel, requestLevel("/health", http.StatusServiceUnavailable))
}
