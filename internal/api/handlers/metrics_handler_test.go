package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/backupctl/internal/realm"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	text string
	err  error
}

func (s stubRenderer) Metrics(context.Context) (string, error) { return s.text, s.err }
func (s stubRenderer) ConfigPath() string                      { return "realms.toml" }

func getMetrics(t *testing.T, renderer MetricsRenderer) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", NewMetricsHandler(renderer).GetMetrics)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code == http.StatusOK {
		return rec, nil
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestMetricsHandler_OK(t *testing.T) {
	rec, _ := getMetrics(t, stubRenderer{text: "up 1\n"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeMetrics, rec.Header().Get("Content-Type"))
	assert.Equal(t, "up 1\n", rec.Body.String())
}

func TestMetricsHandler_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "missing file", err: &realm.IOError{Path: "realms.toml", Err: errors.New("no such file")}, want: "failed to load realms config"},
		{name: "parse error", err: &realm.ConfigParseError{Err: errors.New("bad toml")}, want: "failed to load realms config"},
		{name: "render error", err: errors.New("failed to gather metrics: duplicate"), want: "failed to render metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := getMetrics(t, stubRenderer{err: tt.err})
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.want, body["error"])
			assert.EqualValues(t, http.StatusInternalServerError, body["code"])
			assert.Equal(t, tt.err.Error(), body["message"])
		})
	}
}
