package openapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	data, err := JSON("1.2.3")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, Version, doc["openapi"])
	assert.Equal(t, "1.2.3", doc["info"].(map[string]any)["version"])

	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/metrics")
	assert.Contains(t, paths, "/openapi.json")
	assert.Contains(t, paths, "/health")

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	assert.Contains(t, schemas, "HttpErrMessage")
}
