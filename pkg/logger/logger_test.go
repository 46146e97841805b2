package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Equal(t, zerolog.DebugLevel, Log.GetLevel())
	assert.Equal(t, zerolog.DebugLevel, log.Logger.GetLevel())

	SetLevel("WARN")
	assert.Equal(t, zerolog.WarnLevel, Log.GetLevel())

	SetLevel("loud")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())

	SetLevel("")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure("console", "info") })

	Configure("json", "error")
	assert.Equal(t, zerolog.ErrorLevel, Log.GetLevel())
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}
