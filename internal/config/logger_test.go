package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "ml-model")

	logger.Debug("hidden")
	logger.Info("visible", "port", 8000)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "ml-model", entry["service"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewLogger_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "development", "database")

	logger.Debug("decision")

	assert.Contains(t, buf.String(), "decision")
	assert.Contains(t, buf.String(), "service=database")
}
