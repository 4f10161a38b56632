package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOutput(&buf, "debug", "json")
	defer SetupWithOutput(&bytes.Buffer{}, "info", "text")

	log.WithField("habit_id", 7).Debug("toggled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "toggled", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.EqualValues(t, 7, entry["habit_id"])
}

func TestSetupWithOutput_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOutput(&buf, "loud", "text")
	defer SetupWithOutput(&bytes.Buffer{}, "info", "text")

	assert.Equal(t, log.InfoLevel, log.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())
}
