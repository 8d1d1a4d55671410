package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("bogus"))
}

func TestNewWithOutput_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", "production", &buf)

	logger.WithField("application_id", "abc").Info("status changed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "status changed", entry["msg"])
	assert.Equal(t, "abc", entry["application_id"])
}

func TestNewWithOutput_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("error", "development", &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())
}
