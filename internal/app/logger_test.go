package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONLoggerTagsService(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"}).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "gatehouse", line["service"])
	require.Equal(t, "hello", line["msg"])
}

func TestDebugOnlyInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{AppEnv: "production"}).Debug("hidden")
	require.Zero(t, buf.Len())

	newLogger(&buf, &Config{AppEnv: "development"}).Debug("shown")
	require.Contains(t, buf.String(), "shown")
}
