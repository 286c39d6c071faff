package logger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("info"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("WARN"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel(""))
}

func TestWithAddsFields(t *testing.T) {
	logger.SetLogLevel(logger.DebugLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	var buf bytes.Buffer
	log := logger.New(zerolog.New(&buf)).With("run_id", "abc")
	log.Info().Str("serial", "123").Msg("collecting")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["run_id"])
	assert.Equal(t, "123", line["serial"])
	assert.Equal(t, "collecting", line["message"])
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(zerolog.New(&buf))

	err := errors.New().Wrap(errors.ErrTimeout, fmt.Errorf("deadline"))
	log.ErrorWithCode(err).Msg("failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "operation_timeout", line["error_code"])
	assert.Equal(t, "deadline", line["error"])
}

func TestInitWriterLevel(t *testing.T) {
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	var buf bytes.Buffer
	logger.InitWriter(&buf, "warning")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
