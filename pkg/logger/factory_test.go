package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/notify/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Run("creates JSON logger by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		require.NotNil(t, log)
		log.Info("hello")

		var entry map[string]any
		err := json.Unmarshal(buf.Bytes(), &entry)
		require.NoError(t, err)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithFormat(logger.FormatText),
		)
		log.Info("hello")
		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "hello")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() {
			logger.New(logger.WithFormat(logger.Format("xml")))
		})
	})

	t.Run("level filtering", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithLevel(slog.LevelWarn),
		)
		log.Info("dropped")
		log.Warn("kept")
		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("service attribute on every record", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithService("notify"),
		)
		log.Info("msg")

		var entry map[string]any
		err := json.Unmarshal(buf.Bytes(), &entry)
		require.NoError(t, err)
		assert.Equal(t, "notify", entry["service"])
	})

	t.Run("env config applies level and format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithConfig(logger.Config{Level: "debug", Format: logger.FormatText}),
		)
		log.Debug("visible")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf))

	log.Info("dispatched",
		logger.TenantID("t1"),
		logger.RecipientID("u1"),
		logger.NotificationID("n1"),
		logger.Kind("NEW_LESSON"),
		logger.DeliveredCount(2),
		logger.Error(errors.New("boom")),
	)

	var entry map[string]any
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)
	assert.Equal(t, "t1", entry["tenant_id"])
	assert.Equal(t, "u1", entry["recipient_id"])
	assert.Equal(t, "n1", entry["notification_id"])
	assert.Equal(t, "NEW_LESSON", entry["kind"])
	assert.Equal(t, float64(2), entry["delivered_count"])
	assert.Equal(t, "boom", entry["error"])
}

func TestError_Nil(t *testing.T) {
	assert.Equal(t, slog.Attr{}, logger.Error(nil))
}
