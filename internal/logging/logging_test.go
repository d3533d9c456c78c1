package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestSetupConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	m := NewManager()
	m.Setup(&console, &file, "info", nil)

	m.Logger().Debug("hidden")
	m.Logger().Info("shown", "gear", 3)

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
	assert.Contains(t, console.String(), "gear=3")
	assert.Contains(t, file.String(), `"msg":"shown"`)
	assert.Contains(t, file.String(), `"gear":3`)
}

func TestSetupReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewManager()
	m.Setup(&first, nil, "debug", nil)
	m.Logger().Info("one")
	m.Setup(&second, nil, "debug", nil)
	m.Logger().Info("two")

	assert.Contains(t, first.String(), "one")
	assert.NotContains(t, first.String(), "two")
	assert.Contains(t, second.String(), "two")
}

func TestLoggerBeforeSetup(t *testing.T) {
	m := NewManager()
	assert.Same(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestSetupWithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var console bytes.Buffer
	m := NewManager()
	m.Setup(&console, nil, "info", provider)
	m.Logger().Info("bridged")

	assert.Contains(t, console.String(), "bridged")
	require.NoError(t, m.Flush(context.Background()))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiHandlerContinuesPastFailure(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	h := NewMultiHandler(nil, failingHandler{text}, text)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0))
	assert.ErrorContains(t, err, "disk full")
	assert.Contains(t, buf.String(), "still written")
}

func TestMultiHandlerEnabled(t *testing.T) {
	warn := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
	ctx := context.Background()

	assert.False(t, NewMultiHandler(warn).Enabled(ctx, slog.LevelInfo))
	assert.True(t, NewMultiHandler(warn, debug).Enabled(ctx, slog.LevelInfo))
	assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
}

func TestMultiHandlerWithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&a, nil), slog.NewTextHandler(&b, nil))
	logger := slog.New(h).With("run", "r1").WithGroup("wheel")
	logger.Info("slip", "name", "front_left")

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "run=r1")
		assert.Contains(t, out, "wheel.name=front_left")
	}
	assert.Same(t, h, h.WithGroup(""))
}
