// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newCapturedSlogger(buf *bytes.Buffer) *slog.Logger {
	SetLogger(zerolog.New(buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return slog.New(NewSlogHandler())
}

func TestSlogHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedSlogger(&buf)

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"Debug", func() { logger.Debug("d") }, `"level":"debug"`},
		{"Info", func() { logger.Info("i") }, `"level":"info"`},
		{"Warn", func() { logger.Warn("w") }, `"level":"warn"`},
		{"Error", func() { logger.Error("e") }, `"level":"error"`},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("%s: expected %s in output: %s", tt.name, tt.level, buf.String())
		}
	}
}

func TestSlogHandlerAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedSlogger(&buf)

	logger.Info("attrs",
		slog.String("rfid", "B07"),
		slog.Int("queue", 16),
		slog.Bool("molting", true),
	)

	out := buf.String()
	for _, want := range []string{`"rfid":"B07"`, `"queue":16`, `"molting":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedSlogger(&buf)

	logger.With(slog.String("service", "livebus")).WithGroup("bus").Info("tick",
		slog.Int64("subscribers", 3),
	)

	out := buf.String()
	if !strings.Contains(out, `"service":"livebus"`) {
		t.Errorf("expected pre-configured attr in output: %s", out)
	}
	if !strings.Contains(out, `"bus.subscribers":3`) {
		t.Errorf("expected group-prefixed attr in output: %s", out)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))
	h := NewSlogHandler()

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
