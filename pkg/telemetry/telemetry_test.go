package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		info  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"", false, true},
		{"warn", false, false},
		{"error", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := NewLogger(LogConfig{Level: tt.level, File: filepath.Join(t.TempDir(), "run.log")})
			require.NoError(t, err)
			core := log.Desugar().Core()
			assert.Equal(t, tt.debug, core.Enabled(zap.DebugLevel))
			assert.Equal(t, tt.info, core.Enabled(zap.InfoLevel))
			assert.True(t, core.Enabled(zap.ErrorLevel))
		})
	}
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.ErrorContains(t, err, "loud")
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger(LogConfig{Level: "info", File: path})
	require.NoError(t, err)

	log.Infow("tick", "active", 3)
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick")
	assert.Contains(t, string(data), "active")
}

func TestSetupTracing_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  TraceConfig
	}{
		{"No endpoint", TraceConfig{Enabled: true}},
		{"Switched off", TraceConfig{Endpoint: "http://localhost:4318", Enabled: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := SetupTracing(context.Background(), "particlesim", tt.cfg)
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}
