package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/statements/internal/accounting/statements"
	_ "github.com/odyssey-erp/statements/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, 24*time.Hour, cfg.ResultTTL)
	require.Equal(t, statements.StandardSYSCOHADA, cfg.Standard())
	require.True(t, decimal.New(1, -2).Equal(cfg.ToleranceAmount()))
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STATEMENTS_DEFAULT_STANDARD", "ifrs")
	t.Setenv("STATEMENTS_TOLERANCE", "0.5")
	t.Setenv("STATEMENTS_WORKERS", "3")
	t.Setenv("STATEMENTS_RESULT_TTL", "2h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, statements.StandardIFRS, cfg.Standard())
	require.Equal(t, "0.5", cfg.ToleranceAmount().String())
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, 2*time.Hour, cfg.ResultTTL)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"tolerance not decimal": {"STATEMENTS_TOLERANCE": "one cent"},
		"tolerance zero":        {"STATEMENTS_TOLERANCE": "0"},
		"workers zero":          {"STATEMENTS_WORKERS": "0"},
		"workers not int":       {"STATEMENTS_WORKERS": "many"},
		"blank standard":        {"STATEMENTS_DEFAULT_STANDARD": "  "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.Int64("company_id", 7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.EqualValues(t, 7, entry["company_id"])
	require.Contains(t, entry, "source")

	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
