package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, DriverSQLite, cfg.RecordStoreDriver)
	require.Equal(t, SinkDatabase, cfg.ReportSink)
	require.Equal(t, 10*time.Minute, cfg.ResultCacheTTL)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, 12*time.Hour, cfg.TokenTTL)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	require.Equal(t, 10, cfg.EvaluationsPerMinute)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_APP_PORT", ":9090")
	t.Setenv("GEMA_RECORD_STORE_DRIVER", "Postgres")
	t.Setenv("GEMA_REPORT_SINK", "nats")
	t.Setenv("GEMA_NATS_URL", "nats://localhost:4222")
	t.Setenv("GEMA_RESULT_CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, DriverPostgres, cfg.RecordStoreDriver)
	require.Equal(t, SinkNATS, cfg.ReportSink)
	require.Equal(t, 90*time.Second, cfg.ResultCacheTTL)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"missing jwt secret": {},
		"unknown driver":     {"GEMA_JWT_SECRET": "s", "GEMA_RECORD_STORE_DRIVER": "mysql"},
		"unknown sink":       {"GEMA_JWT_SECRET": "s", "GEMA_REPORT_SINK": "firestore"},
		"nats without url":   {"GEMA_JWT_SECRET": "s", "GEMA_REPORT_SINK": "nats"},
		"bad ttl":            {"GEMA_JWT_SECRET": "s", "GEMA_SESSION_TTL": "soon"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("GEMA_JWT_SECRET", "")
			for key, value := range env {
				t.Setenv(key, value)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
