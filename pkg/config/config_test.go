package config_test

import (
	"testing"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	settings, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", settings.Env)
	assert.Equal(t, "logs/events.jsonl", settings.LogFile)
	assert.Equal(t, "artifacts", settings.ArtifactsDir)
	assert.Equal(t, "UTC", settings.SchedulerTimezone)
	assert.Equal(t, "gemini-2.5-flash", settings.LLM.Model)
	assert.False(t, settings.ExportXLSX)
	assert.False(t, settings.LLM.Enabled())
	assert.False(t, settings.ObjectStore.Enabled())
	assert.Equal(t, "file://./data", settings.Store.DSN())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATA_DB_TYPE", "postgresql")
	t.Setenv("DATA_TABLE", "orders")
	t.Setenv("DATA_PORT", "6543")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com ,")
	t.Setenv("SCHEDULER_TIMEZONE", "Europe/Berlin")
	t.Setenv("EXPORT_XLSX", "true")

	settings, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.SourcePostgres, settings.Data.Kind())
	assert.Equal(t, "orders", settings.Data.Table)
	assert.Equal(t, "6543", settings.Data.Port)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, settings.Mail.Recipients())
	assert.Equal(t, "Europe/Berlin", settings.SchedulerTimezone)
	assert.True(t, settings.ExportXLSX)
}

func TestLoad_RejectsUnknownSourceType(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATA_DB_TYPE", "oracle")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")
}

func TestStore_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store config.Store
		want  string
	}{
		{name: "database url wins", store: config.Store{DatabaseURL: "postgres://a", PoolerDSN: "postgres://b"}, want: "postgres://a"},
		{name: "pooler before direct", store: config.Store{PoolerDSN: "postgres://b", DirectDSN: "postgres://c"}, want: "postgres://b"},
		{name: "direct", store: config.Store{DirectDSN: "postgres://c"}, want: "postgres://c"},
		{
			name:  "discrete params",
			store: config.Store{PGHost: "db.local", PGUser: "app", PGPassword: "secret"},
			want:  "host=db.local port=5432 dbname=postgres user=app password=secret sslmode=require",
		},
		{name: "file fallback", store: config.Store{}, want: "file://./data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.store.DSN())
		})
	}
}

func TestMail_Complete(t *testing.T) {
	t.Parallel()

	assert.False(t, config.Mail{}.Complete())
	assert.False(t, config.Mail{APIKey: "k", From: "f@example.com", To: " , "}.Complete())
	assert.True(t, config.Mail{APIKey: "k", From: "f@example.com", To: "t@example.com"}.Complete())
}

func TestSettings_WithOverrides(t *testing.T) {
	t.Parallel()

	base := config.Settings{
		Env:               "dev",
		LogFile:           "logs/events.jsonl",
		ArtifactsDir:      "artifacts",
		SchedulerTimezone: "UTC",
		Data:              config.DataSource{Type: "sqlite", Name: "base.db"},
	}

	updated, err := base.WithOverrides(map[string]any{
		"DATA_DB_TYPE": "postgres",
		"DATA_PORT":    5432,
		"data_table":   "orders",
		"EXPORT_XLSX":  true,
		"UNKNOWN_KEY":  "ignored",
		"DATA_DSN":     nil,
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres", updated.Data.Type)
	assert.Equal(t, "5432", updated.Data.Port)
	assert.Equal(t, "orders", updated.Data.Table)
	assert.Equal(t, "base.db", updated.Data.Name)
	assert.True(t, updated.ExportXLSX)

	assert.Equal(t, "sqlite", base.Data.Type, "base settings must not change")
}

func TestSettings_WithOverridesRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	base := config.Settings{Env: "dev", LogFile: "l", ArtifactsDir: "a", SchedulerTimezone: "UTC"}

	_, err := base.WithOverrides(map[string]any{"DATA_HOST": map[string]any{"nested": true}})
	require.ErrorIs(t, err, config.ErrInvalidOverrides)

	_, err = base.WithOverrides(map[string]any{"DATA_DB_TYPE": "oracle"})
	require.ErrorIs(t, err, config.ErrInvalidOverrides)

	_, err = base.WithOverrides(map[string]any{"EXPORT_XLSX": "maybe"})
	require.ErrorIs(t, err, config.ErrInvalidOverrides)
}

func TestOverrideKeys(t *testing.T) {
	t.Parallel()

	keys := config.OverrideKeys()
	assert.Contains(t, keys, "DATA_TABLE")
	assert.Contains(t, keys, "SENDGRID_API_KEY")
	assert.IsIncreasing(t, keys)
}
