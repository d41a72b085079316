package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/fx-platform/pkg/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Streamer.Port)
	assert.Equal(t, time.Second, cfg.Streamer.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.Streamer.Interval)
	assert.Equal(t, 5*time.Second, cfg.Streamer.FetchTimeout)
	assert.Equal(t, ":8082", cfg.Ingest.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "fx:fx@tcp(localhost:3306)/fx_platform?parseTime=true", cfg.Database.DSN)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STREAMER_INTERVAL", "2s")
	t.Setenv("DATABASE_DRIVER", "duckdb")
	t.Setenv("DATABASE_DSN", "fx_platform.duckdb")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Streamer.Interval)
	assert.Equal(t, "duckdb", cfg.Database.Driver)
	assert.Equal(t, "fx_platform.duckdb", cfg.Database.DSN)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestValidate_KafkaNeedsTopicWhenEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Enabled = true
	cfg.Kafka.AlertsTopic = ""

	assert.Error(t, cfg.Validate())
}

func TestNewLogger_WritesRotatingFile(t *testing.T) {
	cfg := config.Default().Logger
	cfg.File = filepath.Join(t.TempDir(), "streamer.log")

	logger, err := config.NewLogger(cfg)
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	assert.FileExists(t, cfg.File)
}

func TestNewLogger_BadLevel(t *testing.T) {
	cfg := config.Default().Logger
	cfg.Level = "loud"

	_, err := config.NewLogger(cfg)
	assert.Error(t, err)
}
