package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nikixstore/storefront/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, int64(2000), cfg.OrderIDOffset)
	assert.Equal(t, 40*time.Minute, cfg.SizesMinDelay)
	assert.Equal(t, 80*time.Minute, cfg.SizesMaxDelay)
	assert.Equal(t, 1, cfg.SizesActiveFrom)
	assert.Equal(t, 22, cfg.SizesActiveTo)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.StrictStatusTransitions)
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADMIN_ID=42\nLOG_LEVEL=debug\nSIZES_TIMEOUT=5s\n"), 0o600))
	t.Setenv("ORDERS_CHAT_ID", "-100")
	t.Setenv("STRICT_STATUS_TRANSITIONS", "true")
	t.Cleanup(func() {
		os.Unsetenv("ADMIN_ID")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("SIZES_TIMEOUT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.AdminID)
	assert.Equal(t, int64(-100), cfg.OrdersChatID)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.SizesTimeout)
	assert.True(t, cfg.StrictStatusTransitions)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)

	var verr *runtime.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "REDIS_DB", verr.Field)
}

func TestValidateWindow(t *testing.T) {
	t.Setenv("SIZES_ACTIVE_FROM", "23")
	t.Setenv("SIZES_ACTIVE_TO", "5")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.True(t, runtime.IsValidation(err))
}
