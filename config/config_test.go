package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults run offline", func(t *testing.T) {
		t.Setenv("FIREBASE_CREDENTIALS_PATH", "")
		t.Setenv("APP_ID", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "restaurant-planner", cfg.App.ApplicationID)
		assert.Equal(t, time.Second, cfg.Local.PollInterval)
		assert.False(t, cfg.RemoteConfigured())
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("APP_ID", "bistro")
		t.Setenv("LOCAL_POLL_INTERVAL", "250ms")
		t.Setenv("ADMIN_UIDS", "a, b ,,c")
		t.Setenv("REDIS_DB", "not-a-number")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "bistro", cfg.App.ApplicationID)
		assert.Equal(t, 250*time.Millisecond, cfg.Local.PollInterval)
		assert.Equal(t, []string{"a", "b", "c"}, cfg.App.AdminUIDs)
		assert.Equal(t, 0, cfg.Local.RedisDB)
		assert.True(t, cfg.IsAdmin("b"))
		assert.False(t, cfg.IsAdmin("z"))
	})

	t.Run("remote mode needs an api key", func(t *testing.T) {
		t.Setenv("FIREBASE_CREDENTIALS_PATH", "/tmp/creds.json")
		t.Setenv("FIREBASE_API_KEY", "")

		_, err := Load()
		require.Error(t, err)
	})
}
