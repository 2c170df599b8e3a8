package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempFile(t *testing.T, data []byte) *os.File {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "config-*.yml")
	require.NoError(t, err)
	t.Cleanup(func() {
		f.Close()
	})

	_, err = f.Write(data)
	require.NoError(t, err)

	return f
}

func TestLoad(t *testing.T) {
	t.Run("non-existent config file", func(t *testing.T) {
		cfg, err := Load("invalid/path/to/config.yml")

		assert.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Nil(t, cfg)
	})

	t.Run("invalid config file", func(t *testing.T) {
		data := `http_server:
  port: not number
mongo:
  db: test`

		f := createTempFile(t, []byte(data))
		cfg, err := Load(f.Name())

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("empty path uses defaults", func(t *testing.T) {
		cfg, err := Load("")

		assert.NoError(t, err)
		require.NotNil(t, cfg)

		var wantCfg Config
		setDefaults(&wantCfg)

		assert.Equal(t, wantCfg, *cfg)
	})

	t.Run("success", func(t *testing.T) {
		data := `base_url: https://shortify.tech
mongo:
  uri: mongodb://mongo:27017
  db: test
redis:
  url: redis://redis:6379
  sync_interval: 30s`

		f := createTempFile(t, []byte(data))
		cfg, err := Load(f.Name())

		assert.NoError(t, err)
		require.NotNil(t, cfg)

		var wantCfg Config
		setDefaults(&wantCfg)

		wantCfg.BaseURL = "https://shortify.tech"
		wantCfg.Mongo.URI = "mongodb://mongo:27017"
		wantCfg.Mongo.DB = "test"
		wantCfg.Redis.URL = "redis://redis:6379"
		wantCfg.Redis.SyncInterval = 30 * time.Second

		assert.Equal(t, wantCfg, *cfg)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		data := `mongo:
  db: from_file`

		t.Setenv("MONGODB_DB", "from_env")
		t.Setenv("REDIS_CACHE_TTL", "15m")

		f := createTempFile(t, []byte(data))
		cfg, err := Load(f.Name())

		assert.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "from_env", cfg.Mongo.DB)
		assert.Equal(t, 15*time.Minute, cfg.Redis.CacheTTL)
	})
}
