package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sync-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "syncengine", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)

	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)

	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Sync.SyncInterval)
	assert.Equal(t, 3, cfg.Sync.RetryAttempts)
	assert.Equal(t, 10*time.Second, cfg.Sync.AdapterTimeout)
	assert.Equal(t, []string{"local", "shopify", "mercadolibre"}, cfg.Sync.EnabledTargets)
	assert.True(t, cfg.Sync.RealtimeEnabled)
	assert.Equal(t, 1000, cfg.Sync.QueueWarningDepth)
	assert.Equal(t, int64(50), cfg.Sync.ConflictErrorCount)

	assert.False(t, cfg.Marketplace.Shopify.Enabled())
	assert.False(t, cfg.Marketplace.MercadoLibre.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EGDC_APP_PORT", "9090")
	t.Setenv("EGDC_DATABASE_PASSWORD", "secret")
	t.Setenv("EGDC_SYNC_BATCH_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 10, cfg.Sync.BatchSize)
}

func TestLoadRealtimeDisabled(t *testing.T) {
	t.Setenv("EGDC_SYNC_REALTIME_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Sync.RealtimeEnabled)
}

func TestLoadProductionValidation(t *testing.T) {
	t.Run("missing password rejected", func(t *testing.T) {
		t.Setenv("EGDC_APP_ENV", "production")
		t.Setenv("EGDC_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")
	})

	t.Run("disabled ssl rejected", func(t *testing.T) {
		t.Setenv("EGDC_APP_ENV", "production")
		t.Setenv("EGDC_DATABASE_PASSWORD", "secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("credentialed production config passes", func(t *testing.T) {
		t.Setenv("EGDC_APP_ENV", "production")
		t.Setenv("EGDC_DATABASE_PASSWORD", "secret")
		t.Setenv("EGDC_DATABASE_SSLMODE", "require")

		_, err := Load()
		assert.NoError(t, err)
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "app",
		Password: "p@ss/word",
		DBName:   "syncengine",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.True(t, strings.HasPrefix(dsn, "postgres://"))
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in credentials must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestEngineConfig(t *testing.T) {
	cfg := &Config{
		Sync: SyncConfig{
			BatchSize:          25,
			SyncInterval:       2 * time.Second,
			RetryAttempts:      5,
			RetryDelay:         500 * time.Millisecond,
			ConcurrencyWindow:  3 * time.Second,
			AdapterTimeout:     8 * time.Second,
			RealtimeEnabled:    true,
			EnabledTargets:     []string{"local", "shopify"},
			SourcePriority:     []string{"local", "shopify", "mercadolibre"},
			QueueWarningDepth:  100,
			ConflictErrorCount: 5,
			Resolution: map[string]ResolutionConfig{
				"inventory": {
					Strategy:   "merge-fields",
					MergeRules: map[string]string{"quantity": "min"},
				},
				"product": {
					Strategy: "source-priority",
					// No explicit priority, inherits the global ordering
				},
			},
		},
	}

	engine := cfg.EngineConfig()
	require.NoError(t, engine.Validate())

	assert.Equal(t, 25, engine.BatchSize)
	assert.Equal(t, 5, engine.RetryAttempts)
	assert.Equal(t, 3*time.Second, engine.ConcurrencyWindow)
	assert.Equal(t, []syncengine.Source{syncengine.SourceLocal, syncengine.SourceShopify}, engine.EnabledTargets)

	inventory := engine.Resolution["inventory"]
	assert.Equal(t, syncengine.StrategyMergeFields, inventory.Strategy)
	assert.Equal(t, syncengine.MergeMin, inventory.MergeRules["quantity"])

	product := engine.Resolution["product"]
	assert.Equal(t, syncengine.StrategySourcePriority, product.Strategy)
	assert.Equal(t, engine.SourcePriority, product.SourcePriority)
}
