package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "local")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "10", cfg.ShippingCost.String())
	assert.Equal(t, CatalogLocal, cfg.CatalogSource)
	assert.Equal(t, SnapshotRedis, cfg.SnapshotBackend)
	assert.Equal(t, 5*time.Second, cfg.StorefrontTimeout)
	assert.Equal(t, "2024-01", cfg.StorefrontAPIVersion)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.MongoServerSelectionTimeout)
	assert.Equal(t, 100, cfg.MongoMaxPoolSize)
	assert.Equal(t, 10, cfg.MongoMinPoolSize)
	assert.Equal(t, 30*time.Minute, cfg.CartIdleTTL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "REMOTE")
	t.Setenv("SHOPIFY_DOMAIN", "shop.example.com")
	t.Setenv("SHOPIFY_TOKEN", "token")
	t.Setenv("SHOPIFY_TIMEOUT", "2s")
	t.Setenv("SHIPPING_COST", "4.95")
	t.Setenv("SNAPSHOT_BACKEND", "mongo")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("MONGO_SERVER_SELECTION_TIMEOUT", "250ms")
	t.Setenv("MONGO_MAX_POOL_SIZE", "20")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, CatalogRemote, cfg.CatalogSource)
	assert.Equal(t, 2*time.Second, cfg.StorefrontTimeout)
	assert.Equal(t, "4.95", cfg.ShippingCost.String())
	assert.Equal(t, SnapshotMongo, cfg.SnapshotBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, 250*time.Millisecond, cfg.MongoServerSelectionTimeout)
	assert.Equal(t, 20, cfg.MongoMaxPoolSize)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CATALOG_SOURCE=local\nHTTP_PORT=9000\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	// registered for restore, then unset so the file can fill them in
	for _, k := range []string{"HTTP_PORT", "CATALOG_SOURCE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "local")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"remote without credentials", map[string]string{"CATALOG_SOURCE": "remote"}},
		{"unknown catalog source", map[string]string{"CATALOG_SOURCE": "ftp"}},
		{"unknown snapshot backend", map[string]string{"CATALOG_SOURCE": "local", "SNAPSHOT_BACKEND": "disk"}},
		{"bad shipping cost", map[string]string{"CATALOG_SOURCE": "local", "SHIPPING_COST": "ten"}},
		{"negative shipping cost", map[string]string{"CATALOG_SOURCE": "local", "SHIPPING_COST": "-1"}},
		{"mongo min pool above max", map[string]string{"CATALOG_SOURCE": "local", "MONGO_MIN_POOL_SIZE": "20", "MONGO_MAX_POOL_SIZE": "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHOPIFY_DOMAIN", "")
			t.Setenv("SHOPIFY_TOKEN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")

			assert.Error(t, err)
		})
	}
}
