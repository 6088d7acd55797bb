package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	CatalogRemote = "remote"
	CatalogLocal  = "local"

	SnapshotRedis  = "redis"
	SnapshotMongo  = "mongo"
	SnapshotMemory = "memory"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort        int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	ShippingCost decimal.Decimal

	CatalogSource         string
	CatalogCacheTTL       time.Duration
	CatalogDBPath         string
	CatalogMigrationsPath string

	SnapshotBackend string
	CartIdleTTL     time.Duration

	StorefrontDomain     string
	StorefrontToken      string
	StorefrontAPIVersion string
	StorefrontTimeout    time.Duration

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string

	MongoURI                    string
	MongoDBName                 string
	MongoConnectTimeout         time.Duration
	MongoServerSelectionTimeout time.Duration
	MongoMaxPoolSize            int
	MongoMinPoolSize            int

	KafkaBrokers []string
}

// Load reads the environment. Values from envFile fill in variables that are
// not already set; a missing file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	shipping, err := decimal.NewFromString(getEnv("SHIPPING_COST", "10.00"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SHIPPING_COST: %w", err)
	}

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		ShippingCost: shipping,

		CatalogSource:         strings.ToLower(getEnv("CATALOG_SOURCE", CatalogRemote)),
		CatalogCacheTTL:       getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "file:catalog?mode=memory&cache=shared"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/catalog/sqlite/migrations"),

		SnapshotBackend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", SnapshotRedis)),
		CartIdleTTL:     getEnvDuration("CART_IDLE_TTL", 30*time.Minute),

		StorefrontDomain:     getEnv("SHOPIFY_DOMAIN", ""),
		StorefrontToken:      getEnv("SHOPIFY_TOKEN", ""),
		StorefrontAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-01"),
		StorefrontTimeout:    getEnvDuration("SHOPIFY_TIMEOUT", 5*time.Second),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnvInt("DB_PORT", 5432),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "storefront"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MongoURI:                    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:                 getEnv("MONGO_DB_NAME", "storefront"),
		MongoConnectTimeout:         getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		MongoServerSelectionTimeout: getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		MongoMaxPoolSize:            getEnvInt("MONGO_MAX_POOL_SIZE", 100),
		MongoMinPoolSize:            getEnvInt("MONGO_MIN_POOL_SIZE", 10),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.CatalogSource {
	case CatalogRemote:
		if c.StorefrontDomain == "" || c.StorefrontToken == "" {
			return errors.New("SHOPIFY_DOMAIN and SHOPIFY_TOKEN are required for the remote catalog")
		}
	case CatalogLocal:
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}

	switch c.SnapshotBackend {
	case SnapshotRedis, SnapshotMongo, SnapshotMemory:
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q", c.SnapshotBackend)
	}

	if c.MongoMinPoolSize < 0 || c.MongoMaxPoolSize < 1 || c.MongoMinPoolSize > c.MongoMaxPoolSize {
		return fmt.Errorf("invalid mongo pool sizes min=%d max=%d", c.MongoMinPoolSize, c.MongoMaxPoolSize)
	}

	if c.ShippingCost.IsNegative() {
		return errors.New("SHIPPING_COST must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
