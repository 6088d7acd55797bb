package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/address"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cart/storage"
	"github.com/fjod/go_storefront/internal/catalog"
	catalogsqlite "github.com/fjod/go_storefront/internal/catalog/sqlite"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/commerce"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/consumer"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/fjod/go_storefront/internal/publisher"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/fjod/go_storefront/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Service: "storefront",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})
	log.Info("storefront starting", "catalog", cfg.CatalogSource, "snapshots", cfg.SnapshotBackend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewServerMetrics()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	redisOK := redisClient.Ping(ctx).Err() == nil
	if redisOK {
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	} else {
		log.Warn("redis unavailable, catalog cache disabled", "addr", cfg.RedisAddr)
	}

	snapshots, closeSnapshots, err := openSnapshotStorage(ctx, cfg, redisClient, redisOK)
	if err != nil {
		return err
	}
	defer closeSnapshots()
	carts := cart.NewManager(snapshots, log.With("component", "cart"), cart.WithIdleTTL(cfg.CartIdleTTL))

	var platform *commerce.Client
	if cfg.StorefrontDomain != "" && cfg.StorefrontToken != "" {
		platform, err = commerce.NewClient(commerce.Config{
			Domain:     cfg.StorefrontDomain,
			Token:      cfg.StorefrontToken,
			APIVersion: cfg.StorefrontAPIVersion,
			Timeout:    cfg.StorefrontTimeout,
		}, log.With("component", "commerce"))
		if err != nil {
			return fmt.Errorf("failed to create storefront client: %w", err)
		}
	}

	products, closeCatalog, err := openCatalog(cfg, platform)
	if err != nil {
		return err
	}
	defer closeCatalog()
	if redisOK {
		products = catalog.NewCachedCatalog(products, redisClient, cfg.CatalogCacheTTL, log.With("component", "catalog"))
	}

	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		SSLMode:           cfg.DBSSLMode,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(creds); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database migrations completed")

	var client checkout.PlatformClient = offlinePlatform{}
	if platform != nil {
		client = platform
	} else {
		log.Warn("storefront credentials missing, checkout will report unavailable")
	}
	breakerSettings := circuitbreaker.DefaultSettings("checkout-create")
	breakerSettings.Logger = log
	initiator := checkout.NewInitiator(
		client,
		circuitbreaker.New[*commerce.CheckoutResult](breakerSettings),
		cfg.StorefrontTimeout,
		log.With("component", "initiator"),
	)
	checkoutService := checkout.NewService(
		repo,
		carts,
		pricing.NewCalculator(cfg.ShippingCost),
		initiator,
		m,
		log.With("component", "checkout"),
	)

	router := h.NewRouter(h.RouterConfig{
		Cart:           h.NewCartHandler(carts, products, cfg.RequestTimeout),
		Products:       h.NewProductHandler(products, cfg.RequestTimeout),
		Checkout:       h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		Address:        h.NewAddressHandler(address.NewService(repo), cfg.RequestTimeout),
		Metrics:        m,
		Ping:           repo.Ping,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.KafkaBrokers...),
		publisher.DefaultConfig(), log.With("component", "outbox"))
	handoffs := consumer.NewHandoffConsumer(consumer.NewKafkaReader(publisher.HandoffTopic, cfg.KafkaBrokers...),
		carts, log.With("component", "handoff-consumer"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer poller.Close()
		return poller.Run(gctx)
	})
	g.Go(func() error {
		defer handoffs.Close()
		return handoffs.Run(gctx)
	})

	err = g.Wait()
	log.Info("storefront stopped")
	return err
}

func openSnapshotStorage(ctx context.Context, cfg config.Config, redisClient *redis.Client, redisOK bool) (storage.SnapshotStorage, func(), error) {
	switch cfg.SnapshotBackend {
	case config.SnapshotRedis:
		if !redisOK {
			return nil, nil, fmt.Errorf("redis snapshot backend unavailable at %s", cfg.RedisAddr)
		}
		return storage.NewRedisStorage(redisClient), func() {}, nil
	case config.SnapshotMongo:
		db, err := storage.ConnectMongo(ctx, storage.MongoOptions{
			URI:                    cfg.MongoURI,
			Database:               cfg.MongoDBName,
			ConnectTimeout:         cfg.MongoConnectTimeout,
			ServerSelectionTimeout: cfg.MongoServerSelectionTimeout,
			MaxPoolSize:            uint64(cfg.MongoMaxPoolSize),
			MinPoolSize:            uint64(cfg.MongoMinPoolSize),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		st := storage.NewMongoStorage(db)
		if err := st.CreateIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create snapshot indexes: %w", err)
		}
		return st, func() {
			_ = db.Client().Disconnect(context.Background())
		}, nil
	default:
		return storage.NewMemoryStorage(), func() {}, nil
	}
}

func openCatalog(cfg config.Config, platform *commerce.Client) (catalog.Catalog, func(), error) {
	if cfg.CatalogSource == config.CatalogRemote {
		return platform, func() {}, nil
	}

	repo, err := catalogsqlite.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local catalog: %w", err)
	}
	if err := repo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("failed to migrate local catalog: %w", err)
	}
	return repo, func() { _ = repo.Close() }, nil
}

// offlinePlatform stands in for the platform when no credentials are configured.
type offlinePlatform struct{}

func (offlinePlatform) CreateCheckout(context.Context, commerce.CheckoutInput) (*commerce.CheckoutResult, error) {
	return nil, fmt.Errorf("%w: storefront credentials not configured", commerce.ErrUnavailable)
}
