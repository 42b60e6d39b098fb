package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "cart and coupon service for the storefront",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply catalog migrations and exit",
				Action: withCatalog(migrateCatalog),
			},
			{
				Name:  "set-stock",
				Usage: "set the stock level of a catalog product",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "product", Required: true, Usage: "product id"},
					&cli.IntFlag{Name: "stock", Required: true, Usage: "units available"},
				},
				Action: withCatalog(setStock),
			},
			{
				Name:  "put-product",
				Usage: "create or replace a catalog product",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "price", Required: true, Usage: "decimal, e.g. 59.90"},
					&cli.IntFlag{Name: "stock", Required: true},
					&cli.StringFlag{Name: "brand"},
					&cli.StringFlag{Name: "image", Usage: "main image URL"},
				},
				Action: withCatalog(putProduct),
			},
			{
				Name:  "put-coupon",
				Usage: "create or replace a coupon",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code", Required: true},
					&cli.StringFlag{Name: "name", Usage: "display name, defaults to the code"},
					&cli.StringFlag{Name: "percent", Required: true, Usage: "discount percent in (0, 100]"},
					&cli.BoolFlag{Name: "inactive", Usage: "store the coupon without making it redeemable"},
				},
				Action: withCatalog(putCoupon),
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCatalog(_ *cli.Context, repo *catalog.Repository) error {
	return repo.RunMigrations()
}

// withCatalog opens the catalog database for a maintenance command.
func withCatalog(fn func(c *cli.Context, repo *catalog.Repository) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		repo, err := catalog.NewRepository(cfg.CatalogDBPath)
		if err != nil {
			return err
		}
		defer repo.Close()

		return fn(c, repo)
	}
}

func setStock(c *cli.Context, repo *catalog.Repository) error {
	if c.Int("stock") < 0 {
		return errors.New("stock must not be negative")
	}
	return repo.SetStock(c.Context, c.Int64("product"), c.Int("stock"))
}

func putProduct(c *cli.Context, repo *catalog.Repository) error {
	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", c.String("price"), err)
	}

	return repo.SaveProduct(c.Context, domain.Product{
		ID:    c.Int64("id"),
		Name:  c.String("name"),
		Price: price,
		Image: c.String("image"),
		Stock: c.Int("stock"),
		Brand: c.String("brand"),
	})
}

func putCoupon(c *cli.Context, repo *catalog.Repository) error {
	percent, err := decimal.NewFromString(c.String("percent"))
	if err != nil {
		return fmt.Errorf("invalid percent %q: %w", c.String("percent"), err)
	}

	name := c.String("name")
	if name == "" {
		name = c.String("code")
	}
	return repo.SaveCoupon(c.Context, domain.Coupon{
		Code:            c.String("code"),
		DisplayName:     name,
		DiscountPercent: percent,
	}, !c.Bool("inactive"))
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RunMigrations(); err != nil {
		return err
	}
	log.Info("catalog ready", zap.String("path", cfg.CatalogDBPath))

	kv, closeKV, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeKV()

	source := catalog.NewGuarded(repo, cfg.BreakerTimeout, log)
	storefront := service.NewStorefront(kv, source, log, service.Options{
		AutoClearDelay:  cfg.CouponAutoClear,
		SessionIdleTTL:  cfg.SessionIdleTTL,
		CleanupInterval: cfg.CleanupInterval,
		HydrateTimeout:  cfg.CartLoadTimeout,
	})
	defer storefront.Close()

	if len(cfg.KafkaBrokers) > 0 {
		// deferred after storefront.Close, so it runs first: the poller must be
		// gone before the storefront stops accepting calls
		shutdownPoller := poller.NewPoller(storefront, log, cfg.KafkaBrokers...).Start(ctx)
		defer shutdownPoller()
		log.Info("checkout poller started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	healthServer, err := startHealthServer(cfg.GRPCHealthPort, log)
	if err != nil {
		return err
	}
	defer healthServer.GracefulStop()

	handler := h.NewHandler(storefront, cfg.RequestTimeout, log)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(handler, cfg.RequestTimeout, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("storefront stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.KV, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		kv, err := storage.OpenMongoKV(ctx, cfg.Mongo())
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to MongoDB",
			zap.String("database", cfg.MongoDBName),
			zap.Duration("cart_expiry", cfg.MongoCartExpiry))
		return kv, func() { _ = kv.Close(context.Background()) }, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedisKV(client, cfg.CartTTL), func() { _ = client.Close() }, nil
	}
}

func startHealthServer(port string, log *zap.Logger) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	go func() {
		log.Info("grpc health listening", zap.String("port", port))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc health server stopped", zap.Error(err))
		}
	}()

	return grpcServer, nil
}
