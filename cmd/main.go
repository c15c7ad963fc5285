package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	c "github.com/fjod/go_order/internal/cache"
	"github.com/fjod/go_order/internal/cart"
	"github.com/fjod/go_order/internal/checkout"
	"github.com/fjod/go_order/internal/client"
	"github.com/fjod/go_order/internal/config"
	"github.com/fjod/go_order/internal/domain"
	h "github.com/fjod/go_order/internal/http"
	"github.com/fjod/go_order/internal/outbox"
	"github.com/fjod/go_order/internal/poller"
	"github.com/fjod/go_order/internal/publisher"
	"github.com/fjod/go_order/internal/repository"
	s "github.com/fjod/go_order/internal/service"
	"github.com/fjod/go_order/pkg/circuitbreaker"
	"github.com/fjod/go_order/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "ordering-client"})
	slog.SetDefault(log)
	log.Info("ordering client starting", "cart_backend", cfg.CartBackend, "backend_url", cfg.BackendURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	states, closeStates, err := openCartStates(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open cart storage", "error", err)
		os.Exit(1)
	}
	defer closeStates()

	// Backend clients share one transport and breaker
	breaker := circuitbreaker.DefaultConfig("backend")
	breaker.ConsecutiveFailures = cfg.BreakerFailures
	breaker.OpenTimeout = cfg.BreakerOpenTimeout
	backend, err := client.New(client.Config{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.BackendTimeout,
		UserAgent: "ordering-client/1",
		Breaker:   breaker,
	}, log)
	if err != nil {
		log.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}
	sessions := client.NewSessionClient(backend)
	orders := client.NewOrderClient(backend)
	payments := client.NewPaymentClient(backend)
	sheet := client.NewPaymentSheetClient(backend, cfg.SheetPollInterval)
	menu := client.NewMenuClient(backend)

	// Outbox for orphaned orders and placed-order events
	var outboxRepo *outbox.Repository
	if cfg.OutboxEnabled {
		creds := &outbox.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.OutboxMigrations,
		}
		outboxRepo, err = outbox.NewRepository(creds, outbox.Topics{
			OrderEvents:  cfg.TopicOrderEvents,
			OrderOrphans: cfg.TopicOrderOrphans,
		})
		if err != nil {
			log.Error("failed to connect to outbox database", "error", err)
			os.Exit(1)
		}
		defer outboxRepo.Close()

		if err := outboxRepo.RunMigrations(creds); err != nil {
			log.Error("failed to run outbox migrations", "error", err)
			os.Exit(1)
		}
		log.Info("outbox migrations completed")
	}

	var wg sync.WaitGroup
	carts := make(map[domain.Channel]*cart.Store, 2)
	sagas := make(map[domain.Channel]h.CheckoutRunner, 2)
	var syncers []*cart.Syncer

	for _, channel := range []domain.Channel{domain.ChannelDineIn, domain.ChannelDelivery} {
		store := cart.NewStore(channel, cfg.OwnerID)
		syncer := cart.NewSyncer(store, states, cfg.CartSaveTimeout, log)
		if err := syncer.Restore(ctx); err != nil {
			log.Error("failed to restore cart, starting empty", "channel", channel, "error", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			syncer.Run(ctx)
		}()

		deps := checkout.Dependencies{
			Cart:     store,
			Orders:   orders,
			Payments: payments,
			Sheet:    sheet,
		}
		if channel == domain.ChannelDineIn {
			deps.Sessions = sessions
		}
		if outboxRepo != nil {
			deps.Orphans = outboxRepo
			deps.Events = outboxRepo
		}
		saga, err := checkout.NewSaga(checkout.Config{
			DefaultPaymentMethod: cfg.DefaultPayment,
			CompensationTimeout:  cfg.CompensationTimeout,
			RecordTimeout:        checkout.DefaultConfig().RecordTimeout,
		}, deps, log)
		if err != nil {
			log.Error("failed to create checkout", "channel", channel, "error", err)
			os.Exit(1)
		}

		carts[channel] = store
		sagas[channel] = saga
		syncers = append(syncers, syncer)
	}

	if outboxRepo != nil {
		pub := publisher.NewOutboxPoller(outboxRepo, log, cfg.KafkaBrokers...)
		defer pub.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub.Run(ctx)
		}()

		if cfg.ReconcilerEnabled {
			rec := poller.NewReconciler(orders, log, cfg.TopicOrderOrphans, cfg.ReconcilerGroupID, cfg.KafkaBrokers...)
			defer rec.Close()
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec.Run(ctx)
			}()
		}
	}

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	},
		h.NewCartHandler(carts, menu, cfg.RequestTimeout),
		h.NewCheckoutHandler(sagas, sessions, cfg.CheckoutTimeout),
		log,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.CheckoutTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("http server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	wg.Wait()

	for _, syncer := range syncers {
		if err := syncer.Flush(shutdownCtx); err != nil {
			log.Error("failed to flush cart", "error", err)
		}
	}
	log.Info("ordering client stopped")
}

// openCartStates picks the durable cart backend and, when Redis is
// configured, puts the read-through cache in front of it.
func openCartStates(ctx context.Context, cfg *config.Config, log *slog.Logger) (cart.StateStore, func(), error) {
	var (
		repo    repository.CartStateRepository
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.CartBackend {
	case config.BackendMongo:
		mongoRepo, disconnect, err := repository.OpenMongoCartStore(ctx, repository.MongoOptions{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDBName,
			AppName:  "go_order",
		})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = disconnect(context.Background()) })
		repo = mongoRepo
		log.Info("connected to MongoDB", "database", cfg.MongoDBName)
	default:
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := repository.RunSQLiteMigrations(db, cfg.SQLiteMigrationsPath); err != nil {
			closeAll()
			return nil, nil, err
		}
		repo = repository.NewSQLiteRepository(db)
		log.Info("opened SQLite cart store", "path", cfg.SQLitePath)
	}

	if cfg.RedisAddr == "" {
		return repo, closeAll, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	closers = append(closers, func() { _ = redisClient.Close() })
	if err := redisClient.Ping(ctx).Err(); err != nil {
		closeAll()
		return nil, nil, err
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	return s.NewCartStateService(repo, c.NewRedisCache(redisClient, cfg.CacheTTL), log), closeAll, nil
}
