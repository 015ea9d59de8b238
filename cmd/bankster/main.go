package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/bankster/internal/adapter/driven/events"
	"github.com/ericfisherdev/bankster/internal/adapter/driven/gateway"
	"github.com/ericfisherdev/bankster/internal/adapter/driven/memory"
	"github.com/ericfisherdev/bankster/internal/adapter/driven/policyfile"
	"github.com/ericfisherdev/bankster/internal/adapter/driven/redisstore"
	sqliteadapter "github.com/ericfisherdev/bankster/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/bankster/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/bankster/internal/adapter/driving/web"
	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/config"
	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// maxGatewayCallsPerRequest bounds the gateway round trips of one wizard
// step: connect, anonymous dialog, mode or medium listing, login, and a
// renewal login with one retry during the setup check. Manual imports lift
// the write deadline themselves.
const maxGatewayCallsPerRequest = 6

// writeTimeout is the server write timeout for a given gateway timeout.
func writeTimeout(gateway time.Duration) time.Duration {
	return maxGatewayCallsPerRequest*gateway + 30*time.Second
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"gateway_url", cfg.GatewayURL,
		"redis", cfg.HasRedis(),
		"auth_validity", cfg.AuthValidity,
		"import_interval", cfg.ImportInterval,
	)
	if cfg.ProductID == "" {
		slog.Warn("BANKSTER_PRODUCT_ID is not set, banks may reject the dialog")
	}
	if cfg.SecretKey == nil {
		slog.Warn("BANKSTER_SECRET_KEY is not set, accounts cannot be stored or read")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and run migrations on the writer connection.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath, "schema_version", version)

	accountStore := sqliteadapter.NewAccountRepo(db, cfg.SecretKey)
	recordStore := sqliteadapter.NewAuthRecordRepo(db)
	transactionStore := sqliteadapter.NewTransactionRepo(db)

	// 4. Classifier policy, hot-reloaded when a policy file is configured.
	policy := application.DefaultPolicy()
	if cfg.PolicyPath != "" {
		if policy, err = policyfile.Load(cfg.PolicyPath); err != nil {
			return err
		}
	}
	policyProvider := application.NewPolicyProvider(policy)
	if cfg.PolicyPath != "" {
		go func() {
			if err := policyfile.Watch(ctx, cfg.PolicyPath, policyProvider, slog.Default()); err != nil {
				slog.Error("policy watcher stopped", "error", err)
			}
		}()
	}

	// 5. Transient setup state and auth events: Redis when configured,
	// in-process otherwise.
	var (
		setupStore driven.SetupStateStore
		publisher  message.Publisher
		subscriber message.Subscriber
	)
	wmLogger := watermill.NewSlogLogger(slog.Default())
	if cfg.HasRedis() {
		redisClient, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		setupStore = redisstore.NewSetupStateStore(redisClient, "")

		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			return err
		}
		subscriber, err = redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        redisClient,
			ConsumerGroup: "bankster-notifier",
		}, wmLogger)
		if err != nil {
			return err
		}
		slog.Info("using redis for setup state and events")
	} else {
		memStore := memory.NewSetupStateStore()
		go memStore.StartSweeper(ctx, time.Minute)
		setupStore = memStore

		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		publisher, subscriber = pubSub, pubSub
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("error closing event publisher", "error", err)
		}
	}()
	eventPublisher := events.NewPublisher(publisher, events.DefaultTopic)

	notifier := events.NewLogNotifier(subscriber, events.DefaultTopic, func(account string) string {
		return application.SetupPath(cfg.BaseURL, account)
	}, slog.Default())
	go func() {
		if err := notifier.Run(ctx); err != nil {
			slog.Error("event notifier stopped", "error", err)
		}
	}()

	// 6. Banking protocol gateway and the session lifecycle core.
	bankClient, err := gateway.NewClient(cfg.GatewayURL, cfg.GatewayTimeout, slog.Default())
	if err != nil {
		return err
	}
	product := application.ProductInfo{Name: cfg.ProductID, Version: cfg.ProductVersion}
	expiry := cfg.ExpiryPolicy()

	sessions := application.NewSessionFactory(bankClient, recordStore, policyProvider, expiry, product, eventPublisher, slog.Default())
	wizard := application.NewSetupWizard(bankClient, recordStore, setupStore, policyProvider, expiry, product, cfg.SetupTTL, slog.Default())
	backends := application.BackendRegistry{
		model.BackendFinTS: application.NewFinTSOpener(sessions, transactionStore, slog.Default()),
	}

	// 7. Background services.
	importSvc := application.NewImportService(accountStore, transactionStore, backends, cfg.BaseURL, cfg.ImportInterval, slog.Default())
	go importSvc.Start(ctx)

	warningSvc := application.NewWarningService(recordStore, eventPublisher, expiry, cfg.WarningInterval, slog.Default())
	go warningSvc.Start(ctx)

	statusSvc := application.NewStatusService(accountStore, recordStore, expiry)

	// 8. HTTP server: JSON API and web GUI on one mux.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(statusSvc, accountStore, importSvc, db, cfg.BaseURL, slog.Default())
	apiHandler.RegisterRoutes(mux)
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(wizard, accountStore, statusSvc, backends, slog.Default()))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout(cfg.GatewayTimeout),
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("bankster started",
		"listen_addr", cfg.ListenAddr,
		"import_interval", cfg.ImportInterval,
		"warning_interval", cfg.WarningInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
