// Command bankster-import imports transactions of one or all registered
// accounts once and exits.
//
// Usage:
//
//	bankster-import [-from YYYY-MM-DD] [account]
//
// The exit code is 0 when every account was imported or skipped because it
// needs re-authentication, and 1 when any account failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
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
	"github.com/ericfisherdev/bankster/internal/adapter/driven/policyfile"
	"github.com/ericfisherdev/bankster/internal/adapter/driven/redisstore"
	sqliteadapter "github.com/ericfisherdev/bankster/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/config"
	"github.com/ericfisherdev/bankster/internal/domain/model"
)

func main() {
	os.Exit(run())
}

func run() int {
	fromFlag := flag.String("from", "", "import transactions booked on or after this date (YYYY-MM-DD)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-from YYYY-MM-DD] [account]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 1 {
		flag.Usage()
		return 2
	}
	account := flag.Arg(0)

	from, err := parseFrom(*fromFlag)
	if err != nil {
		slog.Error("invalid -from", "error", err)
		return 2
	}

	results, err := importOnce(account, from)
	if err != nil {
		slog.Error("import failed", "error", err)
		return 1
	}
	return exitCode(results)
}

// parseFrom parses the -from flag in local time; an empty value yields nil.
func parseFrom(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD, got %q", raw)
	}
	return &t, nil
}

// exitCode is 1 when any account failed and 0 otherwise.
func exitCode(results []model.ImportResult) int {
	for _, res := range results {
		if res.Outcome == model.OutcomeFailed {
			return 1
		}
	}
	return 0
}

func importOnce(account string, from *time.Time) ([]model.ImportResult, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.ProductID == "" {
		slog.Warn("BANKSTER_PRODUCT_ID is not set, banks may reject the dialog")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if _, err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return nil, err
	}

	accountStore := sqliteadapter.NewAccountRepo(db, cfg.SecretKey)
	recordStore := sqliteadapter.NewAuthRecordRepo(db)
	transactionStore := sqliteadapter.NewTransactionRepo(db)

	policy := application.DefaultPolicy()
	if cfg.PolicyPath != "" {
		if policy, err = policyfile.Load(cfg.PolicyPath); err != nil {
			return nil, err
		}
	}

	// Renewal events go to the server's stream when Redis is configured and
	// are logged in-process otherwise.
	var publisher message.Publisher
	wmLogger := watermill.NewSlogLogger(slog.Default())
	if cfg.HasRedis() {
		redisClient, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		defer func() { _ = redisClient.Close() }()
		if publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger); err != nil {
			return nil, err
		}
	} else {
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		notifyCtx, cancelNotify := context.WithCancel(ctx)
		defer cancelNotify()
		notifier := events.NewLogNotifier(pubSub, events.DefaultTopic, func(account string) string {
			return application.SetupPath(cfg.BaseURL, account)
		}, slog.Default())
		go func() {
			if err := notifier.Run(notifyCtx); err != nil {
				slog.Error("event notifier stopped", "error", err)
			}
		}()
		publisher = pubSub
	}
	defer func() { _ = publisher.Close() }()

	bankClient, err := gateway.NewClient(cfg.GatewayURL, cfg.GatewayTimeout, slog.Default())
	if err != nil {
		return nil, err
	}

	sessions := application.NewSessionFactory(
		bankClient,
		recordStore,
		application.NewPolicyProvider(policy),
		cfg.ExpiryPolicy(),
		application.ProductInfo{Name: cfg.ProductID, Version: cfg.ProductVersion},
		events.NewPublisher(publisher, events.DefaultTopic),
		slog.Default(),
	)
	backends := application.BackendRegistry{
		model.BackendFinTS: application.NewFinTSOpener(sessions, transactionStore, slog.Default()),
	}

	importSvc := application.NewImportService(accountStore, transactionStore, backends, cfg.BaseURL, 0, slog.Default())
	return importSvc.Import(ctx, account, from)
}
