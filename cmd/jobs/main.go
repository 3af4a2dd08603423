// Package main provides the periodic maintenance jobs that production
// runs from cron: mobile-payment import, auto-approval, auto-signup
// and theme loading.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"stregsystem/internal/domain/events"
	"stregsystem/internal/domain/payment"
	"stregsystem/internal/domain/theme"
	"stregsystem/internal/infrastructure/storage/postgres"
	"stregsystem/internal/infrastructure/storage/postgres/catalog_repo"
	"stregsystem/internal/infrastructure/storage/postgres/member_repo"
	"stregsystem/internal/infrastructure/storage/postgres/payment_repo"
	"stregsystem/internal/infrastructure/storage/postgres/sale_repo"
	"stregsystem/internal/infrastructure/storage/postgres/theme_repo"
	"stregsystem/internal/infrastructure/vipps"
	"stregsystem/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	app, err := newApp(ctx, log)
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}
	defer app.pool.Close()

	switch os.Args[1] {
	case "importmobilepay":
		app.importMobilePay(ctx)
	case "autopayment":
		app.autoPayment(ctx)
	case "autosignup":
		app.autoSignup(ctx)
	case "loadthemes":
		app.loadThemes(ctx)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Stregsystem maintenance jobs

Usage:
  jobs importmobilepay [days_back]   fetch MobilePay transactions and record them
  jobs autopayment                   approve and commit member-matched payments
  jobs autosignup                    complete paid signups
  jobs loadthemes [file]             replace the theme table from a JSON fixture
                                     (default fixtures/themes.json)`)
}

// app bundles the wiring the individual jobs share.
type app struct {
	log      *logger.Logger
	pool     *postgres.Pool
	payments *payment.Service
	themes   *theme.Loader
}

func newApp(ctx context.Context, log *logger.Logger) (*app, error) {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	txManager := postgres.NewTxManager(pool)
	bus := events.NewBus()

	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		pool.Close()
		return nil, err
	}

	payments := payment.NewService(
		payment_repo.NewPaymentRepo(txManager),
		payment_repo.NewMobilePaymentRepo(txManager),
		member_repo.NewMemberRepo(txManager),
		member_repo.NewSignupRepo(txManager),
		sale_repo.NewSaleRepo(txManager),
		catalog_repo.NewCatalogRepo(txManager),
		txManager, bus, audit,
	)

	return &app{
		log:      log,
		pool:     pool,
		payments: payments,
		themes:   theme.NewLoader(theme_repo.NewThemeRepo(txManager), txManager),
	}, nil
}

func (a *app) importMobilePay(ctx context.Context) {
	daysBack := vipps.DefaultDaysBack
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			a.log.Fatalw("invalid days_back argument", "value", os.Args[2])
		}
		daysBack = n
	}

	store := vipps.NewTokenStore(getEnv("VIPPS_TOKEN_FILE", ".mobilepaytoken"))
	importer := vipps.NewImporter(vipps.NewClient(store), a.payments)

	imported, err := importer.Run(ctx, daysBack)
	if err != nil {
		a.log.Fatalw("mobilepay import failed", "error", err)
	}
	a.log.Infow("mobilepay import finished", "imported", imported, "days_back", daysBack)

	// Imports are followed by matching and commit so a single cron
	// entry keeps balances current.
	a.autoPayment(ctx)
	a.autoSignup(ctx)
}

func (a *app) autoPayment(ctx context.Context) {
	approved, err := a.payments.AutoApprove(ctx)
	if err != nil {
		a.log.Fatalw("auto-approval failed", "error", err)
	}

	committed, err := a.payments.CommitApproved(ctx, "autopayment")
	if err != nil {
		a.log.Fatalw("payment commit failed", "error", err)
	}
	a.log.Infow("autopayment finished", "approved", approved, "committed", committed)
}

func (a *app) autoSignup(ctx context.Context) {
	completed, err := a.payments.AutoSignup(ctx)
	if err != nil {
		a.log.Fatalw("auto-signup failed", "error", err)
	}
	a.log.Infow("autosignup finished", "completed", completed)
}

func (a *app) loadThemes(ctx context.Context) {
	path := "fixtures/themes.json"
	if len(os.Args) > 2 {
		path = os.Args[2]
	}

	count, err := a.themes.LoadFile(ctx, path)
	if err != nil {
		a.log.Fatalw("theme load failed", "error", err)
	}
	a.log.Infow("themes loaded", "count", count)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
