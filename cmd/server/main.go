// Package main is the entry point for the stregsystem API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stregsystem/internal/domain/achievement"
	"stregsystem/internal/domain/auth"
	"stregsystem/internal/domain/catalog"
	"stregsystem/internal/domain/events"
	"stregsystem/internal/domain/heatmap"
	"stregsystem/internal/domain/kiosk"
	"stregsystem/internal/domain/member"
	"stregsystem/internal/domain/order"
	"stregsystem/internal/domain/payment"
	"stregsystem/internal/domain/physiology"
	"stregsystem/internal/domain/razzia"
	"stregsystem/internal/domain/report"
	"stregsystem/internal/domain/theme"
	v1 "stregsystem/internal/infrastructure/http/v1"
	"stregsystem/internal/infrastructure/mail"
	"stregsystem/internal/infrastructure/storage/postgres"
	"stregsystem/internal/infrastructure/storage/postgres/achievement_repo"
	"stregsystem/internal/infrastructure/storage/postgres/auth_repo"
	"stregsystem/internal/infrastructure/storage/postgres/catalog_repo"
	"stregsystem/internal/infrastructure/storage/postgres/kiosk_repo"
	"stregsystem/internal/infrastructure/storage/postgres/member_repo"
	"stregsystem/internal/infrastructure/storage/postgres/payment_repo"
	"stregsystem/internal/infrastructure/storage/postgres/razzia_repo"
	"stregsystem/internal/infrastructure/storage/postgres/sale_repo"
	"stregsystem/internal/infrastructure/storage/postgres/theme_repo"
	"stregsystem/pkg/logger"
)

func main() {
	// Load .env file if exists (ignore error in production)
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
	log.Info("starting stregsystem server")

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Europe/Copenhagen"))
	if err != nil {
		log.Fatalw("failed to load timezone", "error", err)
	}

	// --- Database connection ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	bus := events.NewBus()

	// --- Repositories ---
	memberRepo := member_repo.NewMemberRepo(txManager)
	signupRepo := member_repo.NewSignupRepo(txManager)
	catalogRepo := catalog_repo.NewCatalogRepo(txManager)
	saleRepo := sale_repo.NewSaleRepo(txManager)
	reportRepo := sale_repo.NewReportRepo(txManager)
	paymentRepo := payment_repo.NewPaymentRepo(txManager)
	mobilePayRepo := payment_repo.NewMobilePaymentRepo(txManager)
	achievementRepo := achievement_repo.NewAchievementRepo(txManager)
	razziaRepo := razzia_repo.NewRazziaRepo(txManager)
	themeRepo := theme_repo.NewThemeRepo(txManager)
	kioskRepo := kiosk_repo.NewKioskRepo(txManager)
	userRepo := auth_repo.NewUserRepo(txManager)
	tokenRepo := auth_repo.NewTokenRepo(txManager)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Services ---
	memberService := member.NewService(memberRepo, signupRepo, txManager, bus)
	catalogService := catalog.NewService(catalogRepo, txManager, loc)
	orderService := order.NewService(saleRepo, memberRepo, catalogRepo, txManager, bus, loc)
	paymentService := payment.NewService(
		paymentRepo, mobilePayRepo, memberRepo, signupRepo,
		saleRepo, catalogRepo, txManager, bus, auditService,
	)

	physioCfg := physiology.DefaultConfig()
	physioService := physiology.NewService(saleRepo, physioCfg)

	reportService := report.NewService(reportRepo, catalogRepo, txManager, loc)
	razziaService := razzia.NewService(razziaRepo, memberRepo)
	heatmapService := heatmap.NewService(saleRepo, loc)
	themeSelector := theme.NewSelector(themeRepo)
	kioskService := kiosk.NewService(kioskRepo)

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(mustEnv("JWT_SECRET")))
	authService := auth.NewService(userRepo, tokenRepo, txManager, jwtService, auth.DefaultServiceConfig())

	// --- Event subscribers ---
	achievementEngine := achievement.NewEngine(achievementRepo, saleRepo, memberRepo, catalogRepo, physioService)
	achievementEngine.Register(bus)

	if getEnv("MAIL_ENABLED", "true") == "true" {
		mailCfg := mail.DefaultConfig()
		mailCfg.Host = getEnv("SMTP_HOST", mailCfg.Host)
		mailCfg.Port = getEnvInt("SMTP_PORT", mailCfg.Port)
		mailCfg.From = getEnv("SMTP_FROM", mailCfg.From)
		mail.NewNotifier(mail.NewSMTPMailer(mailCfg), memberRepo).Register(bus)
	}

	// --- HTTP router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:             log,
		Pool:               pool,
		JWTValidator:       jwtService,
		AuthService:        authService,
		Orders:             orderService,
		Sales:              saleRepo,
		Members:            memberService,
		Catalog:            catalogService,
		CatalogRepo:        catalogRepo,
		Payments:           paymentService,
		Physiology:         physioService,
		Reports:            reportService,
		Razzias:            razziaService,
		Heatmaps:           heatmapService,
		Themes:             themeSelector,
		Kiosk:              kioskService,
		CaffeineCategoryID: int64(getEnvInt("CAFFEINE_CATEGORY_ID", 0)),
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
