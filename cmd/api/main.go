package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/saphire-ai/backend/internal/config"
	"github.com/saphire-ai/backend/internal/handler"
	"github.com/saphire-ai/backend/internal/logging"
	"github.com/saphire-ai/backend/internal/middleware"
	"github.com/saphire-ai/backend/internal/paystack"
	"github.com/saphire-ai/backend/internal/repository"
	"github.com/saphire-ai/backend/internal/service/billing"
	"github.com/saphire-ai/backend/internal/service/ledger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("saphire-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	accounts := repository.NewAccountRepository(db)
	transactions := repository.NewTransactionRepository(db)
	charges := repository.NewChargeRepository(db)
	packages := repository.NewPackageRepository(db)
	webhookEvents := repository.NewWebhookEventRepository(db)

	gateway := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)

	creditSvc := ledger.NewService(accounts, transactions, db)
	billingSvc := billing.NewService(charges, packages, webhookEvents, creditSvc, gateway, db, cfg.PaymentCallbackURL)

	jwtExpiry := time.Duration(cfg.JWTExpiryH) * time.Hour
	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret, jwtExpiry)
	userHandler := handler.NewUserHandler(users)
	creditHandler := handler.NewCreditHandler(creditSvc)
	paymentHandler := handler.NewPaymentHandler(billingSvc, users, creditSvc)
	webhookHandler := handler.NewWebhookHandler(billingSvc, cfg.PaystackSecretKey)
	healthHandler := handler.NewHealthHandler(db)

	authed := middleware.Auth(cfg.JWTSecret)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/users/me", authed(http.HandlerFunc(userHandler.Me)))

	mux.Handle("GET /api/v1/credits/balance", authed(http.HandlerFunc(creditHandler.Balance)))
	mux.Handle("GET /api/v1/credits/history", authed(http.HandlerFunc(creditHandler.History)))
	mux.Handle("GET /api/v1/credits/summary", authed(http.HandlerFunc(creditHandler.Summary)))
	mux.HandleFunc("GET /api/v1/credits/costs", creditHandler.Costs)
	mux.Handle("POST /api/v1/credits/use", authed(http.HandlerFunc(creditHandler.Use)))

	mux.HandleFunc("GET /api/v1/payments/packages", paymentHandler.ListPackages)
	mux.Handle("POST /api/v1/payments/initialize", authed(http.HandlerFunc(paymentHandler.Initialize)))
	mux.Handle("GET /api/v1/payments/verify/{reference}", authed(http.HandlerFunc(paymentHandler.Verify)))
	mux.Handle("GET /api/v1/payments/history", authed(http.HandlerFunc(paymentHandler.History)))
	mux.Handle("GET /api/v1/payments/summary", authed(http.HandlerFunc(paymentHandler.Summary)))
	mux.HandleFunc("POST /api/v1/payments/webhook", webhookHandler.ReceivePaystackWebhook)

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
