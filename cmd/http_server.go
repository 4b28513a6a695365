package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zura1555/ecommerce/internal"
	"github.com/Zura1555/ecommerce/internal/checkout"
	"github.com/Zura1555/ecommerce/internal/core/events"
	"github.com/Zura1555/ecommerce/internal/order"
	orderpostgres "github.com/Zura1555/ecommerce/internal/order/postgres"
	"github.com/Zura1555/ecommerce/internal/payment"
	paymentpostgres "github.com/Zura1555/ecommerce/internal/payment/postgres"
	"github.com/Zura1555/ecommerce/internal/sepay"
	"github.com/Zura1555/ecommerce/internal/transport"
	"github.com/Zura1555/ecommerce/internal/transport/rest"
	"github.com/Zura1555/ecommerce/internal/transport/swagger"
	"github.com/Zura1555/ecommerce/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle checkout and payment webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config          *internal.Config
	DB              *sqlx.DB
	Router          *chi.Mux
	CheckoutHandler *checkout.Handler
	WebhookHandler  *payment.WebhookHandler
	Logger          *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		deps.Logger.Warn("openapi spec validation failed, swagger UI may be broken", "error", err)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.CheckoutHandler, deps.WebhookHandler, deps.Config.Server.AllowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx connection: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	orderRepo := orderpostgres.NewOrderRepository(gormDB)
	orderService := order.NewService(orderRepo, lg)

	orderEvents := order.NewEventHandler(orderService, lg)
	orderEvents.RegisterEventHandlers(eventBus)

	sepayClient := sepay.NewClient(sepay.Config{
		APIKey:         config.Sepay.APIKey,
		SecretKey:      config.Sepay.SecretKey,
		Sandbox:        config.Sepay.Sandbox,
		StoreDomain:    config.Sepay.StoreDomain,
		WebhookURL:     config.Sepay.WebhookURL,
		RequestTimeout: config.Sepay.RequestTimeout,
		RetryBackoff:   config.Sepay.RetryBackoff,
	}, lg)

	if !sepayClient.Configured() {
		lg.Warn("sepay credentials not configured: payments run in mock mode and webhook signatures are not verified")
	}

	paymentRepo := paymentpostgres.NewPaymentRepository(gormDB)
	paymentService := payment.NewPaymentService(sepayClient, paymentRepo, orderService, eventBus, lg)

	tokenIssuer := checkout.NewOrderTokenIssuer(config.Checkout.OrderTokenSecret, config.Checkout.OrderTokenTTL)
	checkoutService := checkout.NewService(orderService, paymentService, tokenIssuer, lg)

	baseHandler := transport.NewBaseHandler(lg)
	checkoutHandler := checkout.NewHandler(baseHandler, checkoutService, lg)
	webhookHandler := payment.NewWebhookHandler(baseHandler, paymentService, sepayClient.WebhookSecret(), lg)

	return &Dependencies{
		Config:          config,
		Logger:          lg,
		DB:              db,
		Router:          chi.NewRouter(),
		CheckoutHandler: checkoutHandler,
		WebhookHandler:  webhookHandler,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
