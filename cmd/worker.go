package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zura1555/ecommerce/internal"
	"github.com/Zura1555/ecommerce/internal/core/events"
	"github.com/Zura1555/ecommerce/internal/order"
	orderpostgres "github.com/Zura1555/ecommerce/internal/order/postgres"
	"github.com/Zura1555/ecommerce/internal/payment"
	paymentpostgres "github.com/Zura1555/ecommerce/internal/payment/postgres"
	"github.com/Zura1555/ecommerce/internal/sepay"
	"github.com/Zura1555/ecommerce/pkg/logger"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers: the pending-payment expiry sweeper and the sandbox webhook simulator`,
}

var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Start the payment expiry sweeper",
	Long:  `Periodically expires payment attempts that stayed pending past the configured age`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweeper()
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Deliver a signed sandbox webhook callback",
	Long:  `Enqueue a sandbox gateway callback for an order; the simulator signs the payload and posts it to the configured webhook URL`,
	Run: func(cmd *cobra.Command, args []string) {
		runSimulate()
	},
}

var (
	sweepInterval time.Duration
	sweepMaxAge   time.Duration
	sweepLimit    int

	simOrderID string
	simTxnID   string
	simAmount  int64
	simStatus  string
	simReason  string
)

func init() {
	sweeperCmd.Flags().DurationVar(&sweepInterval, "interval", time.Minute, "Sweep interval")
	sweeperCmd.Flags().DurationVar(&sweepMaxAge, "max-age", 15*time.Minute, "Age after which a pending payment expires")
	sweeperCmd.Flags().IntVar(&sweepLimit, "limit", 100, "Max payments expired per sweep")

	simulateCmd.Flags().StringVar(&simOrderID, "order-id", "", "Order ID to deliver the callback for (required)")
	simulateCmd.Flags().StringVar(&simTxnID, "transaction-id", "", "Gateway transaction ID (defaults to a SIM- id)")
	simulateCmd.Flags().Int64Var(&simAmount, "amount", 0, "Amount in VND")
	simulateCmd.Flags().StringVar(&simStatus, "status", "", "Forced status: success, failed or expired (random when empty)")
	simulateCmd.Flags().StringVar(&simReason, "reason", "", "Failure reason for failed callbacks")
	_ = simulateCmd.MarkFlagRequired("order-id")

	workerCmd.AddCommand(sweeperCmd)
	workerCmd.AddCommand(simulateCmd)
}

func startSweeper() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gorm over pgx connection: %v\n", err)
		os.Exit(1)
	}

	eventBus := events.NewEventBus(lg)

	orderService := order.NewService(orderpostgres.NewOrderRepository(gormDB), lg)
	order.NewEventHandler(orderService, lg).RegisterEventHandlers(eventBus)

	sepayClient := sepay.NewClient(sepay.Config{
		APIKey:         config.Sepay.APIKey,
		SecretKey:      config.Sepay.SecretKey,
		Sandbox:        config.Sepay.Sandbox,
		StoreDomain:    config.Sepay.StoreDomain,
		WebhookURL:     config.Sepay.WebhookURL,
		RequestTimeout: config.Sepay.RequestTimeout,
		RetryBackoff:   config.Sepay.RetryBackoff,
	}, lg)

	paymentService := payment.NewPaymentService(sepayClient, paymentpostgres.NewPaymentRepository(gormDB), orderService, eventBus, lg)

	lg.Info("expiry sweeper started",
		"interval", sweepInterval,
		"max_age", sweepMaxAge,
		"limit", sweepLimit)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := internal.WithTimeout(context.Background(), 30*time.Second)
			expired, err := paymentService.ExpireStalePayments(ctx, sweepMaxAge, sweepLimit)
			cancel()
			if err != nil {
				lg.Error("sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				lg.Info("expired stale payments", "count", expired)
			}
		case sig := <-sigChan:
			lg.Info("received signal, shutting down sweeper", "signal", sig)
			return
		}
	}
}

func runSimulate() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	webhookURL := config.Sepay.WebhookURL
	if webhookURL == "" {
		webhookURL = fmt.Sprintf("%s/api/v1/sepay/webhook", config.Sepay.StoreDomain)
	}

	sim := sepay.NewSimulator(sepay.SimulatorConfig{
		WebhookURL: webhookURL,
		SecretKey:  config.Sepay.SecretKey,
		MinDelay:   100 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
	}, lg)

	txnID := simTxnID
	if txnID == "" {
		txnID = fmt.Sprintf("SIM-%d", time.Now().UnixMilli())
	}

	if !sim.Enqueue(sepay.CallbackJob{
		OrderID:       simOrderID,
		TransactionID: txnID,
		Amount:        simAmount,
		Status:        simStatus,
		Reason:        simReason,
	}) {
		fmt.Fprintln(os.Stderr, "Failed to enqueue callback job")
		os.Exit(1)
	}

	lg.Info("callback enqueued", "order_id", simOrderID, "transaction_id", txnID, "webhook_url", webhookURL)

	// give the worker pool time to deliver, then drain
	time.Sleep(time.Second)
	sim.Shutdown()
}
