// Command checkout-demo drives one checkout initiation against a gateway and
// prints the approval URL a buyer would be handed off to.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tabpay/internal/analytics"
	"github.com/aussiebroadwan/tabpay/pkg/checkout"
	"github.com/aussiebroadwan/tabpay/pkg/paysdk"
)

type config struct {
	Authorization   string // Required: tokenization key or client token
	ReturnURLScheme string // Scheme the host app handles for browser returns
	Amount          string // One-time payment amount
	CurrencyCode    string // Optional currency override
	Vault           bool   // Set up a billing agreement instead
	AnalyticsDB     string // Path to the local analytics queue
	LogLevel        string // debug, info, warn, error
	LogFormat       string // json, text
}

func loadConfig() config {
	return config{
		Authorization:   os.Getenv("TABPAY_AUTHORIZATION"),
		ReturnURLScheme: getEnvOrDefault("TABPAY_RETURN_URL_SCHEME", "com.aussiebroadwan.tabpay.demo"),
		Amount:          getEnvOrDefault("TABPAY_AMOUNT", "10.00"),
		CurrencyCode:    os.Getenv("TABPAY_CURRENCY"),
		Vault:           os.Getenv("TABPAY_VAULT") == "true",
		AnalyticsDB:     getEnvOrDefault("TABPAY_ANALYTICS_DB", "analytics.db"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newLogger(cfg config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "checkout-demo")
	slog.SetDefault(logger)
	return logger
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfg := loadConfig()
	log := newLogger(cfg)

	if cfg.Authorization == "" {
		log.Error("TABPAY_AUTHORIZATION is required")
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("checkout failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, log *slog.Logger) error {
	store, err := analytics.Open(cfg.AnalyticsDB)
	if err != nil {
		return fmt.Errorf("failed to open analytics store: %w", err)
	}
	defer store.Close()

	if err := store.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to migrate analytics store: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := analytics.NewWorker(store, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	client := paysdk.NewClient(cfg.Authorization,
		paysdk.WithReturnURLScheme(cfg.ReturnURLScheme),
		paysdk.WithAnalyticsTransport(analytics.NewQueue(store)),
		paysdk.WithLogger(log),
	)

	initiator := checkout.NewInitiator(client)

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	authReq, err := initiator.InitiateCheckout(reqCtx, checkout.Request{
		Vault:        cfg.Vault,
		Amount:       cfg.Amount,
		CurrencyCode: cfg.CurrencyCode,
		Intent:       checkout.IntentAuthorize,
	})
	if err != nil {
		return err
	}

	log.Info("checkout initiated",
		"pairing_id", authReq.PairingID,
		"client_metadata_id", authReq.ClientMetadataID)
	fmt.Println("approve at:", authReq.ApprovalURL)

	stop()
	<-workerDone
	return nil
}
