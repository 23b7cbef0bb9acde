package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paysim/internal/config"
	"paysim/internal/generator"
	"paysim/internal/helpers/logs"
	"paysim/internal/helpers/random"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trafficgen",
		Short:   "Drive a weighted mix of payment traffic against the payment service",
		Version: Version,
		RunE:    run,
	}
	cmd.Flags().String("url", "", "Payment service base URL (PAYMENT_SERVICE_URL)")
	cmd.Flags().Int("rpm", 0, "Requests per minute (REQUESTS_PER_MINUTE)")
	cmd.Flags().Bool("forever", false, "Run until interrupted (RUN_FOREVER)")
	cmd.Flags().Int("minutes", 0, "Run duration in minutes (DURATION_MINUTES)")
	cmd.Flags().Uint64("seed", 0, "Seed for reproducible traffic (RANDOM_SEED)")
	cmd.Flags().String("log-level", "", "Log level (LOG_LEVEL)")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadGenerator()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logs.NewLogger(logs.Options{Service: "traffic-generator", Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	emitter := logs.NewEmitter(logger)
	defer emitter.Sync()

	duration := cfg.Duration
	if cfg.RunForever {
		duration = 0
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := generator.New(
		generator.NewHTTPClient(cfg.PaymentServiceURL, nil, cfg.RequestTimeout),
		random.New(cfg.RandomSeed),
		emitter,
		generator.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
			Duration:          duration,
			HealthInterval:    cfg.HealthInterval,
		},
	)

	emitter.Info(ctx, "generator_configured", "Traffic generator configured",
		zap.String("target", cfg.PaymentServiceURL),
		zap.Bool("run_forever", cfg.RunForever),
		zap.Bool("seeded", cfg.RandomSeed != nil),
	)
	_, err = gen.Run(ctx)
	return err
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Generator) error {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.PaymentServiceURL, _ = flags.GetString("url")
	}
	if flags.Changed("rpm") {
		cfg.RequestsPerMinute, _ = flags.GetInt("rpm")
	}
	if flags.Changed("forever") {
		cfg.RunForever, _ = flags.GetBool("forever")
	}
	if flags.Changed("minutes") {
		minutes, _ := flags.GetInt("minutes")
		cfg.Duration = time.Duration(minutes) * time.Minute
	}
	if flags.Changed("seed") {
		seed, err := flags.GetUint64("seed")
		if err != nil {
			return err
		}
		cfg.RandomSeed = &seed
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	return nil
}
