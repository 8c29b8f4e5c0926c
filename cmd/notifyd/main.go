package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/booking/internal/bookingd"
	"github.com/MarkoPoloResearchLab/booking/internal/notify"
	"github.com/MarkoPoloResearchLab/booking/internal/store/gormstore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagAMQPURL     = "amqp-url"
	flagQueue       = "queue"
	flagPrefetch    = "prefetch"
	flagMinBackoff  = "min-backoff"
	flagMaxBackoff  = "max-backoff"
	flagDatabaseURL = "database-url"
	envPrefix       = "NOTIFYD"
)

type runtimeConfig struct {
	AMQPURL    string
	Queue      string
	Prefetch   int
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Storage    bookingd.Config
}

func main() {
	_ = godotenv.Load()
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "notifyd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "notifyd",
		Short:         "Delivers booking notifications from RabbitMQ",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return run(ctx, cfg, logger)
		},
	}

	cmd.Flags().String(flagAMQPURL, "", "RabbitMQ URL (required)")
	cmd.Flags().String(flagQueue, notify.DefaultQueueName, "queue to consume")
	cmd.Flags().Int(flagPrefetch, 50, "unacknowledged deliveries held at once")
	cmd.Flags().Duration(flagMinBackoff, time.Second, "initial reconnect delay")
	cmd.Flags().Duration(flagMaxBackoff, 30*time.Second, "maximum reconnect delay")
	cmd.Flags().String(flagDatabaseURL, "", "database messages are recorded in (postgres:// or sqlite://, defaults to bookingd's)")
	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagAMQPURL, flagQueue, flagPrefetch, flagMinBackoff, flagMaxBackoff, flagDatabaseURL} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.AMQPURL = strings.TrimSpace(v.GetString(flagAMQPURL))
	cfg.Queue = strings.TrimSpace(v.GetString(flagQueue))
	cfg.Prefetch = v.GetInt(flagPrefetch)
	cfg.MinBackoff = v.GetDuration(flagMinBackoff)
	cfg.MaxBackoff = v.GetDuration(flagMaxBackoff)
	if cfg.AMQPURL == "" {
		return fmt.Errorf("%s is required", flagAMQPURL)
	}
	if cfg.MinBackoff <= 0 || cfg.MaxBackoff < cfg.MinBackoff {
		return fmt.Errorf("backoff range %s..%s is invalid", cfg.MinBackoff, cfg.MaxBackoff)
	}
	cfg.Storage = bookingd.Config{DatabaseURL: strings.TrimSpace(v.GetString(flagDatabaseURL))}
	return cfg.Storage.ValidateStorage()
}

// run records every notification in the messages table and then logs it.
// Delivery to members (mail, push) plugs in here as another notify.Sink.
func run(ctx context.Context, cfg *runtimeConfig, logger *zap.Logger) error {
	db, closeDB, err := bookingd.OpenDatabase(ctx, cfg.Storage.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = closeDB() }()
	if err := gormstore.New(db).ApplySchema(ctx); err != nil {
		return err
	}
	sink, err := notify.NewRecordingSink(db, notify.NewLogSink(logger), nil)
	if err != nil {
		return err
	}
	consumer, err := notify.NewConsumer(cfg.AMQPURL, cfg.Queue, sink.Publish,
		notify.WithPrefetch(cfg.Prefetch),
		notify.WithBackoff(cfg.MinBackoff, cfg.MaxBackoff),
		notify.WithConsumerLogger(logger),
	)
	if err != nil {
		return err
	}
	logger.Info("notification consumer starting", zap.String("queue", cfg.Queue))
	return consumer.Run(ctx)
}
