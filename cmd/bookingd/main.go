package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/booking/internal/bookingd"
	"github.com/MarkoPoloResearchLab/booking/internal/httpapi"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagDatabaseURL     = "database-url"
	flagStoreDriver     = "store-driver"
	flagGRPCListenAddr  = "grpc-listen-addr"
	flagHTTPListenAddr  = "http-listen-addr"
	flagRedisAddr       = "redis-addr"
	flagRedisPassword   = "redis-password"
	flagRedisDB         = "redis-db"
	flagCacheTTL        = "cache-ttl"
	flagAMQPURL         = "amqp-url"
	flagNotifyQueue     = "notify-queue"
	flagShutdownTimeout = "shutdown-timeout"
	flagAllowedOrigins  = "allowed-origins"
	flagJWTSigningKey   = "jwt-signing-key"
	flagJWTIssuer       = "jwt-issuer"
	flagJWTCookieName   = "jwt-cookie-name"
	flagAdminRole       = "admin-role"
	flagRequestTimeout  = "request-timeout"
	flagTimeZone        = "time-zone"

	flagID           = "id"
	flagName         = "name"
	flagFacilityRate = "hourly-rate"
	flagOpensMinute  = "opens-minute"
	flagClosesMinute = "closes-minute"

	envPrefix = "BOOKINGD"
)

var (
	storageFlags = []string{flagDatabaseURL, flagStoreDriver, flagRedisAddr, flagRedisPassword, flagRedisDB}
	serveFlags   = []string{
		flagGRPCListenAddr, flagHTTPListenAddr, flagCacheTTL, flagAMQPURL, flagNotifyQueue, flagShutdownTimeout,
		flagAllowedOrigins, flagJWTSigningKey, flagJWTIssuer, flagJWTCookieName, flagAdminRole, flagRequestTimeout,
		flagTimeZone,
	}
)

func main() {
	_ = godotenv.Load()
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bookingd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &bookingd.Config{}
	cmd := &cobra.Command{
		Use:           "bookingd",
		Short:         "Facility booking gRPC and HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg, true)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return bookingd.Run(ctx, *cfg, logger)
		},
	}

	cmd.PersistentFlags().String(flagDatabaseURL, "", "PostgreSQL URL or SQLite path (default sqlite:///tmp/booking.db)")
	cmd.PersistentFlags().String(flagStoreDriver, bookingd.StoreDriverGorm, "store implementation: gorm or pgx")
	cmd.PersistentFlags().String(flagRedisAddr, "", "Redis address for the facility cache; empty disables caching")
	cmd.PersistentFlags().String(flagRedisPassword, "", "Redis password")
	cmd.PersistentFlags().Int(flagRedisDB, 0, "Redis database index")

	cmd.Flags().String(flagGRPCListenAddr, "", "gRPC listen address (default :7000)")
	cmd.Flags().String(flagHTTPListenAddr, "", "HTTP listen address (default :9090)")
	cmd.Flags().Duration(flagCacheTTL, 0, "facility cache TTL (default 5m)")
	cmd.Flags().String(flagAMQPURL, "", "RabbitMQ URL for notifications; empty logs them instead")
	cmd.Flags().String(flagNotifyQueue, "", "notification queue name")
	cmd.Flags().Duration(flagShutdownTimeout, 0, "graceful shutdown timeout (default 10s)")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagJWTSigningKey, "", "TAuth JWT signing key (required)")
	cmd.Flags().String(flagJWTIssuer, "", "expected JWT issuer")
	cmd.Flags().String(flagJWTCookieName, "", "JWT cookie name")
	cmd.Flags().String(flagAdminRole, "", "session role allowed to transition payments")
	cmd.Flags().Duration(flagRequestTimeout, 0, "per-request service timeout")
	cmd.Flags().String(flagTimeZone, "UTC", "IANA time zone facility operating hours are read in")

	cmd.AddCommand(newMigrateCommand(cfg), newMemberCommand(cfg), newFacilityCommand(cfg))
	return cmd
}

func newMigrateCommand(cfg *bookingd.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return bookingd.Migrate(cmd.Context(), *cfg)
		},
	}
}

func newMemberCommand(cfg *bookingd.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member-add",
		Short: "Register a member or update its display name",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, _ := cmd.Flags().GetString(flagID)
			name, _ := cmd.Flags().GetString(flagName)
			return bookingd.AddMember(cmd.Context(), *cfg, memberID, name)
		},
	}
	cmd.Flags().String(flagID, "", "member id (required)")
	cmd.Flags().String(flagName, "", "display name")
	_ = cmd.MarkFlagRequired(flagID)
	return cmd
}

func newFacilityCommand(cfg *bookingd.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facility-add",
		Short: "Publish a facility to the catalog",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			definition := bookingd.FacilityDefinition{}
			definition.ID, _ = cmd.Flags().GetString(flagID)
			definition.Name, _ = cmd.Flags().GetString(flagName)
			definition.HourlyRate, _ = cmd.Flags().GetInt64(flagFacilityRate)
			definition.OpensMinute, _ = cmd.Flags().GetInt(flagOpensMinute)
			definition.ClosesMinute, _ = cmd.Flags().GetInt(flagClosesMinute)
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return bookingd.AddFacility(cmd.Context(), *cfg, definition, logger)
		},
	}
	cmd.Flags().String(flagID, "", "facility id (required)")
	cmd.Flags().String(flagName, "", "facility name")
	cmd.Flags().Int64(flagFacilityRate, 0, "hourly rate in whole currency units")
	cmd.Flags().Int(flagOpensMinute, -1, "opening minute of the day in the server time zone; -1 for always open")
	cmd.Flags().Int(flagClosesMinute, -1, "closing minute of the day in the server time zone, after the opening minute")
	_ = cmd.MarkFlagRequired(flagID)
	return cmd
}

// loadConfig reads flags and BOOKINGD_* environment variables. Provisioning
// commands only need the storage settings.
func loadConfig(cmd *cobra.Command, cfg *bookingd.Config, serve bool) error {
	flagNames := storageFlags
	if serve {
		flagNames = append(append([]string{}, storageFlags...), serveFlags...)
	}
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range flagNames {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.StoreDriver = strings.TrimSpace(v.GetString(flagStoreDriver))
	cfg.RedisAddr = strings.TrimSpace(v.GetString(flagRedisAddr))
	cfg.RedisPassword = v.GetString(flagRedisPassword)
	cfg.RedisDB = v.GetInt(flagRedisDB)
	cfg.GRPCListenAddr = strings.TrimSpace(v.GetString(flagGRPCListenAddr))
	cfg.HTTPListenAddr = strings.TrimSpace(v.GetString(flagHTTPListenAddr))
	cfg.CacheTTL = v.GetDuration(flagCacheTTL)
	cfg.AMQPURL = strings.TrimSpace(v.GetString(flagAMQPURL))
	cfg.NotifyQueue = strings.TrimSpace(v.GetString(flagNotifyQueue))
	cfg.ShutdownTimeout = v.GetDuration(flagShutdownTimeout)
	cfg.TimeZone = v.GetString(flagTimeZone)
	cfg.HTTP = httpapi.Config{
		AllowedOrigins:    httpapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		SessionSigningKey: v.GetString(flagJWTSigningKey),
		SessionIssuer:     strings.TrimSpace(v.GetString(flagJWTIssuer)),
		SessionCookieName: strings.TrimSpace(v.GetString(flagJWTCookieName)),
		AdminRole:         strings.TrimSpace(v.GetString(flagAdminRole)),
		RequestTimeout:    v.GetDuration(flagRequestTimeout),
	}
	if !serve {
		return cfg.ValidateStorage()
	}
	return cfg.Validate()
}
