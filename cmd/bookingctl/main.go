package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/booking-engine/internal/app"
	"github.com/jwalitptl/booking-engine/internal/config"
	"github.com/jwalitptl/booking-engine/internal/repository/sqlstore"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

var (
	configFile string
	cfg        *config.Config
	log        *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bookingctl",
	Short: "Operate the booking engine from the command line",
	Long:  "bookingctl migrates and seeds the store, queries candidates, places bookings and tails booking events.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("BOOKING_CONFIG_FILE"), "Path to config.yml")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called before every command)
func loadConfig() error {
	var err error
	cfg, err = config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logCfg := cfg.Log.ToLoggerConfig()
	logCfg.Output = os.Stderr
	logCfg.Console = true
	log = logger.NewLogger(logCfg)
	return nil
}

func openDB() (*sqlx.DB, error) {
	db, err := sqlstore.NewDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// openEngine connects to the store and wires the engine without a directory
// cache; every command is a single short-lived pass.
func openEngine() (*sqlx.DB, *app.Engine, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	matching := cfg.Matching
	matching.DirectoryTTL = 0
	m := metrics.New("bookingctl", prometheus.NewRegistry())
	return db, app.NewEngine(sqlstore.NewRepositories(db), matching, m, log), nil
}
