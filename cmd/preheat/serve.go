package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/gray-logic-preheat/migrations"

	"github.com/nerrad567/gray-logic-preheat/internal/audit"
	"github.com/nerrad567/gray-logic-preheat/internal/automation"
	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-preheat/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-preheat/internal/statestore"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pre-heat runtime until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Cancel on Ctrl+C or SIGTERM for graceful shutdown
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, opts)
		},
	}
}

// run is the service logic, separated from the command for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, opts *rootOptions) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Pre-heat",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "path", opts.configPath)

	runtimeCfg, err := automation.RuntimeConfigFrom(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", cfg.Database.Path)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// InfluxDB is optional; a nil client disables telemetry.
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	var telemetry automation.Telemetry
	if influxClient != nil {
		telemetry = influxClient
	}

	preheatRuntime := automation.NewRuntime(
		runtimeCfg,
		statestore.NewSQLiteStore(db.DB),
		mqttClient,
		telemetry,
		log.Component("preheat"),
	)
	preheatRuntime.SetAudit(audit.NewSQLiteRepository(db.DB))
	if err := preheatRuntime.Start(ctx, mqttClient); err != nil {
		return fmt.Errorf("starting pre-heat runtime: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: InfluxDB, MQTT, database.
	log.Info("Gray Logic Pre-heat stopped")
	return nil
}

// openDatabase opens the state database and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
