// Hearth Core - Device Suggestion Platform
//
// This is the main entry point for the Hearth Core application.
// Hearth watches the home's device and service inventory and proposes
// automations the household can accept, tune, or dismiss:
//   - Offline-first operation (suggestions never require the cloud)
//   - MQTT-based discovery and plan dispatch
//   - Learning from feedback without shipping data off-site
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hearthline/hearth-core/migrations"

	"github.com/hearthline/hearth-core/internal/api"
	"github.com/hearthline/hearth-core/internal/engine"
	"github.com/hearthline/hearth-core/internal/feedback"
	"github.com/hearthline/hearth-core/internal/infrastructure/config"
	"github.com/hearthline/hearth-core/internal/infrastructure/database"
	"github.com/hearthline/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearthline/hearth-core/internal/infrastructure/logging"
	"github.com/hearthline/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthline/hearth-core/internal/inventory"
	"github.com/hearthline/hearth-core/internal/orchestration"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise inventory registry
	registry := inventory.NewRegistry(inventory.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.With("component", "inventory"))

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading inventory: %w", refreshErr)
	}
	devices, services := registry.Counts()
	log.Info("inventory initialised", "devices", devices, "services", services)

	// Connect to MQTT broker
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
	mqttClient.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Subscribe to discovery announcements so agents can register
	// devices and services at runtime.
	topics := mqtt.Topics{}
	if err := mqttClient.Subscribe(topics.AllDeviceAnnounces(), 1, registry.HandleDeviceAnnounce); err != nil {
		return fmt.Errorf("subscribing to device announcements: %w", err)
	}
	if err := mqttClient.Subscribe(topics.AllServiceAnnounces(), 1, registry.HandleServiceAnnounce); err != nil {
		return fmt.Errorf("subscribing to service announcements: %w", err)
	}
	log.Info("discovery subscriptions active")

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Feedback learning service
	feedbackSvc := feedback.NewService(
		feedback.NewSQLiteRepository(db.DB),
		feedback.Config{
			DecayFactor:   cfg.Feedback.DecayFactor,
			StrengthFloor: cfg.Feedback.StrengthFloor,
			RetentionDays: cfg.Feedback.RetentionDays,
		},
	)
	feedbackSvc.SetLogger(log.With("component", "feedback"))

	// Plan dispatcher
	dispatcher := orchestration.NewDispatcher(
		mqttClient,
		orchestration.NewSQLiteRepository(db.DB),
	)
	dispatcher.SetLogger(log.With("component", "orchestration"))
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("starting plan dispatcher: %w", err)
	}
	log.Info("plan dispatcher started")

	// Suggestion engine
	opts := engine.Options{
		Config:     cfg.Engine,
		Source:     registry,
		Feedback:   feedbackSvc,
		Dispatcher: dispatcher,
		Events:     mqttClient,
	}
	// Assign only when connected: a typed-nil client in the interface
	// would defeat the engine's nil checks.
	if influxClient != nil {
		opts.Metrics = influxClient
	}
	eng := engine.New(opts)
	eng.SetLogger(log.With("component", "engine"))

	maintenanceInterval := time.Duration(cfg.Feedback.MaintenanceIntervalHours) * time.Hour
	eng.StartMaintenance(ctx, maintenanceInterval)
	log.Info("suggestion engine ready", "maintenance_interval", maintenanceInterval)

	// HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Engine:     eng,
		Inventory:  registry,
		Feedback:   feedbackSvc,
		Executions: orchestration.NewSQLiteRepository(db.DB),
		MQTT:       mqttClient,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Hearth Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
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
