// GridWatch Core - device monitoring backend
//
// This is the main entry point for the GridWatch Core service. It hosts the
// HTTP API that reporting devices push telemetry to, the token-gated
// dashboard endpoints, the WebSocket hub for live updates, and the optional
// MQTT ingest and InfluxDB export paths.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/gridwatch/gridwatch-core/migrations"

	"github.com/gridwatch/gridwatch-core/internal/api"
	"github.com/gridwatch/gridwatch-core/internal/audit"
	"github.com/gridwatch/gridwatch-core/internal/auth"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/config"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/database"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/influxdb"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/logging"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/mqtt"
	"github.com/gridwatch/gridwatch-core/internal/ingest"
	"github.com/gridwatch/gridwatch-core/internal/monitor"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting GridWatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	// Open the account database
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Account store, auth service, and activity trail
	auditRepo := audit.NewSQLiteRepository(db.DB)
	userStore := auth.NewSQLiteUserStore(db.DB)
	authSvc := auth.NewService(userStore, cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.AccessTokenTTL)*time.Minute)

	// Monitor registry: in-memory by design, a restart starts with an
	// empty fleet and devices re-register on their next report.
	registry := monitor.NewRegistry(monitor.NewMemoryStore(), monitor.Options{
		Retention:  cfg.Monitor.Retention,
		StaleAfter: cfg.StaleAfterDuration(),
	})
	registry.SetLogger(log)
	log.Info("monitor registry initialised",
		"retention", cfg.Monitor.Retention,
		"stale_after", cfg.StaleAfterDuration(),
	)

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

	// Connect to MQTT first so the API server can mirror accepted telemetry
	// to the broker's event namespace.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
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
	} else {
		log.Info("MQTT disabled")
	}

	// Start the API server
	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		Auth:     authSvc,
		Audit:    auditRepo,
		Version:  version,
	}
	if influxClient != nil {
		deps.Exporter = influxClient
	}
	if mqttClient != nil {
		deps.Publisher = mqttClient
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Start the ingest service over the broker connection
	if mqttClient != nil {
		ingestSvc := ingest.New(registry, mqttClient, byte(cfg.MQTT.QoS), log)
		if influxClient != nil {
			ingestSvc.SetExporter(influxClient)
		}
		ingestSvc.SetBroadcaster(server.Hub())
		ingestSvc.SetRecorder(auditRepo)
		if ingestErr := ingestSvc.Start(); ingestErr != nil {
			return fmt.Errorf("starting telemetry ingest: %w", ingestErr)
		}
		defer func() {
			if stopErr := ingestSvc.Stop(); stopErr != nil {
				log.Error("error stopping telemetry ingest", "error", stopErr)
			}
		}()
	}

	log.Info("GridWatch Core running", "site", cfg.Site.Name)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the config file path from args or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if env := os.Getenv("GRIDWATCH_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}
