// Leafcore - Terrarium Environmental Controller
//
// This is the main entry point for the Leafcore controller. Leafcore
// keeps a terrarium's climate inside configured targets:
//   - Offline-first operation (the enclosure never depends on the cloud)
//   - One serialised mutation path for every actuator
//   - Best-effort telemetry to MQTT, InfluxDB, and remote collectors
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/leafcore/terrarium-core/migrations"

	"github.com/leafcore/terrarium-core/internal/api"
	"github.com/leafcore/terrarium-core/internal/automation"
	"github.com/leafcore/terrarium-core/internal/control"
	"github.com/leafcore/terrarium-core/internal/device"
	"github.com/leafcore/terrarium-core/internal/infrastructure/config"
	"github.com/leafcore/terrarium-core/internal/infrastructure/database"
	"github.com/leafcore/terrarium-core/internal/infrastructure/influxdb"
	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
	"github.com/leafcore/terrarium-core/internal/infrastructure/mqtt"
	"github.com/leafcore/terrarium-core/internal/sensors"
	"github.com/leafcore/terrarium-core/internal/settings"
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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit // Linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Leafcore",
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

	// Open database and run migrations
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Settings store (targets, manual overrides, identity)
	store, err := settings.NewStore(cfg.Storage.DataDir, log)
	if err != nil {
		return fmt.Errorf("initialising settings store: %w", err)
	}
	identity := store.Identity()
	log.Info("settings loaded",
		"device_id", identity.DeviceID,
		"name", identity.Name,
	)

	// Actuator/sensor backend
	backend, err := newBackend(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			log.Error("error closing device backend", "error", closeErr)
		}
	}()

	// Device controller: the single mutation path for all actuators
	history := device.NewSQLiteStateHistory(db.DB)
	controller := device.NewController(backend, history, log)
	if err := controller.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconciling actuator state: %w", err)
	}

	// Sensor cache
	cache := sensors.NewCache(backend, cfg.Sensors.GetReadInterval(), log)
	cache.Start(ctx)

	// MQTT (optional, best-effort: the terrarium runs without a broker)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, continuing without broker", "error", err)
			mqttClient = nil
		} else {
			mqttClient.SetLogger(log)
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			log.Warn("InfluxDB unavailable, continuing without telemetry store", "error", err)
			influxClient = nil
		} else {
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"bucket", cfg.InfluxDB.Bucket,
			)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Telemetry forwarder: HTTP collectors, MQTT topic, InfluxDB
	var publisher sensors.Publisher
	if mqttClient != nil {
		publisher = mqttClient
	}
	var writer sensors.TelemetryWriter
	if influxClient != nil {
		writer = influxClient
	}
	forwarder := sensors.NewForwarder(
		cache,
		store.Identity,
		cfg.Sensors.Collectors,
		cfg.Sensors.GetForwardInterval(),
		cfg.Sensors.GetForwardTimeout(),
		publisher,
		writer,
		log,
	)
	forwarder.Start(ctx)

	// Automation engine
	engine := automation.New(controller, store, cache, cfg.Automation, log)
	engine.Start(ctx)

	// Control surface: the one entry point for API, MQTT, and WebSocket
	surface := control.New(controller, store, cache, engine, log)

	// API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Surface:  surface,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Fan transitions out to WebSocket clients, retained MQTT state
	// topics, and InfluxDB.
	hub := apiServer.Hub()
	controller.OnChange(func(ch device.Channel, value device.Value, source string) {
		payload := map[string]any{
			"channel":   string(ch),
			"value":     float64(value),
			"source":    source,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		hub.Broadcast(api.WSChannelActuators, payload)

		if mqttClient != nil {
			body, marshalErr := json.Marshal(payload)
			if marshalErr == nil {
				if pubErr := mqttClient.PublishState(string(ch), body); pubErr != nil {
					log.Warn("publishing state failed", "channel", ch, "error", pubErr)
				}
			}
		}
		if influxClient != nil {
			influxClient.WriteTransition(store.Identity().DeviceID, device.Transition{
				Channel:    ch,
				Value:      float64(value),
				Source:     source,
				RecordedAt: time.Now().UTC(),
			})
		}
	})

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// MQTT command bridge
	if mqttClient != nil {
		bridge := control.NewCommandBridge(surface, byte(cfg.MQTT.QoS), log)
		if bridgeErr := bridge.Start(mqttClient); bridgeErr != nil {
			log.Warn("command bridge failed to start", "error", bridgeErr)
		}
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, device backend, database.

	log.Info("Leafcore stopped")
	return nil
}

// newBackend selects the device backend. A hardware failure falls back
// to the simulator so the controller stays operable for diagnosis.
func newBackend(cfg *config.Config, log *logging.Logger) (device.Capability, error) {
	if cfg.Device.Backend != "hardware" {
		log.Info("using simulated device backend")
		return device.NewSimulated(), nil
	}

	hw, err := device.NewHardware(cfg.Device.Pins)
	if err != nil {
		log.Warn("hardware backend unavailable, falling back to simulator", "error", err)
		return device.NewSimulated(), nil
	}
	log.Info("hardware backend connected",
		"fan", cfg.Device.Pins.Fan,
		"heater", cfg.Device.Pins.Heater,
		"pump", cfg.Device.Pins.Pump,
		"sprinkler", cfg.Device.Pins.Sprinkler,
		"light", cfg.Device.Pins.Light,
	)
	return hw, nil
}

// getConfigPath returns the configuration file path.
// Uses LEAFCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LEAFCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
