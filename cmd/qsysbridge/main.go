// Gray Logic Q-SYS Bridge
//
// Connects Gray Logic Core to one or more Q-SYS Cores. Configured routers,
// mixer crosspoints and snapshot banks are exposed on the MQTT bus as
// devices; control feedback is recorded to SQLite and InfluxDB and a
// read-only status API is served over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-qsys/migrations"

	"github.com/nerrad567/gray-logic-qsys/internal/api"
	"github.com/nerrad567/gray-logic-qsys/internal/bridge"
	"github.com/nerrad567/gray-logic-qsys/internal/history"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-qsys/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the bridge together and blocks until ctx is cancelled.
// Deferred closes tear everything down in reverse order.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Q-SYS bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing left to log to
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

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

	lwt, err := bridge.LWTPayload(cfg.Bridge.ID)
	if err != nil {
		return fmt.Errorf("building MQTT will: %w", err)
	}
	mqttClient, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: bridge.HealthTopic(), Payload: lwt})
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
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
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	var (
		recorder *history.Recorder
		repo     history.Repository
	)
	if cfg.History.Enabled {
		repo = history.NewSQLiteRepository(db.DB)
		recorder = newRecorder(cfg, repo, influxClient, log)
		recorder.Start(ctx)
		defer func() {
			log.Info("stopping history recorder")
			recorder.Stop()
		}()
		log.Info("history recorder started", "retention_days", cfg.History.RetentionDays)
	} else {
		log.Info("history recording disabled")
	}

	dir := qsys.NewDirectory(log)
	cores := newCoreSet(dir, recorder, log)
	cores.ConnectAll(ctx, cfg.Cores)
	defer func() {
		log.Info("closing Core sessions")
		cores.CloseAll()
	}()

	b, err := bridge.NewBridge(bridge.BridgeOptions{
		BridgeID:       cfg.Bridge.ID,
		Version:        version,
		HealthInterval: cfg.GetHealthInterval(),
		Devices:        bridgeDevices(cfg.Devices),
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		Directory:      dir,
		CoreStats:      cores.Stats,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		b.Stop()
	}()
	log.Info("bridge started", "devices", len(b.Devices()))

	if influxClient != nil {
		go exportCoreStats(ctx, influxClient, cores, cfg.GetHealthInterval())
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:    cfg.API,
			Logger:    log,
			Directory: dir,
			Devices:   b,
			Health:    b.Health(),
			History:   repo,
			Version:   version,
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
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// healthCheck verifies the infrastructure connections. Core sessions are
// not checked: an unreachable Core degrades health but does not stop the
// bridge.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
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
	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}
	return nil
}

func newRecorder(cfg *config.Config, repo history.Repository, influxClient *influxdb.Client, log *logging.Logger) *history.Recorder {
	// Avoid a typed-nil interface when InfluxDB is disabled.
	var metrics history.MetricWriter
	if influxClient != nil {
		metrics = influxClient
	}
	return history.NewRecorder(history.RecorderOptions{
		Repository: repo,
		Metrics:    metrics,
		QueueSize:  cfg.History.QueueSize,
		Retention:  cfg.GetRetention(),
		Logger:     log,
	})
}

// bridgeDevices converts the devices section into bridge configuration.
func bridgeDevices(devices []config.DeviceConfig) []bridge.DeviceConfig {
	out := make([]bridge.DeviceConfig, 0, len(devices))
	for _, d := range devices {
		out = append(out, bridge.DeviceConfig{
			ID:        d.ID,
			Name:      d.Name,
			Type:      d.Type,
			Core:      d.Core,
			Component: d.Component,
			Output:    d.Output,
			Input:     d.Input,
			Bank:      d.Bank,
		})
	}
	return out
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to
// bridge.MQTTClient. Bridge handlers do not return errors.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
