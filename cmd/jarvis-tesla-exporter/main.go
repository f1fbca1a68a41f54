package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/app"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/config"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/exporter"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/mqtt"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/retry"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/state"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/tesla"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/transmission"
	"github.com/sirupsen/logrus"
)

// version is injected at build time via ldflags
var version = "dev"

func main() {
	cfg := parseFlags()

	logger := setupLogger(cfg.Verbose)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger.WithFields(logrus.Fields{
		"version":   version,
		"interval":  cfg.MeasureInterval,
		"geofences": len(cfg.Geofences),
		"vehicles":  len(cfg.VehicleIDs),
	}).Info("Starting jarvis-tesla-exporter")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Core clients ---------------------------------------------------------------
	retryPolicy := retry.Policy{
		BaseInterval: config.RetryBaseInterval,
		Factor:       config.RetryFactor,
		MaxAttempts:  config.RetryMaxAttempts,
	}
	teslaClient := tesla.NewClient(retryPolicy, logger)
	teslaClient.SetTimeout(config.APITimeout)

	exp := exporter.New(teslaClient, retryPolicy, logger)

	var store state.Store
	if cfg.StateFilePath != "" {
		store = state.NewFileStore(cfg.StateFilePath, logger)
		logger.WithField("path", cfg.StateFilePath).Info("Persisting state to file")
	} else {
		store = state.NewMemoryStore()
	}

	// Transmitter ----------------------------------------------------------------
	var tx transmission.Transmitter
	if cfg.HasMQTT() {
		clientID := fmt.Sprintf("%s-%d", cfg.Source, os.Getpid())
		mqttClient, err := mqtt.NewClient(cfg.MQTTUrl, clientID, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create MQTT client")
		}
		defer mqttClient.Disconnect(250)
		tx = transmission.NewMQTTTransmitter(mqttClient, cfg.MQTTTopicPrefix, logger)
		logger.Info("MQTT transmitter ready")
	} else {
		logger.Warn("No MQTT sink configured; measurements will only be logged and stored")
	}

	// Run application ------------------------------------------------------------
	app.Run(ctx, cfg, exp, store, tx, logger)

	logger.Info("jarvis-tesla-exporter stopped")
}

// -----------------------------------------------------------------------------
// Helpers & Flags
// -----------------------------------------------------------------------------

func parseFlags() *config.Config {
	cfg := config.GetDefaultConfig()

	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.StringVar(&cfg.RefreshToken, "refresh-token", getEnv("TESLA_EXPORTER_REFRESH_TOKEN", cfg.RefreshToken), "Tesla refresh token")
	flag.StringVar(&cfg.Source, "source", getEnv("TESLA_EXPORTER_SOURCE", cfg.Source), "Source name stamped on measurements")
	flag.StringVar(&cfg.MQTTUrl, "mqtt-url", getEnv("TESLA_EXPORTER_MQTT_URL", cfg.MQTTUrl), "MQTT URL")
	flag.StringVar(&cfg.MQTTTopicPrefix, "mqtt-topic-prefix", getEnv("TESLA_EXPORTER_MQTT_TOPIC_PREFIX", cfg.MQTTTopicPrefix), "MQTT topic prefix")
	flag.StringVar(&cfg.StateFilePath, "state-file", getEnv("TESLA_EXPORTER_STATE_FILE", cfg.StateFilePath), "Path for persisting last measurements (empty = in-memory)")
	flag.BoolVar(&cfg.Verbose, "verbose", getEnv("TESLA_EXPORTER_VERBOSE", "false") == "true", "Verbose logging")

	vehicleIDsStr := flag.String("vehicle-ids", getEnv("TESLA_EXPORTER_VEHICLE_IDS", ""), "Comma-separated vehicle id allowlist (empty = all vehicles)")
	geofencesStr := flag.String("geofences", getEnv("TESLA_EXPORTER_GEOFENCES", ""), `Geofence regions as JSON, e.g. [{"location":"Home","latitude":52.4,"longitude":4.9,"geofenceRadiusMeters":100}]`)
	intervalStr := flag.String("interval", getEnv("TESLA_EXPORTER_INTERVAL", ""), "Measurement interval (e.g. 60s)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("jarvis-tesla-exporter %s\n", version)
		os.Exit(0)
	}

	if *vehicleIDsStr != "" {
		for _, id := range strings.Split(*vehicleIDsStr, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.VehicleIDs = append(cfg.VehicleIDs, id)
			}
		}
	}

	if *geofencesStr != "" {
		if err := json.Unmarshal([]byte(*geofencesStr), &cfg.Geofences); err != nil {
			fmt.Fprintf(os.Stderr, "invalid geofences: %v\n", err)
			os.Exit(1)
		}
	}

	if *intervalStr != "" {
		if d, err := time.ParseDuration(*intervalStr); err == nil && d > 0 {
			cfg.MeasureInterval = d
		}
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
