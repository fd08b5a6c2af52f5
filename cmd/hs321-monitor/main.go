// Command hs321-monitor polls the monitoring registers of an HS321
// drive and ships the readings to InfluxDB.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	dotenv "github.com/joho/godotenv"

	"github.com/vfdkit/hs321"
	"github.com/vfdkit/hs321/param"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if cfg.EnvFile != "" {
		if err := dotenv.Load(cfg.EnvFile); err != nil {
			slog.Error("Failed to load env file", "path", cfg.EnvFile, "err", err)
			os.Exit(1)
		}
	}

	table, err := param.LoadFile(cfg.ParamsFile)
	if err != nil {
		slog.Error("Failed to load parameter table", "path", cfg.ParamsFile, "err", err)
		os.Exit(1)
	}

	handler := newHandler(cfg)
	defer handler.Close()

	influxClient := influxdb2.NewClient(os.Getenv("INFLUX_HOST"), os.Getenv("INFLUX_TOKEN"))
	defer influxClient.Close()
	writeAPI := influxClient.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket)
	go func() {
		for err := range writeAPI.Errors() {
			slog.Error("Error writing to InfluxDB", "err", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("Starting HS321 monitor",
		"device", cfg.Device, "slave", cfg.SlaveID, "interval", cfg.PollInterval)

	p := newPoller(hs321.NewClient(handler), table, writeAPI, cfg.InfluxMeasurement, cfg.SlaveID, slog.Default())
	p.run(ctx, cfg.PollInterval)

	slog.Info("Shutting down...")
	writeAPI.Flush()
}

func newHandler(cfg *Config) *hs321.RTUClientHandler {
	h := hs321.NewRTUClientHandler(cfg.Device)
	h.SetSlave(byte(cfg.SlaveID))
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.Parity = cfg.Parity
	h.StopBits = cfg.StopBits
	h.TotalTimeout = cfg.Timeout
	return h
}

func setupLogger(level string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
