// Command ecgd runs the ECG BLE peripheral: it registers the GATT
// service with BlueZ, advertises, and streams sensor values to the
// connected central until stopped.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ecgble/ecgble"
	"github.com/ecgble/ecgble/bluez"
)

var (
	configPath = flag.String("config", "", "path to YAML configuration (defaults apply if empty)")
	debug      = flag.Bool("debug", false, "log at debug level regardless of configuration")
)

func main() {
	flag.Parse()

	cfg := ecgble.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = ecgble.LoadConfig(*configPath)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	log := newLogger(cfg.Log)

	var sensor ecgble.Sensor
	switch cfg.Sensor.Driver {
	case "adc":
		sensor = ecgble.NewADCSensor(cfg.Sensor)
	default:
		sensor = ecgble.NewSimSensor(0)
		log.Info("using simulated sensor")
	}

	stack, err := bluez.New(cfg, log)
	if err != nil {
		log.Fatal(err)
	}
	defer stack.Close()

	session, err := ecgble.NewSession(cfg, stack, sensor, log)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Info("shutting down")
}

func newLogger(cfg ecgble.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
	}
	if *debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	if cfg.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	}
	return log
}
