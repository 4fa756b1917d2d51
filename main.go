package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/emusa/energymon/acquisition"
	"github.com/emusa/energymon/config"
	"github.com/emusa/energymon/dataplatform"
	"github.com/emusa/energymon/kron"
	"github.com/emusa/energymon/meter"
	"github.com/emusa/energymon/registermap"
	"github.com/emusa/energymon/report"
	"github.com/emusa/energymon/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to the JSON configuration file")
	flag.Parse()

	slog.Info("Starting energy monitor...")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Read(*configPath)
		if err != nil {
			slog.Error("Failed to read config", "error", err)
			return
		}
	}

	// a malformed register map must stop the process before any polling
	registers := registermap.Default()
	if cfg.Meter.RegisterMapPath != "" {
		var err error
		registers, err = registermap.Load(cfg.Meter.RegisterMapPath)
		if err != nil {
			slog.Error("Failed to load register map", "error", err)
			return
		}
	}

	// the telemetry source is chosen once at startup, never mixed mid-run
	var source meter.Source
	if cfg.Meter.UseSimulator {
		slog.Info("Using simulated meter")
		source = kron.NewSimulated()
	} else {
		slog.Info("Using CH30 meter", "ports", cfg.Meter.Serial.Ports)
		source = kron.New(registers, cfg.Meter.SerialSettings())
	}

	repo, err := repository.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to create repository", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	loop := acquisition.New(source, acquisition.Config{
		PollInterval:     time.Duration(cfg.Acquisition.PollIntervalMillis) * time.Millisecond,
		BackoffInitial:   time.Duration(cfg.Acquisition.BackoffInitialMillis) * time.Millisecond,
		BackoffMax:       time.Duration(cfg.Acquisition.BackoffMaxMillis) * time.Millisecond,
		BackoffFactor:    cfg.Acquisition.BackoffFactor,
		TimeoutThreshold: cfg.Acquisition.TimeoutThreshold,
		HistorySize:      cfg.Acquisition.HistorySize,
	})

	storageSub := loop.Subscribe("storage", cfg.Acquisition.SubscriberBuffer)

	// readings are always buffered locally; the upload leg is opt-in
	platform := dataplatform.NewLocalOnly(cfg.Meter.ID, repo)
	if cfg.DataPlatform.Enabled {
		platform, err = dataplatform.New(
			cfg.DataPlatform.Supabase.Url,
			os.Getenv("SUPABASE_KEY"),
			cfg.DataPlatform.Supabase.Schema,
			cfg.Meter.ID,
			repo,
			time.Duration(cfg.DataPlatform.UploadIntervalSecs)*time.Second,
		)
		if err != nil {
			slog.Error("Failed to create data platform", "error", err)
			return
		}
	}
	go platform.Run(ctx)

	// readings flow from the acquisition loop into the data platform buffer
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case reading := <-storageSub.C:
				platform.Readings <- reading
			}
		}
	}()

	if cfg.Report.Enabled {
		go report.Run(ctx, repo, report.Config{
			OutputDir:   cfg.Report.OutputDir,
			Interval:    time.Duration(cfg.Report.IntervalHours) * time.Hour,
			WindowHours: cfg.Report.WindowHours,
			Title:       cfg.Report.Title,
		})
	}

	go func() {
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Acquisition loop exited", "error", err)
		}
	}()

	// wait for a ctrl-c interrupt before exiting
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	<-signalChan

	// cancel any open go-routines and give them a moment to shut down
	cancel()
	time.Sleep(time.Millisecond * 100)

	slog.Info("Exiting")
}
