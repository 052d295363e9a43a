package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glolivercoder/pipertts/internal/bus"
	"github.com/glolivercoder/pipertts/internal/config"
	"github.com/glolivercoder/pipertts/internal/history"
	"github.com/glolivercoder/pipertts/internal/natsserver"
	"github.com/glolivercoder/pipertts/internal/runtime"
	"github.com/glolivercoder/pipertts/internal/service"
	"github.com/glolivercoder/pipertts/internal/synth"
	"github.com/glolivercoder/pipertts/internal/voice"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "pipertts.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Telemetry.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedded, err := natsserver.Start(cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to start embedded NATS server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer busClient.Close()

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.Error("failed to open history store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	var synthesizer *synth.Synthesizer
	if cfg.Voice.ModelPath != "" {
		desc, err := voice.Load(cfg.Voice.ModelPath, cfg.Voice.SidecarPath())
		if err != nil {
			logger.Error("failed to load voice", slog.String("error", err.Error()))
			os.Exit(1)
		}
		synthesizer = synth.New(desc, synthConfig(cfg.Synth), logger)
		defer synthesizer.Close()
	}

	svc := service.New(ctx, cfg.Service, busClient, synthesizer, store, logger)
	if err := svc.Start(); err != nil {
		logger.Error("failed to start synthesis service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer svc.Close()

	status := func(reqCtx context.Context) runtime.Status {
		st := runtime.Status{Ready: busClient.Healthy() && svc.Healthy()}
		if synthesizer != nil {
			st.Synth = synthesizer.Readiness()
		}
		if counts, err := store.CountByProvenance(reqCtx); err == nil {
			st.Provenance = counts
		}
		return st
	}

	rt := runtime.New(cfg, logger, status)
	if err := rt.Start(ctx); err != nil {
		logger.Error("runtime exited with error", slog.String("error", err.Error()))
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

func synthConfig(cfg config.SynthConfig) synth.Config {
	return synth.Config{
		PiperCommand:    cfg.PiperCommand,
		ONNXLibraryPath: cfg.ONNXLibraryPath,
		NumThreads:      cfg.NumThreads,
		DisableONNX:     cfg.DisableONNX,
		DisableSherpa:   cfg.DisableSherpa,
	}
}
