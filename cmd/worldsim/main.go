package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/worldstream/internal/config"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml or .toml config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "worldsim:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, cleanup, err := injector.InitializeRuntime(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}
	defer cleanup()

	logger := rt.Logger.With(log.Component("main"))

	if err = rt.App.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if cfg.Control.Enabled {
		if err = rt.Server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rt.Server.Stop(shutdownCtx); err != nil {
				logger.Warn("stop control server", log.Error(err))
			}
		}()
	}

	logger.Info("world running", log.Duration("tick", cfg.Simulation.TickRate))
	if err = rt.App.Run(ctx); err != nil {
		return err
	}
	logger.Info("world stopped")
	return nil
}
