package main

// ---------------------------------------------------------------------------
// cmd_up.go: start the casbguard engine and API
// ---------------------------------------------------------------------------

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/1sec-project/casbguard/internal/api"
	"github.com/1sec-project/casbguard/internal/core"
)

// loadDotEnv reads .env from the working directory. A missing file is not an
// error; variables already set in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func cmdUp(args []string) {
	if err := loadDotEnv(); err != nil {
		warnf("reading .env: %v", err)
	}

	flags := flag.NewFlagSet("up", flag.ExitOnError)
	configPath := flags.String("config", defaultConfigPath, "Config file path")
	logLevel := flags.String("log-level", "", "Log level override: debug, info, warn, error")
	noSeed := flags.Bool("no-seed", false, "Start with empty stores")
	dryRun := flags.Bool("dry-run", false, "Validate config, then exit")
	flags.Parse(args)

	*configPath = envConfig(*configPath)

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		errorf("loading config: %v", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *noSeed {
		cfg.Detection.Seed = false
	}

	warnings, validationErrs := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s %s\n", yellow("⚠"), w)
	}
	if len(validationErrs) > 0 {
		for _, e := range validationErrs {
			fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), e)
		}
		errorf("config validation failed with %d error(s)", len(validationErrs))
	}

	if *dryRun {
		fmt.Fprintf(os.Stdout, "%s config OK (port %d, window %d, capacity %d)\n",
			green("✓"), cfg.Server.Port, cfg.Detection.Window, cfg.Detection.EventCapacity)
		return
	}

	engine, err := core.NewEngine(cfg)
	if err != nil {
		errorf("creating engine: %v", err)
	}
	engine.SetConfigPath(*configPath)
	if err := engine.Start(); err != nil {
		errorf("starting engine: %v", err)
	}

	server := api.NewServer(engine)
	if err := server.Start(); err != nil {
		engine.Shutdown()
		errorf("starting API server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			if _, err := engine.Reload(); err != nil {
				engine.Logger.Error().Err(err).Msg("config reload failed")
			}
			continue
		}
		engine.Logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		break
	}

	if err := server.Stop(); err != nil {
		engine.Logger.Error().Err(err).Msg("API server shutdown error")
	}
	if err := engine.Shutdown(); err != nil {
		engine.Logger.Error().Err(err).Msg("engine shutdown error")
	}
}
