package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/erp/allocation/internal/infrastructure/config"
	"github.com/erp/allocation/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var (
		configPath   string
		scenarioPath string
		logLevel     string
		printMetrics bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: ./config.toml or /etc/allocation/config.toml)")
	flag.StringVar(&scenarioPath, "scenario", "", "Path to a scenario TOML file (overrides allocation.scenario_path)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&printMetrics, "metrics", false, "Print allocation metrics after the batch summary")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if err := applyOverrides(cfg, scenarioPath, logLevel, printMetrics); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid flags: %v\n", err)
		return 2
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if cfg.Allocation.ScenarioPath == "" {
		log.Error("No scenario given, use -scenario or allocation.scenario_path")
		return 2
	}

	report, err := run(context.Background(), cfg.Allocation, log, os.Stdout)
	if err != nil {
		log.Error("Allocation run failed", zap.Error(err))
		return 1
	}
	if report.Failed > 0 {
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// applyOverrides applies non-empty flag values on top of cfg and validates
// the result again.
func applyOverrides(cfg *config.Config, scenarioPath, logLevel string, printMetrics bool) error {
	if scenarioPath != "" {
		cfg.Allocation.ScenarioPath = scenarioPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if printMetrics {
		cfg.Allocation.PrintMetrics = true
	}
	return cfg.Validate()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := logger.DefaultConfig()
	if cfg.IsProduction() {
		logCfg = logger.ProductionConfig()
	}
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}
	return logger.Named(log, cfg.App.Name), nil
}
