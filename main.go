package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pthm-cable/cellwalk/config"
	"github.com/pthm-cable/cellwalk/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml or a .par parameter file (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (overrides config)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	iterations := flag.Int("iterations", 0, "Number of steps (0 = use config)")
	logStats := flag.Bool("log-stats", false, "Log per-phase timings every info cycle")
	debug := flag.Bool("debug", false, "Log reflection details")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *iterations > 0 {
		cfg.Simulation.Iterations = *iterations
	}
	if *logStats {
		cfg.Output.PerfLog = true
	}

	s, err := sim.New(cfg, logger)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = s.Run(ctx)
	stop()
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		slog.Error("simulation failed", "error", err, "step", s.StepCount())
		os.Exit(1)
	}
}
