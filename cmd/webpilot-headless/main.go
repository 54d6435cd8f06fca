// Package main provides the webpilot headless runner for scripts and CI.
// It runs a single goal to completion and writes execution artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/webpilot/pkg/app"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/executor/headless"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile    string
	RunFile       string
	EnvFile       string
	Goal          string
	MaxIterations int
	Timeout       time.Duration
	OutputDir     string
	Verbosity     string
	ShowVersion   bool
}

func main() {
	// Parse command line flags
	cli := parseFlags()

	// Show version if requested
	if cli.ShowVersion {
		fmt.Printf("webpilot-headless v%s\n", version)
		return
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nStopping task...")
		cancel()
	}()

	// Run the headless executor
	if err := run(ctx, cli); err != nil {
		cancel() // Cancel context before exiting
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}
	cancel() // Clean up context on success
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to runtime configuration file (YAML)")
	flag.StringVar(&cli.RunFile, "run", "", "Path to run file (YAML) with goal, budgets and artifacts")
	flag.StringVar(&cli.EnvFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
	flag.StringVar(&cli.Goal, "goal", "", "Goal for the agent (required if no run file)")
	flag.IntVar(&cli.MaxIterations, "max-iterations", 0, "Maximum steps (default from configuration)")
	flag.DurationVar(&cli.Timeout, "timeout", 0, "Wall-clock budget for the run, e.g. 5m (default from configuration)")
	flag.StringVar(&cli.OutputDir, "output", "", "Artifact output directory")
	flag.StringVar(&cli.Verbosity, "verbosity", "", "Console verbosity: quiet, normal, verbose or debug")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "webpilot-headless - run one browser goal without the server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: webpilot-headless [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run with inline goal\n")
		fmt.Fprintf(os.Stderr, "  webpilot-headless -goal \"Open example.com and report the heading\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Run with run file\n")
		fmt.Fprintf(os.Stderr, "  webpilot-headless -run run.yaml\n\n")
	}

	flag.Parse()
	return cli
}

// run executes the headless mode
func run(ctx context.Context, cli *CLIConfig) error {
	runConfig, err := loadRunConfig(cli)
	if err != nil {
		return fmt.Errorf("failed to load run configuration: %w", err)
	}

	if envErr := config.LoadDotEnv(cli.EnvFile); envErr != nil {
		return envErr
	}
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	if envErr := cfg.ApplyEnv(); envErr != nil {
		return envErr
	}
	// A single goal never needs more than one session
	cfg.Tasks.MaxConcurrent = 1
	cfg.Tasks.Admission = config.AdmissionReject
	if validationErr := cfg.Validate(); validationErr != nil {
		return fmt.Errorf("invalid configuration: %w", validationErr)
	}

	rt, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if closeErr := rt.Close(shutdownCtx); closeErr != nil {
			log.Printf("Runtime shutdown: %v", closeErr)
		}
	}()

	executor, err := headless.NewExecutor(rt.Manager, runConfig)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	if _, err := executor.Run(ctx); err != nil {
		return err
	}
	return nil
}

// loadRunConfig loads the run from file or CLI arguments. Flags override
// run file values when set.
func loadRunConfig(cli *CLIConfig) (*headless.Config, error) {
	runConfig := headless.DefaultConfig()
	if cli.RunFile != "" {
		loaded, err := headless.LoadConfig(cli.RunFile)
		if err != nil {
			return nil, err
		}
		runConfig = loaded
	}

	if cli.Goal != "" {
		runConfig.Goal = cli.Goal
	}
	if runConfig.Goal == "" {
		return nil, fmt.Errorf("goal is required when not using a run file")
	}
	if cli.MaxIterations > 0 {
		runConfig.MaxIterations = cli.MaxIterations
	}
	if cli.Timeout > 0 {
		runConfig.TimeoutSeconds = int(cli.Timeout.Seconds())
	}
	if cli.OutputDir != "" {
		runConfig.Artifacts.OutputDir = cli.OutputDir
	}
	if cli.Verbosity != "" {
		runConfig.Logging.Verbosity = cli.Verbosity
	}

	if err := runConfig.Validate(); err != nil {
		return nil, err
	}
	return runConfig, nil
}
