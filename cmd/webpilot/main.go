// Package main provides the webpilot agent server.
// It accepts browser goals over HTTP, runs them with the plan, act and
// observe loop and streams step events over websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/webpilot/pkg/app"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/server"
)

const (
	version = "0.1.0" // Version of the webpilot server

	shutdownTimeout = 30 * time.Second // Grace period for running tasks on shutdown
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	EnvFile     string
	Addr        string
	Model       string
	ShowVersion bool
}

func main() {
	// Parse command line flags
	cli := parseFlags()

	// Show version if requested
	if cli.ShowVersion {
		fmt.Printf("webpilot v%s\n", version)
		return
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cli); err != nil {
		cancel()
		log.Fatalf("Server error: %v", err)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.EnvFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
	flag.StringVar(&cli.Addr, "addr", "", "Listen address (overrides server.addr)")
	flag.StringVar(&cli.Model, "model", "", "LLM model to use (overrides llm.model)")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "webpilot - goal-directed browser agent server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: webpilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     OpenAI API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL    OpenAI API base URL (for compatible APIs)\n")
		fmt.Fprintf(os.Stderr, "  WEBPILOT_*         Overrides for model, browser, admission and logging\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  webpilot -addr :8000\n")
		fmt.Fprintf(os.Stderr, "  webpilot -config webpilot.yaml\n")
	}

	flag.Parse()
	return cli
}

// loadConfig resolves configuration from file, environment and flags, in
// that order of increasing precedence.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	if err := config.LoadDotEnv(cli.EnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	}
	if cli.Model != "" {
		cfg.LLM.Model = cli.Model
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run serves the API until ctx is canceled
func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	rt, err := app.New(cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(rt.Manager).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("webpilot v%s listening on %s", version, cfg.Server.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		fmt.Println("\n\nShutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("HTTP shutdown: %v", shutdownErr)
	}
	if closeErr := rt.Close(shutdownCtx); closeErr != nil {
		log.Printf("Runtime shutdown: %v", closeErr)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
