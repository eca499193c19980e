package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/a3tai/mcp-pdf-labeler/internal/config"
	"github.com/a3tai/mcp-pdf-labeler/internal/label"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/oracle"
	"github.com/a3tai/mcp-pdf-labeler/internal/mcp"
	"github.com/a3tai/mcp-pdf-labeler/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		// Reduce log verbosity in stdio mode unless debug is enabled
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		// In server and batch modes, use normal stdout logging with more detail
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// newOracle builds the decision oracle named by the configuration.
func newOracle(cfg *config.Config) (oracle.Oracle, error) {
	switch cfg.OracleProvider {
	case config.OracleRules:
		return oracle.NewRulesOracle(0), nil
	case config.OracleGemini:
		inner, err := oracle.NewGeminiOracle(oracle.GeminiConfig{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: time.Duration(cfg.OracleTimeout) * time.Second,
			Debug:   cfg.IsDebug(),
		})
		if err != nil {
			return nil, err
		}
		return oracle.WithRetry(inner, cfg.RetryBound), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s", cfg.OracleProvider)
	}
}

// newLabelService opens the corpus store, loads the corpus, and wires
// the label service. The returned cleanup closes the store.
func newLabelService(cfg *config.Config) (*label.Service, func(), error) {
	store, err := corpus.OpenStore(corpus.DriverType(cfg.CorpusDriver), cfg.CorpusPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open corpus store: %w", err)
	}

	crp, err := corpus.Load(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	orc, err := newOracle(cfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	svc, err := label.NewService(label.Config{
		Corpus:      crp,
		Oracle:      orc,
		OracleName:  cfg.OracleProvider,
		StorePath:   cfg.CorpusPath,
		StoreDriver: cfg.CorpusDriver,
		Pipeline: pipeline.Options{
			InputDir:    cfg.InputDirectory,
			OutputDir:   cfg.EffectiveOutputDirectory(),
			Workers:     cfg.Workers,
			Filter:      cfg.PDFFilter,
			CheckOnly:   cfg.CheckOnly,
			MaxFileSize: cfg.MaxFileSize,
			TopK:        cfg.TopK,
			RetryBound:  cfg.RetryBound,
			Debug:       cfg.IsDebug(),
		},
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close corpus store: %v", err)
		}
	}
	return svc, cleanup, nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil && err != context.Canceled {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error

	// Start server and wait for it to complete
	if err := server.Run(ctx); err != nil {
		// Only log to stderr in debug mode to avoid protocol interference
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

// runBatchMode executes one labeling pass over the input directory and
// prints the run summary. A nonzero exit code means at least one
// document failed.
func runBatchMode(ctx context.Context, cancel context.CancelFunc, svc *label.Service, closeStore func()) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-signalCh
		log.Printf("Received signal: %s, stopping run", sig)
		cancel()
	}()

	stats, err := svc.RunBatch(ctx)
	if err != nil {
		closeStore()
		log.Fatalf("Batch run failed: %v", err)
	}

	printRunStats(stats)

	if stats.Failed > 0 {
		closeStore()
		os.Exit(1)
	}
}

// printRunStats writes the batch run summary to stdout.
func printRunStats(stats *pipeline.RunStats) {
	fmt.Printf("Run %s finished in %s\n", stats.RunID, stats.Duration.Round(time.Millisecond))
	fmt.Printf("  Scanned:        %d\n", stats.Scanned)
	fmt.Printf("  Already done:   %d\n", stats.AlreadyDone)
	fmt.Printf("  Selected:       %d\n", stats.Selected)

	if stats.CheckOnly {
		for _, name := range stats.Pending {
			fmt.Printf("  pending: %s\n", name)
		}
		return
	}

	fmt.Printf("  Succeeded:      %d\n", stats.Succeeded)
	fmt.Printf("  Failed:         %d\n", stats.Failed)
	fmt.Printf("  Fields labeled: %d\n", stats.TotalFields)
	fmt.Printf("  Labels created: %d\n", stats.LabelsCreated)
	fmt.Printf("  Labels matched: %d\n", stats.LabelsMatched)

	for _, outcome := range stats.Outcomes {
		if outcome.Failed() {
			fmt.Printf("  FAILED %s: %s\n", outcome.Input, outcome.Err)
		}
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && !cfg.IsStdioMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Load the corpus and assemble the label service
	labelService, closeStore, err := newLabelService(cfg)
	if err != nil {
		log.Fatalf("Failed to create label service: %v", err)
	}
	defer closeStore()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsBatchMode() {
		runBatchMode(ctx, cancel, labelService, closeStore)
		return
	}

	server, err := mcp.NewServer(cfg, labelService)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Labeler\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
