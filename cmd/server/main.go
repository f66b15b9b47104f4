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

	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/config"
	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/ipc"
	"github.com/therealutkarshpriyadarshi/vamanadb/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	// Parse command-line flags
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		configFile  = flag.String("config", "", "path to configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("vamana-server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Show help
	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	// Print banner
	printBanner()

	// Load configuration
	cfg := loadConfig(*configFile)

	// Override with command-line flags
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(observability.INFO, os.Stdout)
	metrics := observability.NewMetrics()

	// Print startup info
	printStartupInfo(cfg)

	server := ipc.NewServer(cfg.Server, logger, metrics)

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		log.Println("Starting IPC server...")
		if err := server.ListenAndServe(ctx); err != nil {
			errChan <- fmt.Errorf("IPC server error: %w", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for shutdown signal or error
	log.Println("Server is ready. Press Ctrl+C to stop.")
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown: cancel stops the listener; ListenAndServe waits for
	// in-flight connections before returning, and main waits for that up to
	// the configured shutdown timeout.
	log.Println("Shutting down gracefully...")
	cancel()
	select {
	case <-serveDone:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Println("Shutdown timeout reached, exiting with connections still open")
	}

	log.Println("Server stopped. Goodbye!")
}

func loadConfig(configFile string) *config.Config {
	// TODO: support loading from YAML/JSON config file
	if configFile != "" {
		log.Printf("Warning: config file support not yet implemented, using environment variables")
	}

	// Load from environment variables
	cfg := config.LoadFromEnv()

	return cfg
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   __     __        _              ____  ____              ║
║   \ \   / /__  ___| |_ ___  _ __ |  _ \| __ )             ║
║    \ \ / / _ \/ __| __/ _ \| '__|| | | |  _ \             ║
║     \ V /  __/ (__| || (_) | |   | |_| | |_) |            ║
║      \_/ \___|\___|\__\___/|_|   |____/|____/             ║
║                                                           ║
║   In-Memory Proximity-Graph Vector Index, IPC Edition    ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║            IPC Server Configuration                    ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ Max Connections:  %-35d ║\n", cfg.Server.MaxConnections)
	fmt.Printf("║ Rate Limit:       %-35s ║\n", fmt.Sprintf("%.1f req/s (burst: %d)", cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	fmt.Printf("║ Auth Required:    %-35v ║\n", cfg.Server.JWTSecret != "")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Index Defaults                          ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Dimension:        %-35d ║\n", cfg.Index.Dimension)
	fmt.Printf("║ Similarity:       %-35s ║\n", cfg.Index.Similarity)
	fmt.Printf("║ M:                %-35d ║\n", cfg.Index.M)
	fmt.Printf("║ efConstruction:   %-35d ║\n", cfg.Index.EfConstruction)
	fmt.Printf("║ Alpha:            %-35.2f ║\n", cfg.Index.Alpha)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Product Quantization                     ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Enabled:          %-35v ║\n", cfg.PQ.Enabled)
	fmt.Printf("║ Subvectors:       %-35d ║\n", cfg.PQ.NumSubvectors)
	fmt.Printf("║ Centered:         %-35v ║\n", cfg.PQ.Centered)
	fmt.Printf("║ Rerank Factor:    %-35d ║\n", cfg.PQ.RerankFactor)
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("vamana-server - in-memory proximity-graph vector index, IPC edition")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vamana-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -config PATH      Accepted but ignored; configuration comes from environment variables")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 7070)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  VAMANA_HOST                 Server host")
	fmt.Println("  VAMANA_PORT                 Server port")
	fmt.Println("  VAMANA_MAX_CONNECTIONS      Max concurrent connections (validated and shown, not enforced)")
	fmt.Println("  VAMANA_REQUEST_TIMEOUT      Per-command timeout (e.g., 30s)")
	fmt.Println("  VAMANA_RATE_LIMIT_RPS       Per-connection requests/sec")
	fmt.Println("  VAMANA_RATE_LIMIT_BURST     Per-connection burst size")
	fmt.Println("  VAMANA_JWT_SECRET           When set, commands require AUTH first")
	fmt.Println("  VAMANA_DIMENSION            Default index dimension")
	fmt.Println("  VAMANA_SIMILARITY           Default similarity metric")
	fmt.Println("  VAMANA_M                    Default max neighbors per node")
	fmt.Println("  VAMANA_EF_CONSTRUCTION      Default build-time beam width")
	fmt.Println("  VAMANA_ALPHA                Default RobustPrune occlusion factor")
	fmt.Println("  VAMANA_PQ_ENABLED           Enable PQ by default")
	fmt.Println("  VAMANA_PQ_SUBVECTORS        Default PQ subspace count")
	fmt.Println("  VAMANA_PQ_CENTERED          Default PQ centering")
	fmt.Println("  VAMANA_PQ_RERANK_FACTOR     Default PQ rerank over-fetch factor")
	fmt.Println()
	fmt.Println("  The index and PQ variables (VAMANA_DIMENSION onward) are validated and")
	fmt.Println("  shown at startup; CREATE and OPTIMIZE do not read them.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Start with default configuration")
	fmt.Println("  vamana-server")
	fmt.Println()
	fmt.Println("  # Start on custom port")
	fmt.Println("  vamana-server -port 8080")
	fmt.Println()
	fmt.Println("  # Start with environment variables")
	fmt.Println("  VAMANA_PORT=8080 VAMANA_M=32 vamana-server")
	fmt.Println()
}
