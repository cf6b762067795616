package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/config"
	"github.com/moolen/flare/internal/logging"
	"github.com/moolen/flare/internal/mcp"
	"github.com/moolen/flare/internal/tracing"
)

var (
	httpAddr        string
	transportType   string
	mcpEndpointPath string
	awsRegion       string
	awsProfile      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server that exposes
the flare diagnostic tools for AI assistants.

Supports two transport modes:
  - http: HTTP server mode (default, suitable for independent deployment)
  - stdio: Standard input/output mode (for subprocess-based MCP clients)

HTTP mode includes /health and /metrics endpoints.`,
	Run: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&httpAddr, "http-addr", getEnv("MCP_HTTP_ADDR", ":8082"), "HTTP server address (host:port)")
	mcpCmd.Flags().StringVar(&transportType, "transport", "http", "Transport type: http or stdio")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", getEnv("MCP_ENDPOINT", "/mcp"), "HTTP endpoint path for MCP requests")
	mcpCmd.Flags().StringVar(&awsRegion, "region", "", "AWS region to query (defaults to the SDK resolution chain)")
	mcpCmd.Flags().StringVar(&awsProfile, "profile", "", "AWS shared-config profile to use")
}

func runMCP(cmd *cobra.Command, args []string) {
	// The stdio transport owns stdout for the protocol stream, so
	// logging must move to stderr before the first line is written.
	if transportType == "stdio" {
		logging.UseStderrOnly()
	}
	if err := setupLog(logLevelFlags); err != nil {
		HandleError(err, "Failed to setup logging")
	}
	logger := logging.GetLogger("mcp")
	logger.Info("Starting Flare MCP Server (transport: %s)", transportType)

	cfg, err := config.Load(configFilePath)
	if err != nil {
		HandleError(err, "Failed to load configuration")
	}
	if awsRegion != "" {
		cfg.Region = awsRegion
	}
	if awsProfile != "" {
		cfg.Profile = awsProfile
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients, err := awsapi.NewClients(ctx, awsapi.Options{
		Region:   cfg.Region,
		Profile:  cfg.Profile,
		Endpoint: cfg.Endpoint,
	})
	if err != nil {
		logger.Fatal("Failed to create AWS clients: %v", err)
	}

	tracingProvider, err := tracing.NewTracingProvider(tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		TLSCAPath:   cfg.TracingTLSCAPath,
		TLSInsecure: cfg.TracingTLSInsecure,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracingProvider.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping tracing provider: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	flareServer, err := mcp.NewServer(mcp.ServerOptions{
		Version: Version,
		Config:  cfg,
		Clients: clients,
		Tracing: tracingProvider,
		Metrics: mcp.NewMetrics(registry, "flare"),
	})
	if err != nil {
		logger.Fatal("Failed to create MCP server: %v", err)
	}

	// Get the underlying mcp-go server
	mcpServer := flareServer.GetMCPServer()

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal: %v, shutting down gracefully...", sig)
		cancel()
	}()

	// Start appropriate transport
	switch transportType {
	case "http":
		// Ensure endpoint path starts with /
		endpointPath := mcpEndpointPath
		if endpointPath == "" {
			endpointPath = "/mcp"
		} else if endpointPath[0] != '/' {
			endpointPath = "/" + endpointPath
		}

		logger.Info("Starting HTTP server on %s (endpoint: %s)", httpAddr, endpointPath)

		// Create custom mux with health and metrics endpoints
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		httpSrv := &http.Server{
			Addr:              httpAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second, // Prevent Slowloris attacks
		}

		// Stateless session management keeps the server compatible with
		// clients that don't manage sessions.
		streamableServer := server.NewStreamableHTTPServer(
			mcpServer,
			server.WithEndpointPath(endpointPath),
			server.WithStateLess(true),
			server.WithStreamableHTTPServer(httpSrv),
		)
		mux.Handle(endpointPath, streamableServer)

		// Start server in goroutine
		errCh := make(chan error, 1)
		go func() {
			if err := streamableServer.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// Wait for shutdown signal or error
		select {
		case <-ctx.Done():
			logger.Info("Shutting down HTTP server...")
			// Use a timeout context for shutdown (don't hang forever)
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := streamableServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown: %v", err)
			}
		case err := <-errCh:
			logger.Fatal("Server error: %v", err)
		}

	case "stdio":
		logger.Info("Starting stdio transport")
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error("Stdio transport error: %v", err)
		}

	default:
		logger.Fatal("Invalid transport type: %s (must be 'http' or 'stdio')", transportType)
	}

	logger.Info("Server stopped")
}
