package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/config"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
	"github.com/chayan-1906/google-workspace-mcp/internal/resources"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/auth_tools"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/docs_tools"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/drive_tools"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/sheets_tools"
)

// Transport types.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// serveFlags are the serve options that override the config file and
// environment when given explicitly.
type serveFlags struct {
	transport          string
	httpAddr           string
	yolo               bool
	googleClientID     string
	googleClientSecret string
	defaultAccount     string
	storeType          string
	sqlitePath         string
	callbackAddr       string
	noCallbackServer   bool
	metricsAddr        string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Google Drive,
Sheets and Docs tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, for local debugging

Safety Mode:
  By default, the server operates in read-only mode and requests read-only
  Google scopes. Use --yolo to enable write operations (uploads, edits,
  trashing and sharing files).

OAuth Configuration:
  --google-client-id and --google-client-secret flags
  OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars
  OR google.client_id and google.client_secret in the config file.

  Accounts sign in with "google-workspace-mcp auth login" or the auth_start
  tool. Google redirects back to the callback server on --callback-addr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	flags.bind(cmd.Flags())

	return cmd
}

// bind registers the serve flags on fs.
func (f *serveFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	fs.StringVar(&f.httpAddr, "http-addr", "127.0.0.1:8080", "HTTP server address (for streamable-http transport)")
	fs.BoolVar(&f.yolo, "yolo", false, "Enable write operations. Default is read-only mode.")
	fs.StringVar(&f.googleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	fs.StringVar(&f.googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	fs.StringVar(&f.defaultAccount, "default-account", "", "Email used when a tool call names no account. Can also use GWMCP_DEFAULT_ACCOUNT env var.")
	fs.StringVar(&f.storeType, "store-type", "", "Token store type: memory, sqlite or valkey. Can also use GWMCP_STORE_TYPE env var.")
	fs.StringVar(&f.sqlitePath, "sqlite-path", "", "Token database file for the sqlite store. Can also use GWMCP_SQLITE_PATH env var.")
	fs.StringVar(&f.callbackAddr, "callback-addr", "", "OAuth callback server address. Can also use GWMCP_CALLBACK_ADDR env var. Default: "+config.DefaultCallbackAddr)
	fs.BoolVar(&f.noCallbackServer, "no-callback-server", false, "Do not start the OAuth callback server (finish sign-in with auth_complete instead)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus metrics server address. Defaults to "+server.DefaultMetricsAddr+" for streamable-http; stdio serves metrics only when set.")
}

// apply copies explicitly set flags over cfg.
func (f serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("yolo") {
		cfg.ReadOnly = !f.yolo
	}
	if changed("google-client-id") {
		cfg.Google.ClientID = f.googleClientID
	}
	if changed("google-client-secret") {
		cfg.Google.ClientSecret = f.googleClientSecret
	}
	if changed("default-account") {
		cfg.DefaultAccount = f.defaultAccount
	}
	if changed("store-type") {
		cfg.Store.Type = f.storeType
	}
	if changed("sqlite-path") {
		cfg.Store.SQLitePath = f.sqlitePath
	}
	if changed("callback-addr") {
		cfg.CallbackAddr = f.callbackAddr
	}
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	if flags.transport != transportStdio && flags.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", flags.transport)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags.apply(cmd, cfg)

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var audit *instrumentation.AuditLogger
	if instrConfig.Audit.Enabled {
		audit = instrumentation.NewAuditLogger(logger, instrConfig.Audit)
	}

	a, err := newApp(ctx, cfg, logger, provider.Metrics())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close app", logging.Err(err))
		}
	}()

	if !cfg.ReadOnly {
		a.warnReadOnlyGrants(ctx)
	}

	sc, err := a.serverContext(ctx, audit)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc, cfg.ReadOnly); err != nil {
		return err
	}

	if cfg.ReadOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable write operations)",
			slog.String("transport", flags.transport))
	} else {
		logger.Info("starting server with write operations enabled",
			slog.String("transport", flags.transport))
	}

	metricsServer, err := startMetricsServer(flags, provider, logger)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer shutdownServer(logger, "metrics server", metricsServer.Shutdown)
	}

	if !flags.noCallbackServer && !(flags.transport == transportStreamableHTTP && cfg.CallbackAddr == flags.httpAddr) {
		callback := server.NewCallbackServer(cfg.CallbackAddr, sc)
		go func() {
			// Another instance may already own the port; sign-in still works
			// through auth_complete.
			if err := callback.Start(); err != nil {
				logger.Warn("oauth callback server unavailable", logging.Err(err))
			}
		}()
		defer shutdownServer(logger, "oauth callback server", callback.Shutdown)
	}

	switch flags.transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(ctx, mcpSrv, sc, cfg, flags.httpAddr, logger)
	default:
		return runStdioServer(ctx, mcpSrv, logger)
	}
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer(config.AppName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

// startMetricsServer starts the Prometheus endpoint when an address applies
// and the provider exports to Prometheus. It returns nil otherwise.
func startMetricsServer(flags serveFlags, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	addr := flags.metricsAddr
	if addr == "" && flags.transport == transportStreamableHTTP {
		addr = server.DefaultMetricsAddr
	}
	if addr == "" || provider.Handler() == nil {
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:     addr,
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

func shutdownServer(logger *slog.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("error during shutdown", slog.String("server", name), logging.Err(err))
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdioServer := mcpserver.NewStdioServer(mcpSrv)
	stdioServer.SetErrorLogger(slog.NewLogLogger(logging.WithComponent(logger, "stdio").Handler(), slog.LevelError))

	err := stdioServer.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, cfg *config.Config, addr string, logger *slog.Logger) error {
	httpConfig := server.HTTPServerConfig{Addr: addr}
	if cfg.TrustForwardedEmail {
		httpConfig.ForwardedEmailHeader = cfg.ForwardedEmailHeader
		logger.Warn("trusting caller identity from proxy header",
			slog.String("header", cfg.ForwardedEmailHeader))
	}

	httpServer, err := server.NewHTTPServer(mcpSrv, sc, httpConfig)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during HTTP server shutdown: %w", err)
	}
	logger.Info("HTTP server gracefully stopped")
	return nil
}

// registerAllTools registers all MCP tools and resources.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Auth",
			register: func() error {
				return auth_tools.RegisterAuthTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Drive",
			register: func() error {
				return drive_tools.RegisterDriveTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Sheets",
			register: func() error {
				return sheets_tools.RegisterSheetsTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Docs",
			register: func() error {
				return docs_tools.RegisterDocsTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Account Resources",
			register: func() error {
				return resources.RegisterAccountResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
