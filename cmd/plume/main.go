// Entry point for the plume content-generation service: chi router behind
// the shield stack, SQLite observability, optional MCP stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/plume/agent"
	"github.com/hazyhaar/plume/dbopen"
	"github.com/hazyhaar/plume/llm"
	"github.com/hazyhaar/plume/observability"
	"github.com/hazyhaar/plume/shield"
)

func main() {
	port := env("PORT", "8080")
	configPath := env("CONFIG_FILE", "")
	obsDBPath := env("OBSERVABILITY_DB", "db/observability.db")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Service config.
	cfg, err := agent.LoadConfig(configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Observability DB (separate from any app data to avoid write contention).
	obsDB, err := dbopen.Open(obsDBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("observability db", "error", err)
		os.Exit(1)
	}
	defer obsDB.Close()
	if err := observability.Init(obsDB); err != nil {
		slog.Error("observability schema", "error", err)
		os.Exit(1)
	}
	events := observability.NewEventLogger(obsDB)
	metrics := observability.NewMetricsManager(obsDB, 100, 5*time.Second)
	defer metrics.Close()
	httpLog := observability.NewHTTPLogger(obsDB, 1000)
	defer httpLog.Close()

	// Generative-text client, capped by a process-wide budget.
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	var client llm.Client
	client, err = llm.NewOpenAI(llm.Settings{
		Model:   env("OPENAI_MODEL", "gpt-4o-mini"),
		APIKey:  apiKey,
		BaseURL: env("OPENAI_BASE_URL", ""),
	})
	if err != nil {
		slog.Error("llm client", "error", err)
		os.Exit(1)
	}
	if cpm := envInt("LLM_CALLS_PER_MINUTE", 60); cpm > 0 {
		client = llm.WithBudget(client, cpm, 5)
	}

	// Service.
	svc, err := agent.New(cfg, client,
		agent.WithLogger(logger),
		agent.WithEvents(events),
		agent.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("agent service", "error", err)
		os.Exit(1)
	}

	// Optional MCP stdio transport: serve the tools and exit on disconnect.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "plume",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio serving")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Rate limiter with background cleanup of idle windows.
	limiter := shield.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window, "/health")
	limiterDone := make(chan struct{})
	defer close(limiterDone)
	limiter.StartGC(limiterDone)

	// Router.
	r := chi.NewRouter()
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxBody(5 << 20))
	r.Use(shield.TraceID)
	if origins := env("CORS_ORIGINS", ""); origins != "" {
		r.Use(shield.CORS(strings.Split(origins, ",")))
	}
	r.Use(httpLog.Middleware)
	r.Use(limiter.Middleware)
	svc.RegisterHTTP(r)

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
