// Entry point for the finflowd fact-sheet QA service: chi HTTP API by
// default, MCP over stdio with -mcp.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finflow/finflow/embedder"
	"github.com/finflow/finflow/fetch"
	"github.com/finflow/finflow/llm"
	"github.com/finflow/finflow/pdftext"
	"github.com/finflow/finflow/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	flag.Parse()

	_ = godotenv.Load()

	cfg := pipeline.DefaultServiceConfig()
	if *configPath != "" {
		var err error
		cfg, err = pipeline.LoadServiceConfig(*configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	applyEnv(cfg)

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// In MCP stdio mode, stdout belongs to the protocol.
	logOut := os.Stdout
	if *mcpStdio {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Collaborators.
	cfg.Embedding.Logger = logger
	cfg.Completion.Logger = logger
	cfg.Fetch.Logger = logger
	cfg.Extract.Logger = logger
	cfg.Store.Logger = logger

	pipeCfg := cfg.Pipeline
	pipeCfg.Store = cfg.Store
	pipeCfg.Logger = logger

	pipe, err := pipeline.New(pipeCfg, pipeline.Deps{
		Fetcher:   fetch.New(cfg.Fetch),
		Extractor: pdftext.New(cfg.Extract),
		Embedder:  embedder.New(cfg.Embedding),
		Completer: llm.New(cfg.Completion),
	})
	if err != nil {
		slog.Error("pipeline", "error", err)
		os.Exit(1)
	}
	defer pipe.Close()

	if *mcpStdio {
		runMCP(ctx, pipe)
		return
	}
	runHTTP(ctx, cfg.Listen, pipe)
}

// applyEnv overrides config with environment variables. Secrets only live in
// the environment, never in the YAML file.
func applyEnv(cfg *pipeline.ServiceConfig) {
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("INDEX_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("EMBEDDING_ENDPOINT"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("COMPLETION_ENDPOINT"); v != "" {
		cfg.Completion.Endpoint = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
		cfg.Completion.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("COMPLETION_API_KEY"); v != "" {
		cfg.Completion.APIKey = v
	}
}

func runMCP(ctx context.Context, pipe *pipeline.Pipeline) {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "finflow",
		Version: "1.0.0",
	}, nil)
	pipe.RegisterMCP(srv)

	slog.Info("MCP server starting", "transport", "stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("MCP server", "error", err)
		os.Exit(1)
	}
	slog.Info("MCP server stopped")
}

func runHTTP(ctx context.Context, listen string, pipe *pipeline.Pipeline) {
	srv := &http.Server{
		Addr:              listen,
		Handler:           pipe.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute, // compare runs two full pipelines
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", listen)
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
