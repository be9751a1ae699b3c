// Entry point for the XRL view service: chi router, fetch/classify/render
// pipeline, optional MCP stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/xrl/fetcher"
	"github.com/hazyhaar/xrl/render"
	"github.com/hazyhaar/xrl/server"
)

func main() {
	configPath := env("CONFIG", "")
	mcpTransport := env("MCP_TRANSPORT", "")

	var cfg *server.Config
	if configPath != "" {
		var err error
		cfg, err = server.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("load config", "path", configPath, "error", err)
			os.Exit(1)
		}
	} else {
		cfg = server.DefaultConfig()
	}

	// Environment overrides the file.
	cfg.Port = env("PORT", cfg.Port)
	cfg.ImagesDir = env("IMAGES_DIR", cfg.ImagesDir)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.Browser.Remote = env("BROWSER_REMOTE", cfg.Browser.Remote)

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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fetch := fetcher.New(fetcher.WithLogger(logger))

	renderer := render.New(render.Config{
		ImagesDir:     cfg.ImagesDir,
		BrowserRemote: cfg.Browser.Remote,
		WindowWidth:   cfg.Browser.WindowWidth,
		WindowHeight:  cfg.Browser.WindowHeight,
		Logger:        logger,
	})
	go renderer.Run(ctx)

	svc, err := server.New(cfg, fetch, renderer, logger)
	if err != nil {
		slog.Error("server setup", "error", err)
		os.Exit(1)
	}

	// Optional MCP stdio transport alongside HTTP.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "xrl",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
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

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
