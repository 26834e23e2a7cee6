package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	logistics "github.com/hansjooseptammerik/logistics-automation-mvp"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading .env", "error", err)
	}

	cfg := logistics.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = logistics.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	cfg.ApplyEnv()

	apiKey := os.Getenv("LOGISTICS_API_KEY")
	corsOrigins := os.Getenv("LOGISTICS_CORS_ORIGINS")

	engine, err := logistics.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	reg := newRegistry()
	m := newMetrics(reg)
	reg.MustRegister(newOrderCollector(engine.StatusCounts))

	h := newHandler(engine, m, cfg.MaxUploadBytes)
	mux := h.routes(reg)

	// Outermost first: panics, CORS preflight, API key, access log, routes.
	var handler http.Handler = mux
	handler = accessLog(m, handler)
	handler = requireAPIKey(apiKey, handler)
	handler = allowOrigins(corsOrigins, handler)
	handler = recoverPanics(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
