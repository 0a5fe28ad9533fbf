package main

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/shkkonda/eml-viewer/internal/auth"
	"github.com/shkkonda/eml-viewer/internal/blobstore"
	"github.com/shkkonda/eml-viewer/internal/config"
	"github.com/shkkonda/eml-viewer/internal/handlers"
	"github.com/shkkonda/eml-viewer/web"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", cfg.KeyPrefix),
		zap.Int("workers", cfg.Workers))

	// Connect to the blob store
	store, err := blobstore.NewS3Store(context.Background(), cfg.Region)
	if err != nil {
		logger.Fatal("failed to create S3 store", zap.Error(err))
	}

	// Initialize handlers with embedded templates
	sessions := auth.NewSessionStore()
	h := handlers.New(store, cfg, sessions, logger)
	if err := h.LoadTemplates(web.Assets); err != nil {
		logger.Fatal("failed to load templates", zap.Error(err))
	}

	// Warm the dashboard with an initial pipeline run
	go func() {
		if _, err := h.RunPipeline(context.Background(), nil); err != nil {
			logger.Warn("initial pipeline run failed", zap.Error(err))
		}
	}()

	// Set up router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/login", h.ShowLogin)
	r.Post("/login", h.HandleLogin)

	// Routes behind the login gate
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireSession)
		r.Get("/", h.Index)
		r.Get("/attachments/download", h.DownloadAttachment)
		r.Post("/refresh", h.Refresh)
		r.Get("/refresh/progress", h.RefreshProgressSSE)
		r.Post("/logout", h.Logout)
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // Increased for SSE connections
		IdleTimeout:  60 * time.Second,
	}

	// Create shutdown signal channel
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("url", cfg.URL()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Auto-open browser
	time.Sleep(500 * time.Millisecond) // Give server time to start
	if err := openBrowser(cfg.URL()); err != nil {
		logger.Info("open your browser manually", zap.String("url", cfg.URL()))
	}

	// Wait for interrupt signal
	<-sigChan
	logger.Info("shutting down gracefully")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	return cmd.Start()
}
