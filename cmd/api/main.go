package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfman30/voicemail-notifier/cmd/mainconfig"
	appconfig "github.com/wolfman30/voicemail-notifier/internal/config"
	"github.com/wolfman30/voicemail-notifier/internal/notify"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

func main() {
	// Load configuration
	cfg, err := appconfig.Load()
	if err != nil {
		logging.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voicemail-notifier API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	pipeline, err := mainconfig.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	logTransportPlan(logger, pipeline.Selector.Plan())

	srv := newServer(cfg.Port, pipeline.Router(), cfg.SendTimeout)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// newServer sizes the write timeout to fit one account provisioning plus
// one send.
func newServer(port string, h http.Handler, sendTimeout time.Duration) *http.Server {
	write := 15 * time.Second
	if budget := 2*sendTimeout + 5*time.Second; budget > write {
		write = budget
	}
	return &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: write,
		IdleTimeout:  60 * time.Second,
	}
}

func logTransportPlan(logger *logging.Logger, plan []notify.Candidate) {
	for _, c := range plan {
		logger.Info("email transport candidate", "transport", c.Kind, "ready", c.Ready, "missing", c.Missing)
	}
}
