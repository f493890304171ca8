// Command dispatchd runs the in-memory dispatch stub used for local
// development and end-to-end exercises of the agent.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driverapp/internal/devserver"
	"driverapp/internal/logging"
)

func main() {
	port := os.Getenv("DISPATCHD_PORT")
	if port == "" {
		port = "8080"
	}
	secret := os.Getenv("DISPATCHD_JWT_SECRET")
	if secret == "" {
		secret = "dev-only-secret"
	}
	level := os.Getenv("DISPATCHD_LOG_LEVEL")
	if level == "" {
		level = "INFO"
	}

	logger := logging.New(level, os.Stdout)
	stub := devserver.New(secret, logger)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      stub.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("dispatch stub listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
