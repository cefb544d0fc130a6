package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/app"
	"github.com/Dan9191/allowance-service/internal/config"
	"github.com/Dan9191/allowance-service/internal/handler"
	"github.com/Dan9191/allowance-service/internal/integrations/balance"
	"github.com/Dan9191/allowance-service/internal/middleware"
	"github.com/Dan9191/allowance-service/internal/scheduler"
	"github.com/Dan9191/allowance-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Initialize layers
	var balanceClient service.BalanceUpdater
	if cfg.AuthServiceURL != "" {
		balanceClient = balance.NewClient(cfg.AuthServiceURL, logger)
	} else {
		logger.Warn("AUTH_SERVICE_URL not set, balances will not be synced")
	}
	svc := service.NewService(store, balanceClient, logger)
	agg, cleanup := app.NewAggregator(cfg, store, logger)
	defer cleanup()
	h := handler.NewHandler(svc, agg, logger)

	// Weekly summary schedule
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Failed to load timezone: %v", err)
	}
	sched, err := scheduler.New(cfg.Summary.Cron, loc, agg, logger)
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}
	sched.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, middleware.AuthMiddleware(cfg)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("Weekly summary run still in progress at shutdown")
	}
}
