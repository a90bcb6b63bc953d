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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/habituo/habit-engine/api"
)

// ServeCmd runs the HTTP API until SIGINT/SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait for active requests to complete (30s timeout)
//  3. Stop the analytics refresher
//  4. Close the store
type ServeCmd struct {
	Port             int           `help:"HTTP server port." default:"8080" env:"HABITUO_PORT"`
	CORSOrigins      []string      `name:"cors-origins" help:"Allowed CORS origins." env:"HABITUO_CORS_ORIGINS"`
	CompleteRate     float64       `help:"Completion requests per second per user (0 disables)." default:"2"`
	CompleteBurst    int           `help:"Completion request burst per user." default:"5"`
	AnalyticsRefresh time.Duration `help:"Global analytics refresh interval (0 computes per request)." default:"5m"`
	Scenarios        bool          `help:"Expose the demo scenario and reset endpoints."`
	Scenario         string        `help:"Load this demo scenario at startup (resets the store)."`
}

func (c *ServeCmd) Run(app *App) error {
	logger := app.Logger

	s, closeStore, err := app.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer closeStore()

	tracker, err := app.Tracker(s)
	if err != nil {
		return err
	}

	if c.Scenario != "" {
		seed, ok := s.(api.SeedStore)
		if !ok {
			return fmt.Errorf("store backend %s cannot load scenarios", app.Config.StoreBackend)
		}
		if err := api.LoadScenario(context.Background(), seed, c.Scenario, tracker.Today()); err != nil {
			return err
		}
		logger.Info("scenario loaded", zap.String("scenario", c.Scenario))
	}

	handler := api.NewHandler(s, tracker, logger)
	if c.AnalyticsRefresh > 0 {
		handler.Analytics.Interval = c.AnalyticsRefresh
	} else {
		handler.Analytics.Enabled = false
	}

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:  c.CORSOrigins,
		CompleteRate:    c.CompleteRate,
		CompleteBurst:   c.CompleteBurst,
		EnableScenarios: c.Scenarios || c.Scenario != "",
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", c.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler.Analytics.Start()
	defer handler.Analytics.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			zap.Int("port", c.Port),
			zap.String("backend", app.Config.StoreBackend),
			zap.String("streak_rule", string(tracker.Rule())),
			zap.String("time_zone", app.Config.TimeZone))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
