package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/habituo/habit-engine/config"
	"github.com/habituo/habit-engine/habit"
	"github.com/habituo/habit-engine/habit/store"
	"github.com/habituo/habit-engine/remote"
	"github.com/habituo/habit-engine/store/sqlstore"
)

// App is passed to every command's Run.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Out    io.Writer
}

// OpenStore builds the configured backend. The returned close func is
// never nil.
func (a *App) OpenStore() (habit.Store, func(), error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemory(), func() {}, nil

	case "sqlite", "postgres":
		dialect, err := sqlstore.ParseDialect(cfg.StoreBackend)
		if err != nil {
			return nil, nil, err
		}
		s, err := sqlstore.Open(dialect, cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		a.Logger.Info("store opened", zap.String("backend", cfg.StoreBackend))
		return s, func() {
			if err := s.Close(); err != nil {
				a.Logger.Warn("store close failed", zap.Error(err))
			}
		}, nil

	case "remote":
		c, err := remote.NewClient(remote.Config{
			BaseURL:       cfg.RemoteURL,
			RatePerSecond: cfg.RemoteRate,
			Burst:         cfg.RemoteBurst,
			Timeout:       cfg.RemoteTimeout,
			Logger:        a.Logger,
		})
		if err != nil {
			return nil, nil, err
		}
		a.Logger.Info("using upstream service", zap.String("url", cfg.RemoteURL))
		return c, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Tracker wraps s with the configured calendar and streak rule.
func (a *App) Tracker(s habit.Store) (*habit.Tracker, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}
	return habit.NewTracker(s, habit.TrackerConfig{
		Rule:     a.Config.Rule(),
		Location: loc,
		Logger:   a.Logger,
	}), nil
}
