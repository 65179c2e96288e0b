package worker

import (
	"context"
	"log/slog"
	"time"
)

// RatesRefresher fetches and stores the price table.
type RatesRefresher interface {
	Refresh(ctx context.Context) error
}

// RatesWorker periodically refreshes the price table.
type RatesWorker struct {
	refresher RatesRefresher
	interval  time.Duration
}

// NewRatesWorker creates a new RatesWorker.
func NewRatesWorker(refresher RatesRefresher, interval time.Duration) *RatesWorker {
	return &RatesWorker{
		refresher: refresher,
		interval:  interval,
	}
}

// Run starts the rates worker loop. It blocks until the context is cancelled.
func (w *RatesWorker) Run(ctx context.Context) {
	slog.Info("RatesWorker: starting")

	// Refresh immediately on startup
	if err := w.refresher.Refresh(ctx); err != nil {
		slog.Error("RatesWorker: initial refresh failed", "error", err)
	} else {
		slog.Info("RatesWorker: initial refresh completed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RatesWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.refresher.Refresh(ctx); err != nil {
				slog.Error("RatesWorker: refresh failed", "error", err)
			} else {
				slog.Debug("RatesWorker: refresh completed")
			}
		}
	}
}
