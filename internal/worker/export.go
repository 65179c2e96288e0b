package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/snxdash/internal/domain"
)

// HoldingsExporter writes a wallet's holdings to a spreadsheet.
type HoldingsExporter interface {
	Export(ctx context.Context, session domain.Session) error
}

// ExportWorker periodically exports one wallet's holdings.
type ExportWorker struct {
	exporter HoldingsExporter
	session  domain.Session
	interval time.Duration
}

// NewExportWorker creates a new ExportWorker for the wallet in session.
func NewExportWorker(exporter HoldingsExporter, session domain.Session, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		exporter: exporter,
		session:  session,
		interval: interval,
	}
}

func (w *ExportWorker) export(ctx context.Context) {
	if err := w.exporter.Export(ctx, w.session); err != nil {
		slog.Error("ExportWorker: export failed", "wallet", w.session.WalletAddress, "error", err)
		return
	}
	slog.Info("ExportWorker: export completed", "wallet", w.session.WalletAddress)
}

// Run starts the export worker loop. It blocks until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context) {
	slog.Info("ExportWorker: starting", "wallet", w.session.WalletAddress, "interval", w.interval)

	w.export(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ExportWorker: shutting down")
			return
		case <-ticker.C:
			w.export(ctx)
		}
	}
}
