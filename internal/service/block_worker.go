package service

import (
	"context"
	"fmt"
	"time"

	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
)

// ClosedMarketNotifier is told about markets whose betting window just closed
type ClosedMarketNotifier interface {
	NotifyMarketClosed(m ledger.Market) error
}

// BlockWorker advances the logical block height on a fixed interval
type BlockWorker struct {
	runtime  *Runtime
	interval time.Duration
	notifier ClosedMarketNotifier
}

// NewBlockWorker creates a worker producing one block per interval
func NewBlockWorker(rt *Runtime, interval time.Duration) *BlockWorker {
	return &BlockWorker{
		runtime:  rt,
		interval: interval,
	}
}

// SetNotifier sets the notifier for closed markets
func (w *BlockWorker) SetNotifier(n ClosedMarketNotifier) {
	w.notifier = n
}

// Run produces blocks until ctx is cancelled
func (w *BlockWorker) Run(ctx context.Context) error {
	logger.Debug("", "block_worker_started", fmt.Sprintf("interval=%v height=%d", w.interval, w.runtime.BlockHeight()))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			logger.Debug("", "block_worker_stopped", "")
			return nil
		}
	}
}

// tick advances one block and reports markets that closed with it
func (w *BlockWorker) tick(ctx context.Context) {
	height, closed, err := w.runtime.AdvanceBlock(ctx)
	if err != nil {
		logger.Error("", "block_advance_failed", err)
		return
	}

	if len(closed) == 0 {
		return
	}
	logger.Debug("", "markets_closed", fmt.Sprintf("height=%d count=%d", height, len(closed)))

	if w.notifier != nil {
		for _, m := range closed {
			if err := w.notifier.NotifyMarketClosed(m); err != nil {
				logger.Error(m.Creator, "market_closed_notify_failed", err)
			}
		}
	}
}
