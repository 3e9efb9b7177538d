package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TylerWon/chat-rooms/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"chat_rx", snap.ChatRx,
					"chat_tx", snap.ChatTx,
					"replies", snap.Replies,
					"joins", snap.Joins,
					"users", snap.Users,
					"malformed", snap.Malformed,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
