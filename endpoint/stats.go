package endpoint

import (
	"context"
	"time"
)

// statsLoop periodically logs channel health: ring occupancy and the
// receive queue's drop counter. It runs on its own goroutine and only reads
// values the SPSC rings and queue already expose non-blockingly, so it never
// touches the realtime callback's state directly — grounded on the
// teacher's src/audio_stats.go, which likewise samples counters from a
// worker thread rather than the audio callback itself.
func (h *Handle) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.log.Info("channel stats",
				"msg_ring_pending", h.msgRing.ReadAvailable(),
				"samp_ring_pending", h.sampRing.ReadAvailable(),
				"recv_queue_dropped", h.recvQ.Dropped())
		}
	}
}
