package worker

import (
	"os"
	"strconv"
	"time"

	"github.com/yourusername/serverino/internal/metrics"
	"github.com/yourusername/serverino/internal/wire"
)

// watchdogInterval is the background thread's polling period (spec.md
// §4.6 "Every second it checks").
const watchdogInterval = time.Second

// watchdog is the low-priority background monitor of spec.md §4.6: it
// observes processedStartedAt and, past maxRequestTime, races the main
// loop to answer the in-flight request with a synthesized 504.
type watchdog struct {
	w *Worker
}

func newWatchdog(w *Worker) *watchdog {
	return &watchdog{w: w}
}

func (wd *watchdog) run() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for range ticker.C {
		started := wd.w.processedStartedAt.Load() // acquire
		if started == 0 {
			continue
		}
		if time.Since(time.Unix(0, started)) <= wd.w.cfg.MaxRequestTime {
			continue
		}
		if !wd.w.justSent.CompareAndSwap(false, true) {
			// Main loop already answered this iteration.
			continue
		}

		metrics.WatchdogForcedExits.Inc()
		wd.forceTimeoutResponse()
		wd.w.conn.Close()
		os.Exit(0)
	}
}

// forceTimeoutResponse synthesizes the 504 spec.md §4.6 and §7 call
// for ("Exceeded maxRequestTime" -> "504 from watchdog, worker exits
// with code 0"), with keep-alive false.
func (wd *watchdog) forceTimeoutResponse() {
	const body = "timeout"
	headers := "HTTP/1.1 504 Gateway Timeout\r\nconnection: close\r\ncontent-length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n"
	wire.WriteOutbound(wd.w.conn, false, []byte(headers), []byte(body))
}
