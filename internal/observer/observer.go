// Package observer implements stage E: it samples the shared counters and
// queue depths once a second, keeps a rolling window of recent samples,
// and periodically logs a human-readable throughput report.
package observer

import (
	"context"
	"log"
	"time"

	"ctsentinel/internal/pipeline"
)

// Stage holds the rolling-window history the periodic report averages
// over. History lists are capped at rollingWindow entries, replacing the
// original design's list.pop(0) trimming with a fixed-capacity ring
// buffer.
type Stage struct {
	queues       *pipeline.Queues
	stats        *pipeline.Stats
	window       int
	certHistory  *ring
	filtHistory  *ring
	enrichHistory *ring
}

// New builds a stage-E observer with the given rolling-window length in
// seconds (spec.md §4.5 default: 300).
func New(queues *pipeline.Queues, stats *pipeline.Stats, rollingWindow int) *Stage {
	if rollingWindow <= 0 {
		rollingWindow = 300
	}
	return &Stage{
		queues:        queues,
		stats:         stats,
		window:        rollingWindow,
		certHistory:   newRing(rollingWindow),
		filtHistory:   newRing(rollingWindow),
		enrichHistory: newRing(rollingWindow),
	}
}

// Run samples every second until ctx is cancelled, printing a report
// every rollingWindow seconds.
func (st *Stage) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := st.stats.SnapshotAndReset()
			st.certHistory.push(snap.CertsReceived)
			st.filtHistory.push(snap.DomainsFiltered)
			st.enrichHistory.push(snap.DomainsEnriched)

			if time.Since(lastReport) >= time.Duration(st.window)*time.Second {
				st.report()
				lastReport = time.Now()
			}
		}
	}
}

// report logs queue depths and rolling per-second averages in the same
// layout as the original design's process_e display block.
func (st *Stage) report() {
	minutes := float64(st.window) / 60

	log.Println("==========================================================")
	log.Printf("Queue AB size: %d, Queue BC size: %d, Queue CD size: %d",
		len(st.queues.AB), len(st.queues.BC), len(st.queues.CD))
	log.Println("----------------------------------------------------------")
	log.Printf("Certs received per second (%.0f-min avg): %.2f", minutes, st.certHistory.average())
	log.Printf("Domains filtered per second (%.0f-min avg): %.2f", minutes, st.filtHistory.average())
	log.Printf("Domains enriched per second (%.0f-min avg): %.2f", minutes, st.enrichHistory.average())
	log.Println("==========================================================")
}

// ring is a fixed-capacity FIFO of int64 samples with a running sum,
// avoiding the O(n) resum the original design's list+sum/len pays on
// every tick.
type ring struct {
	buf   []int64
	cap   int
	head  int
	count int
	sum   int64
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]int64, capacity), cap: capacity}
}

func (r *ring) push(v int64) {
	if r.count == r.cap {
		r.sum -= r.buf[r.head]
	} else {
		r.count++
	}
	r.buf[r.head] = v
	r.sum += v
	r.head = (r.head + 1) % r.cap
}

func (r *ring) average() float64 {
	return float64(r.sum) / float64(r.cap)
}
