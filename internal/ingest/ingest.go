// Package ingest implements stage A of the pipeline: it subscribes to the
// certificate transparency firehose, applies the certificate-lifetime
// validity gate, and hands surviving domain batches to stage B over a
// non-blocking bounded queue.
package ingest

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/jsonq"
	"github.com/pathtofile/certstream-go"

	"ctsentinel/internal/pipeline"
)

// Subscriber owns the firehose connection and the stage-A counters.
// Grounded on the teacher's Monitor.startLiveMode in
// internal/pkg/certwatch/monitor.go, stripped of the polling-mode CT-log
// client half (see DESIGN.md) and of watch-list matching, since this
// pipeline observes every newly issued certificate rather than a
// configured domain set.
type Subscriber struct {
	url         string
	maxValidity time.Duration
	queues      *pipeline.Queues
	stats       *pipeline.Stats
}

// New builds a stage-A subscriber wired to the shared queues and counters.
func New(certstreamURL string, maxValidity time.Duration, queues *pipeline.Queues, stats *pipeline.Stats) *Subscriber {
	return &Subscriber{
		url:         certstreamURL,
		maxValidity: maxValidity,
		queues:      queues,
		stats:       stats,
	}
}

// Run blocks, consuming firehose events until ctx is cancelled. Connection
// drops are logged and retried after a short delay, mirroring the
// teacher's reconnect-on-error branch in startLiveMode.
func (s *Subscriber) Run(ctx context.Context) error {
	log.Printf("ingest: subscribing to certificate firehose at %s", s.url)

	stream, errChan := certstream.CertStreamEventStreamURL(false, s.url)

	for {
		select {
		case <-ctx.Done():
			log.Println("ingest: stopping firehose subscription")
			return nil

		case jq := <-stream:
			s.handleEvent(&jq)

		case err := <-errChan:
			if err == nil {
				continue
			}
			log.Printf("ingest: firehose stream error: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			stream, errChan = certstream.CertStreamEventStreamURL(false, s.url)
		}
	}
}

// handleEvent applies the validity gate and enqueues the surviving
// domain batch, or increments the matching drop counter. Per-certificate
// domain lists are forwarded as one AB batch, preserving the original
// design's "one certificate, one queue item" unit of work.
func (s *Subscriber) handleEvent(jq *jsonq.JsonQuery) {
	event, ok := extractCertEvent(jq)
	if !ok {
		s.stats.DroppedMalformed.Add(1)
		return
	}

	s.stats.CertsReceived.Add(1)

	lifetime := time.Duration(event.Lifetime()) * time.Second
	if s.maxValidity > 0 && lifetime >= s.maxValidity {
		s.stats.DroppedValidity.Add(1)
		return
	}

	if !s.queues.TryEnqueueAB(pipeline.DomainBatch(event.AllDomains)) {
		s.stats.DroppedFullAB.Add(1)
	}
}
