// Package supervisor owns the process-lifetime shared resources (the DoH
// HTTP client, the registry connection pool, the optional broker
// producer) and wires the five pipeline stages to the three bounded
// queues between them.
package supervisor

import (
	"context"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"ctsentinel/internal/broker"
	"ctsentinel/internal/config"
	"ctsentinel/internal/enrich"
	"ctsentinel/internal/filter"
	"ctsentinel/internal/ingest"
	"ctsentinel/internal/observer"
	"ctsentinel/internal/pipeline"
	"ctsentinel/internal/sink"
	"ctsentinel/internal/store"
)

// Supervisor holds every shared, process-lifetime resource plus the
// wired-up stages. It is the single place that opens and closes the
// registry connection and the broker producer, so each is created and
// torn down exactly once regardless of how many stages use it.
type Supervisor struct {
	cfg    *config.Config
	store  *store.Postgres
	broker broker.Publisher
}

// New constructs the shared resources from cfg. The registry schema is
// created if missing (SPEC_FULL.md §6) and the broker producer is only
// opened when PulsarEnabled reports true.
func New(ctx context.Context, cfg *config.Config) (*Supervisor, error) {
	pg, err := store.Open(cfg.DSN(), cfg.DBMinConns, cfg.DBMaxConns, cfg.DBConnTimeout)
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, err
	}

	var pub broker.Publisher
	if cfg.PulsarEnabled() {
		p, err := broker.NewPulsarPublisher(cfg.PulsarURL(), cfg.PulsarFullTopic())
		if err != nil {
			pg.Close()
			return nil, err
		}
		pub = p
	}

	return &Supervisor{cfg: cfg, store: pg, broker: pub}, nil
}

// Run starts all five stages and blocks until ctx is cancelled or a
// stage returns an error, then tears every stage down before releasing
// the shared resources.
func (s *Supervisor) Run(ctx context.Context) error {
	queues := pipeline.NewQueues(s.cfg.QueueABCapacity, s.cfg.QueueBCCapacity, s.cfg.QueueCDCapacity)
	stats := &pipeline.Stats{}

	dohClient := &http.Client{Timeout: 10 * time.Second}

	subscriber := ingest.New(s.cfg.CertstreamURL, s.cfg.CertMaxValidity, queues, stats)
	filterStage := filter.New(s.store, queues, stats)
	enrichStage := enrich.New(s.cfg.DoHEndpoint, int64(s.cfg.DoHConcurrency), s.cfg.DoHBatchTarget, dohClient, queues, stats)
	sinkStage := sink.New(s.store, s.broker, queues)
	observerStage := observer.New(queues, stats, s.cfg.RollingWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return subscriber.Run(gctx) })
	g.Go(func() error { return filterStage.Run(gctx) })
	g.Go(func() error { return enrichStage.Run(gctx) })
	g.Go(func() error { return sinkStage.Run(gctx) })
	g.Go(func() error { return observerStage.Run(gctx) })

	err := g.Wait()

	log.Println("supervisor: all stages stopped, releasing shared resources")
	if s.broker != nil {
		s.broker.Close()
	}
	if closeErr := s.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
