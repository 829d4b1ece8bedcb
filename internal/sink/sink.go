// Package sink implements stage D: it drains enriched records and persists
// their IP and nameserver sets to the registry, optionally publishing each
// record onto the message bus as well.
package sink

import (
	"context"
	"log"

	"ctsentinel/internal/broker"
	"ctsentinel/internal/pipeline"
	"ctsentinel/internal/store"
)

// Stage holds the persistence and (optional) message-bus dependencies
// stage D writes to.
type Stage struct {
	store   store.Store
	broker  broker.Publisher
	queues  *pipeline.Queues
}

// New builds a stage-D sink. broker may be nil, in which case publishing
// is skipped entirely, matching spec.md §4.5's optional broker step.
func New(s store.Store, b broker.Publisher, queues *pipeline.Queues) *Stage {
	return &Stage{store: s, broker: b, queues: queues}
}

// Run drains CD, writing each record's IP rows and NS rows as two
// separate transactions (spec.md §4.4). It returns as soon as ctx is
// cancelled (records still queued on CD are not written), or when CD is
// closed.
func (st *Stage) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case record, ok := <-st.queues.CD:
			if !ok {
				return nil
			}
			st.persist(ctx, record)
		}
	}
}

func (st *Stage) persist(ctx context.Context, record pipeline.EnrichedRecord) {
	if ips := record.IPList(); len(ips) > 0 {
		rows := make([]store.IPRow, len(ips))
		for i, ip := range ips {
			rows[i] = store.IPRow{DomainID: record.ID, IP: ip}
		}
		if err := st.store.InsertIPs(ctx, rows); err != nil {
			log.Printf("sink: insert ips failed for %s: %v", record.Domain, err)
		}
	}

	if nameservers := record.NSList(); len(nameservers) > 0 {
		rows := make([]store.NSRow, len(nameservers))
		for i, ns := range nameservers {
			rows[i] = store.NSRow{DomainID: record.ID, NS: ns}
		}
		if err := st.store.InsertNS(ctx, rows); err != nil {
			log.Printf("sink: insert ns failed for %s: %v", record.Domain, err)
		}
	}

	if st.broker != nil {
		if err := st.broker.Publish(ctx, record); err != nil {
			log.Printf("sink: broker publish failed for %s: %v", record.Domain, err)
		}
	}
}
