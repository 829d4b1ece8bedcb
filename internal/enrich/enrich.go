// Package enrich implements stage C: it resolves A and NS records for each
// newly registered domain against a DNS-over-HTTPS resolver, bounding
// concurrent lookups with a weighted semaphore, and forwards one enriched
// record per domain to stage D.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ctsentinel/internal/pipeline"
)

// soaNameserverPattern matches the dotted hostnames in an SOA record's
// data field. Every match is kept, so both the MNAME and the RNAME end up
// in the nameserver set. Carried over unchanged from the original design's
// regex.
var soaNameserverPattern = regexp.MustCompile(`([a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+\.)`)

const (
	dnsTypeA   = 1
	dnsTypeNS  = 2
	dnsTypeSOA = 6
)

// dohAnswer mirrors one record in a DNS-over-HTTPS JSON response.
type dohAnswer struct {
	Type int    `json:"type"`
	Data string `json:"data"`
}

// dohResponse mirrors the subset of the DNS-over-HTTPS JSON response shape
// the enrichment stage consumes.
type dohResponse struct {
	Answer    []dohAnswer `json:"Answer"`
	Authority []dohAnswer `json:"Authority"`
}

// Stage holds the DNS-over-HTTPS client and concurrency bound shared
// across every enrichment call.
type Stage struct {
	endpoint    string
	client      *http.Client
	sem         *semaphore.Weighted
	queues      *pipeline.Queues
	stats       *pipeline.Stats
	batchTarget int
}

// New builds a stage-C enricher. client is shared with the rest of the
// process so connections are pooled across the full run, matching the
// original design's single reusable aiohttp session. batchTarget mirrors
// process_c's batch_size: BC items are accumulated until the target is
// reached before a round of concurrent lookups fires, so resolver load
// arrives in bursts rather than one item at a time.
func New(endpoint string, concurrency int64, batchTarget int, client *http.Client, queues *pipeline.Queues, stats *pipeline.Stats) *Stage {
	if batchTarget <= 0 {
		batchTarget = 1
	}
	return &Stage{
		endpoint:    endpoint,
		client:      client,
		sem:         semaphore.NewWeighted(concurrency),
		queues:      queues,
		stats:       stats,
		batchTarget: batchTarget,
	}
}

// Run drains BC, accumulating filtered batches until batchTarget domains
// are collected, then fans the merged batch out to bounded concurrent
// DNS-over-HTTPS lookups. Any partial batch still pending when ctx is
// cancelled is flushed before returning, so a shutdown never silently
// drops already-dequeued domains.
func (st *Stage) Run(ctx context.Context) error {
	acc := make(pipeline.FilteredBatch)

	for {
		select {
		case <-ctx.Done():
			if len(acc) > 0 {
				st.processBatch(context.Background(), acc)
			}
			return nil
		case batch, ok := <-st.queues.BC:
			if !ok {
				if len(acc) > 0 {
					st.processBatch(ctx, acc)
				}
				return nil
			}
			for domain, id := range batch {
				acc[domain] = id
			}
			if len(acc) >= st.batchTarget {
				st.processBatch(ctx, acc)
				acc = make(pipeline.FilteredBatch)
			}
		}
	}
}

// processBatch fans a filtered batch's domains out to bounded concurrent
// lookups and waits for the whole batch to finish before pulling the next
// one, matching the original design's per-batch asyncio.gather.
func (st *Stage) processBatch(ctx context.Context, batch pipeline.FilteredBatch) {
	g, gctx := errgroup.WithContext(ctx)
	for domain, id := range batch {
		domain, id := domain, id
		g.Go(func() error {
			st.enrichOne(gctx, id, domain)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("enrich: batch processing error: %v", err)
	}
}

// enrichOne resolves one domain's A and NS records, bounded by the shared
// semaphore, and blocking-enqueues the result onto CD. The two lookups are
// coupled: matching async_dns_resolve, only a 200 on BOTH the A and NS
// query populates either set, so a failure on either leg produces a
// record with empty sets on both, never a partial result.
func (st *Stage) enrichOne(ctx context.Context, id int64, domain string) {
	if err := st.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer st.sem.Release(1)

	var ips, nameservers []string
	var aOK, nsOK bool
	var g errgroup.Group
	g.Go(func() error {
		var err error
		ips, aOK, err = st.resolveA(ctx, domain)
		return err
	})
	g.Go(func() error {
		var err error
		nameservers, nsOK, err = st.resolveNS(ctx, domain)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("enrich: dns resolution failed for %s: %v", domain, err)
	}

	record := pipeline.EnrichedRecord{
		ID:     id,
		Domain: domain,
	}
	if aOK && nsOK {
		record.IPs = toSet(ips)
		record.NS = toSet(nameservers)
	} else {
		record.IPs = toSet(nil)
		record.NS = toSet(nil)
	}

	select {
	case st.queues.CD <- record:
		st.stats.DomainsEnriched.Add(1)
	case <-ctx.Done():
	}
}

// resolveA queries the A record set for domain. ok is false whenever the
// resolver did not answer with HTTP 200.
func (st *Stage) resolveA(ctx context.Context, domain string) ([]string, bool, error) {
	resp, ok, err := st.query(ctx, domain, "A")
	if err != nil || !ok {
		return nil, ok, err
	}
	ips := make([]string, 0, len(resp.Answer))
	for _, a := range resp.Answer {
		if a.Type == dnsTypeA {
			ips = append(ips, a.Data)
		}
	}
	return ips, true, nil
}

// resolveNS queries the NS record set for domain and folds in
// Authority-section NS and SOA records, matching extract_nameservers. ok is
// false whenever the resolver did not answer with HTTP 200.
func (st *Stage) resolveNS(ctx context.Context, domain string) ([]string, bool, error) {
	resp, ok, err := st.query(ctx, domain, "NS")
	if err != nil || !ok {
		return nil, ok, err
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(ns string) {
		if ns == "" {
			return
		}
		if _, ok := seen[ns]; ok {
			return
		}
		seen[ns] = struct{}{}
		out = append(out, ns)
	}

	for _, a := range resp.Answer {
		if a.Type == dnsTypeNS {
			add(a.Data)
		}
	}
	for _, a := range resp.Authority {
		switch a.Type {
		case dnsTypeNS:
			add(a.Data)
		case dnsTypeSOA:
			for _, match := range soaNameserverPattern.FindAllString(a.Data, -1) {
				add(match)
			}
		}
	}
	return out, true, nil
}

// query issues one DNS-over-HTTPS GET for the given domain and record
// type against the configured resolver. ok reports whether the resolver
// answered with HTTP 200; a non-200 is not treated as a transport error,
// matching aiohttp's status check in async_dns_resolve.
func (st *Stage) query(ctx context.Context, domain, recordType string) (*dohResponse, bool, error) {
	url := fmt.Sprintf("%s?name=%s&type=%s", st.endpoint, domain, recordType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("accept", "application/dns-json")

	resp, err := st.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, nil
	}

	var out dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
