// Package filter implements stage B: it narrows each certificate's raw
// domain batch down to the subset worth tracking, commits the survivors to
// the registry, and forwards only the newly inserted domains to stage C.
package filter

import (
	"context"
	"log"
	"strings"

	"golang.org/x/net/publicsuffix"

	"ctsentinel/internal/denylist"
	"ctsentinel/internal/pipeline"
	"ctsentinel/internal/store"
)

// Stage holds the dependencies the filter pipeline needs: the registry to
// commit against and the shared counters/queues.
type Stage struct {
	store  store.Store
	queues *pipeline.Queues
	stats  *pipeline.Stats
}

// New builds a stage-B filter wired to the shared registry, queues and
// counters.
func New(s store.Store, queues *pipeline.Queues, stats *pipeline.Stats) *Stage {
	return &Stage{store: s, queues: queues, stats: stats}
}

// Run drains AB, filters and commits each batch, and blocking-enqueues the
// committed subset onto BC. It returns as soon as ctx is cancelled
// (batches still queued on AB are not processed), or when AB is closed.
func (st *Stage) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-st.queues.AB:
			if !ok {
				return nil
			}
			st.process(ctx, batch)
		}
	}
}

// process runs one certificate's domain batch through the filter chain:
// subdomain-depth, restricted TLD, wildcard/www normalization plus
// intra-batch dedup, service-subdomain denylist, then a registry commit
// that performs the final cross-batch dedup atomically. The filter order
// follows the original design's BCertsFiltering.filter chain.
func (st *Stage) process(ctx context.Context, batch pipeline.DomainBatch) {
	candidates := filterDepth(batch)
	candidates = filterRestrictedTLDs(candidates)
	candidates = normalizeAndDedup(candidates)
	candidates = filterServiceSubdomains(candidates)

	if len(candidates) == 0 {
		return
	}

	inserted, err := st.store.InsertNonDuplicates(ctx, candidates)
	if err != nil {
		log.Printf("filter: registry commit failed: %v", err)
		return
	}
	if len(inserted) == 0 {
		return
	}

	st.stats.DomainsFiltered.Add(int64(len(inserted)))

	select {
	case st.queues.BC <- pipeline.FilteredBatch(inserted):
	case <-ctx.Done():
	}
}

// filterDepth keeps only domains with at most one label of subdomain
// beneath their effective TLD+1 (e.g. "a.example.com" passes,
// "a.b.example.com" does not), matching _filter_multidomains.
func filterDepth(domains pipeline.DomainBatch) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		sub, _, _, err := splitDomain(d)
		if err != nil {
			continue
		}
		if sub == "" || !strings.Contains(sub, ".") {
			out = append(out, d)
		}
	}
	return out
}

// filterRestrictedTLDs drops domains whose effective TLD is on the
// denylist, matching _filter_restricted_tlds.
func filterRestrictedTLDs(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		_, suffix, _, err := splitDomain(d)
		if err != nil {
			continue
		}
		if !denylist.IsBlacklistedTLD(suffix) {
			out = append(out, d)
		}
	}
	return out
}

// normalizeAndDedup strips a leading wildcard or "www." label and
// collapses duplicates within the batch, matching
// _filter_wildcard_and_duplicates.
func normalizeAndDedup(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(d, "*.")
		d = strings.TrimPrefix(d, "www.")
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// filterServiceSubdomains drops domains whose leftmost subdomain label is
// a known service/infrastructure prefix, matching
// _filter_service_based_subdomains.
func filterServiceSubdomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		sub, _, _, err := splitDomain(d)
		if err != nil {
			continue
		}
		if !denylist.IsServiceSubdomain(strings.ToLower(sub)) {
			out = append(out, d)
		}
	}
	return out
}

// splitDomain decomposes a domain into its subdomain prefix, its
// effective TLD, and its effective TLD+1, using the public suffix list in
// place of the original design's tldextract.
func splitDomain(domain string) (subdomain, suffix, etldPlusOne string, err error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	etldPlusOne, err = publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return "", "", "", err
	}
	suffix, _ = publicsuffix.PublicSuffix(domain)

	if len(domain) > len(etldPlusOne) {
		subdomain = strings.TrimSuffix(domain, "."+etldPlusOne)
	}
	return subdomain, suffix, etldPlusOne, nil
}
