// Package pipeline holds the data types and shared runtime state that flow
// between stages A-E of the domain observation pipeline.
package pipeline

// CertEvent is the transient stage-A input: a structured certificate
// notification carrying the fields needed for the validity gate and the
// candidate domain list.
type CertEvent struct {
	NotBefore  int64
	NotAfter   int64
	AllDomains []string
}

// Lifetime returns the certificate's validity window in seconds.
func (e CertEvent) Lifetime() int64 {
	return e.NotAfter - e.NotBefore
}

// DomainBatch is the AB payload: raw domain strings taken verbatim from
// one certificate's all_domains, before any filtering.
type DomainBatch []string

// FilteredBatch is the BC payload: normalized domain string to registry
// ID, containing only domains newly inserted into the registry by this
// commit.
type FilteredBatch map[string]int64

// EnrichedRecord is the CD payload: a single domain's DNS enrichment
// result, always emitted even when both sets are empty.
type EnrichedRecord struct {
	ID     int64
	Domain string
	IPs    map[string]struct{}
	NS     map[string]struct{}
}

// IPList returns the record's IPs as a slice, for batch insertion.
func (r EnrichedRecord) IPList() []string {
	out := make([]string, 0, len(r.IPs))
	for ip := range r.IPs {
		out = append(out, ip)
	}
	return out
}

// NSList returns the record's nameservers as a slice, for batch insertion.
func (r EnrichedRecord) NSList() []string {
	out := make([]string, 0, len(r.NS))
	for ns := range r.NS {
		out = append(out, ns)
	}
	return out
}
