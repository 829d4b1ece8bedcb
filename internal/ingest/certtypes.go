package ingest

import (
	"strings"

	"github.com/jmoiron/jsonq"

	"ctsentinel/internal/pipeline"
)

// extractCertEvent pulls the fields the validity gate and stage B need out
// of one certstream "certificate_update" message. Adapted from the
// teacher's processLiveEvent/createLiveCertificateEntry field-extraction
// logic in internal/pkg/certwatch/monitor.go, narrowed to the subset
// SPEC_FULL.md §4.1 actually consumes: not_before, not_after, all_domains.
func extractCertEvent(jq *jsonq.JsonQuery) (pipeline.CertEvent, bool) {
	messageType, err := jq.String("message_type")
	if err != nil || messageType != "certificate_update" {
		return pipeline.CertEvent{}, false
	}

	notBefore, err := jq.Int("data", "leaf_cert", "not_before")
	if err != nil {
		return pipeline.CertEvent{}, false
	}
	notAfter, err := jq.Int("data", "leaf_cert", "not_after")
	if err != nil {
		return pipeline.CertEvent{}, false
	}

	domains, err := jq.Array("data", "leaf_cert", "all_domains")
	if err != nil || len(domains) == 0 {
		return pipeline.CertEvent{}, false
	}

	all := make([]string, 0, len(domains))
	for _, d := range domains {
		s, ok := d.(string)
		if !ok || s == "" {
			continue
		}
		all = append(all, strings.TrimSpace(s))
	}
	if len(all) == 0 {
		return pipeline.CertEvent{}, false
	}

	return pipeline.CertEvent{
		NotBefore:  int64(notBefore),
		NotAfter:   int64(notAfter),
		AllDomains: all,
	}, true
}
