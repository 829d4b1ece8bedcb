package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jmoiron/jsonq"

	"ctsentinel/internal/pipeline"
)

func mustQuery(t *testing.T, raw string) *jsonq.JsonQuery {
	t.Helper()
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return jsonq.NewQuery(data)
}

const certUpdateFixture = `{
	"message_type": "certificate_update",
	"data": {
		"leaf_cert": {
			"not_before": 1000,
			"not_after": 8649000,
			"all_domains": ["example.com", "www.example.com"]
		}
	}
}`

func TestExtractCertEvent(t *testing.T) {
	event, ok := extractCertEvent(mustQuery(t, certUpdateFixture))
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if event.NotBefore != 1000 || event.NotAfter != 8649000 {
		t.Errorf("unexpected validity window: %+v", event)
	}
	if len(event.AllDomains) != 2 {
		t.Errorf("expected 2 domains, got %v", event.AllDomains)
	}
}

func TestExtractCertEventRejectsOtherMessageTypes(t *testing.T) {
	_, ok := extractCertEvent(mustQuery(t, `{"message_type": "heartbeat"}`))
	if ok {
		t.Error("expected heartbeat messages to be rejected")
	}
}

func TestExtractCertEventRejectsEmptyDomains(t *testing.T) {
	raw := `{"message_type":"certificate_update","data":{"leaf_cert":{"not_before":1,"not_after":2,"all_domains":[]}}}`
	_, ok := extractCertEvent(mustQuery(t, raw))
	if ok {
		t.Error("expected a certificate with no domains to be rejected")
	}
}

func TestHandleEventAppliesValidityGate(t *testing.T) {
	queues := pipeline.NewQueues(10, 10, 10)
	stats := &pipeline.Stats{}
	sub := New("wss://example.invalid/", time.Hour, queues, stats)

	sub.handleEvent(mustQuery(t, certUpdateFixture))

	if stats.DroppedValidity.Load() != 1 {
		t.Errorf("expected the long-lived certificate to be dropped for validity, got counter %d", stats.DroppedValidity.Load())
	}
	select {
	case <-queues.AB:
		t.Error("expected no batch enqueued for a certificate failing the validity gate")
	default:
	}
}

func TestHandleEventEnqueuesWithinValidityWindow(t *testing.T) {
	queues := pipeline.NewQueues(10, 10, 10)
	stats := &pipeline.Stats{}
	sub := New("wss://example.invalid/", 10000*time.Hour, queues, stats)

	sub.handleEvent(mustQuery(t, certUpdateFixture))

	if stats.CertsReceived.Load() != 1 {
		t.Errorf("expected certs_received to increment, got %d", stats.CertsReceived.Load())
	}
	select {
	case batch := <-queues.AB:
		if len(batch) != 2 {
			t.Errorf("expected 2 domains in the batch, got %v", batch)
		}
	default:
		t.Error("expected a batch enqueued onto AB")
	}
}
