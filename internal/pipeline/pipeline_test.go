package pipeline

import "testing"

func TestStatsSnapshotAndResetZeroesCounters(t *testing.T) {
	var s Stats
	s.CertsReceived.Add(5)
	s.DomainsFiltered.Add(2)

	snap := s.SnapshotAndReset()
	if snap.CertsReceived != 5 || snap.DomainsFiltered != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	second := s.SnapshotAndReset()
	if second.CertsReceived != 0 || second.DomainsFiltered != 0 {
		t.Fatalf("expected counters to reset after snapshot, got %+v", second)
	}
}

func TestTryEnqueueABReportsFullQueue(t *testing.T) {
	q := NewQueues(1, 1, 1)

	if !q.TryEnqueueAB(DomainBatch{"example.com"}) {
		t.Fatal("expected first enqueue to succeed")
	}
	if q.TryEnqueueAB(DomainBatch{"other.com"}) {
		t.Fatal("expected second enqueue to report the queue full")
	}
}

func TestEnrichedRecordListHelpers(t *testing.T) {
	record := EnrichedRecord{
		IPs: map[string]struct{}{"1.1.1.1": {}},
		NS:  map[string]struct{}{"ns1.example.com.": {}},
	}
	if ips := record.IPList(); len(ips) != 1 || ips[0] != "1.1.1.1" {
		t.Errorf("unexpected IPList: %v", ips)
	}
	if ns := record.NSList(); len(ns) != 1 || ns[0] != "ns1.example.com." {
		t.Errorf("unexpected NSList: %v", ns)
	}
}

func TestCertEventLifetime(t *testing.T) {
	e := CertEvent{NotBefore: 100, NotAfter: 700}
	if got, want := e.Lifetime(), int64(600); got != want {
		t.Errorf("Lifetime() = %d, want %d", got, want)
	}
}
