package filter

import (
	"context"
	"testing"

	"ctsentinel/internal/pipeline"
	"ctsentinel/internal/store"
)

func TestFilterDepth(t *testing.T) {
	tests := []struct {
		domain string
		keep   bool
	}{
		{"example.com", true},
		{"a.example.com", true},
		{"a.b.example.com", false},
		{"a.b.c.example.com", false},
	}
	for _, test := range tests {
		out := filterDepth(pipeline.DomainBatch{test.domain})
		got := len(out) == 1
		if got != test.keep {
			t.Errorf("filterDepth(%q): keep=%v, expected %v", test.domain, got, test.keep)
		}
	}
}

func TestFilterRestrictedTLDs(t *testing.T) {
	out := filterRestrictedTLDs([]string{"example.com", "scam.xyz", "free.tk"})
	if len(out) != 1 || out[0] != "example.com" {
		t.Errorf("expected only example.com to survive, got %v", out)
	}
}

func TestNormalizeAndDedup(t *testing.T) {
	out := normalizeAndDedup([]string{"*.example.com", "example.com", "www.example.com"})
	if len(out) != 1 || out[0] != "example.com" {
		t.Errorf("expected normalization to collapse to [example.com], got %v", out)
	}
}

func TestFilterServiceSubdomains(t *testing.T) {
	out := filterServiceSubdomains([]string{"mail.example.com", "shop.example.com"})
	found := false
	for _, d := range out {
		if d == "mail.example.com" {
			found = true
		}
	}
	if found {
		t.Errorf("expected mail.example.com to be filtered as a service subdomain, got %v", out)
	}
	if len(out) != 1 || out[0] != "shop.example.com" {
		t.Errorf("expected only shop.example.com to survive, got %v", out)
	}
}

// fakeStore is a minimal in-memory store.Store for exercising Stage.process
// without a real database connection.
type fakeStore struct {
	seen   map[string]int64
	nextID int64
	calls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]int64)}
}

func (f *fakeStore) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeStore) InsertNonDuplicates(ctx context.Context, domains []string) (map[string]int64, error) {
	f.calls++
	result := make(map[string]int64)
	for _, d := range domains {
		if _, dup := f.seen[d]; dup {
			continue
		}
		f.nextID++
		f.seen[d] = f.nextID
		result[d] = f.nextID
	}
	return result, nil
}

func (f *fakeStore) InsertIPs(ctx context.Context, rows []store.IPRow) error { return nil }
func (f *fakeStore) InsertNS(ctx context.Context, rows []store.NSRow) error  { return nil }
func (f *fakeStore) Close() error                                           { return nil }

func TestStageProcessCommitsOnlyNewDomains(t *testing.T) {
	fs := newFakeStore()
	queues := pipeline.NewQueues(10, 10, 10)
	stats := &pipeline.Stats{}
	st := New(fs, queues, stats)

	ctx := context.Background()
	st.process(ctx, pipeline.DomainBatch{"example.com", "example.com"})

	select {
	case batch := <-queues.BC:
		if len(batch) != 1 {
			t.Fatalf("expected 1 committed domain, got %d", len(batch))
		}
		if _, ok := batch["example.com"]; !ok {
			t.Fatalf("expected example.com in committed batch, got %v", batch)
		}
	default:
		t.Fatal("expected a batch on BC")
	}

	// A second, fully duplicate batch should commit nothing further.
	st.process(ctx, pipeline.DomainBatch{"example.com"})
	select {
	case batch := <-queues.BC:
		t.Fatalf("expected no further BC batch for an already-seen domain, got %v", batch)
	default:
	}
}
