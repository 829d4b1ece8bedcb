package sink

import (
	"context"
	"testing"

	"ctsentinel/internal/pipeline"
	"ctsentinel/internal/store"
)

type fakeStore struct {
	ipRows []store.IPRow
	nsRows []store.NSRow
}

func (f *fakeStore) EnsureSchema(ctx context.Context) error { return nil }
func (f *fakeStore) InsertNonDuplicates(ctx context.Context, domains []string) (map[string]int64, error) {
	return nil, nil
}
func (f *fakeStore) InsertIPs(ctx context.Context, rows []store.IPRow) error {
	f.ipRows = append(f.ipRows, rows...)
	return nil
}
func (f *fakeStore) InsertNS(ctx context.Context, rows []store.NSRow) error {
	f.nsRows = append(f.nsRows, rows...)
	return nil
}
func (f *fakeStore) Close() error { return nil }

type fakeBroker struct {
	published []pipeline.EnrichedRecord
}

func (f *fakeBroker) Publish(ctx context.Context, record pipeline.EnrichedRecord) error {
	f.published = append(f.published, record)
	return nil
}
func (f *fakeBroker) Close() {}

func TestPersistWritesIPsAndNS(t *testing.T) {
	fs := &fakeStore{}
	fb := &fakeBroker{}
	queues := pipeline.NewQueues(1, 1, 1)
	st := New(fs, fb, queues)

	record := pipeline.EnrichedRecord{
		ID:     1,
		Domain: "example.com",
		IPs:    map[string]struct{}{"1.1.1.1": {}},
		NS:     map[string]struct{}{"ns1.example.com.": {}},
	}
	st.persist(context.Background(), record)

	if len(fs.ipRows) != 1 || fs.ipRows[0].IP != "1.1.1.1" {
		t.Errorf("unexpected ip rows: %v", fs.ipRows)
	}
	if len(fs.nsRows) != 1 || fs.nsRows[0].NS != "ns1.example.com." {
		t.Errorf("unexpected ns rows: %v", fs.nsRows)
	}
	if len(fb.published) != 1 || fb.published[0].Domain != "example.com" {
		t.Errorf("expected record published to broker, got %v", fb.published)
	}
}

func TestPersistSkipsEmptySets(t *testing.T) {
	fs := &fakeStore{}
	queues := pipeline.NewQueues(1, 1, 1)
	st := New(fs, nil, queues)

	st.persist(context.Background(), pipeline.EnrichedRecord{ID: 2, Domain: "empty.com"})

	if len(fs.ipRows) != 0 || len(fs.nsRows) != 0 {
		t.Errorf("expected no rows written for an empty record, got ips=%v ns=%v", fs.ipRows, fs.nsRows)
	}
}
