package pipeline

import "sync/atomic"

// Stats replaces the single-element "mutable cell" counters of the
// original design (spec.md §9) with plain atomic counters, updated by
// stage producers and sampled by the observer. Sampling is advisory; no
// strict atomicity is required across counters, only per-counter.
type Stats struct {
	CertsReceived   atomic.Int64
	DroppedValidity atomic.Int64
	DroppedFullAB   atomic.Int64
	DroppedMalformed atomic.Int64
	DomainsFiltered atomic.Int64
	DomainsEnriched atomic.Int64
}

// Snapshot is a point-in-time read of every counter, used by the
// observer's per-second sampling.
type Snapshot struct {
	CertsReceived    int64
	DroppedValidity  int64
	DroppedFullAB    int64
	DroppedMalformed int64
	DomainsFiltered  int64
	DomainsEnriched  int64
}

// SnapshotAndReset atomically reads every counter and resets it to zero,
// matching the per-second reset spec.md §4.5 describes.
func (s *Stats) SnapshotAndReset() Snapshot {
	return Snapshot{
		CertsReceived:    s.CertsReceived.Swap(0),
		DroppedValidity:  s.DroppedValidity.Swap(0),
		DroppedFullAB:    s.DroppedFullAB.Swap(0),
		DroppedMalformed: s.DroppedMalformed.Swap(0),
		DomainsFiltered:  s.DomainsFiltered.Swap(0),
		DomainsEnriched:  s.DomainsEnriched.Swap(0),
	}
}
