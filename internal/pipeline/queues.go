package pipeline

// Queues owns the three bounded FIFOs connecting the pipeline stages.
// Capacities are supervisor-configured; defaults per spec.md §5 are
// 1000 / 50000 / 1000 for AB / BC / CD respectively. BC is oversized
// because stage C operates in large atomic batches and upstream bursts
// must be absorbable without stalling stage B's registry commits.
type Queues struct {
	AB chan DomainBatch
	BC chan FilteredBatch
	CD chan EnrichedRecord
}

// NewQueues allocates the three channels with the given capacities.
func NewQueues(abCap, bcCap, cdCap int) *Queues {
	return &Queues{
		AB: make(chan DomainBatch, abCap),
		BC: make(chan FilteredBatch, bcCap),
		CD: make(chan EnrichedRecord, cdCap),
	}
}

// TryEnqueueAB performs the non-blocking send stage A uses at the
// thread/scheduler boundary: it either succeeds or reports that the
// queue was full, letting the caller increment a drop counter instead of
// stalling the synchronous firehose callback.
func (q *Queues) TryEnqueueAB(batch DomainBatch) bool {
	select {
	case q.AB <- batch:
		return true
	default:
		return false
	}
}
