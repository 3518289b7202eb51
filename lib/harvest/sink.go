package harvest

import (
	"sort"
	"sync"

	"github.com/mazen160/go-random"
)

// PartitionFailure records a partition that exhausted its retries or
// tripped a protocol violation. Sibling partitions are unaffected.
type PartitionFailure struct {
	Partition string
	Err       string
}

// IncompletePartition flags a partition at minimum granularity that
// still hit the source's result cap. The engine cannot guarantee
// completeness for it, so the condition is surfaced, never hidden.
type IncompletePartition struct {
	Partition string
	Retrieved int
	Reported  int
}

// HarvestResult is the terminal artifact of one harvest run, immutable
// after Finalize.
type HarvestResult struct {
	RunID      string
	Records    []ValidatedRecord
	Rejections []Rejection
	Partitions int
	Failures   []PartitionFailure
	Incomplete []IncompletePartition
}

// Complete reports whether the run can claim to have retrieved every
// matching record.
func (r HarvestResult) Complete() bool {
	return len(r.Failures) == 0 && len(r.Incomplete) == 0
}

// Sink deduplicates validated records across partitions by primary key.
// Partitions may overlap at bisection boundaries, so a later record with
// the same key overwrites the earlier one rather than appending.
type Sink struct {
	mu         sync.Mutex
	runID      string
	records    map[string]ValidatedRecord
	rejections []Rejection
	failures   []PartitionFailure
	incomplete []IncompletePartition
	partitions int
	finalized  bool
}

func NewSink() *Sink {
	runID, err := random.String(12)
	if err != nil {
		panic(err)
	}
	return &Sink{
		runID:   runID,
		records: map[string]ValidatedRecord{},
	}
}

func (s *Sink) Accept(rec ValidatedRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		panic("accept after finalize")
	}
	s.records[rec.Key] = rec
}

func (s *Sink) Reject(rej Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		panic("reject after finalize")
	}
	s.rejections = append(s.rejections, rej)
}

func (s *Sink) PartitionDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions++
}

func (s *Sink) Fail(part Partition, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, PartitionFailure{
		Partition: part.Label(),
		Err:       err.Error(),
	})
	s.partitions++
}

func (s *Sink) MarkIncomplete(part Partition, retrieved, reported int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomplete = append(s.incomplete, IncompletePartition{
		Partition: part.Label(),
		Retrieved: retrieved,
		Reported:  reported,
	})
}

// Finalize returns the accumulated result, ordered by key for stable
// output. One-shot: the sink accepts nothing afterwards.
func (s *Sink) Finalize() HarvestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		panic("finalize called twice")
	}
	s.finalized = true

	records := make([]ValidatedRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key < records[j].Key
	})

	return HarvestResult{
		RunID:      s.runID,
		Records:    records,
		Rejections: s.rejections,
		Partitions: s.partitions,
		Failures:   s.failures,
		Incomplete: s.incomplete,
	}
}
