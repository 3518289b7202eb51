package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkIdempotentMerge(t *testing.T) {
	rec := ValidatedRecord{
		Key:    "42",
		Fields: map[string]string{"party_name": "Doe, John"},
	}

	once := NewSink()
	once.Accept(rec)
	once.PartitionDone()

	twice := NewSink()
	// partitions overlap at bisection boundaries, the same record may
	// arrive from both siblings
	twice.Accept(rec)
	twice.Accept(rec)
	twice.PartitionDone()

	a := once.Finalize()
	b := twice.Finalize()
	require.Equal(t, a.Records, b.Records)
	require.Len(t, b.Records, 1)
}

func TestSinkLastWriteWins(t *testing.T) {
	sink := NewSink()
	sink.Accept(ValidatedRecord{Key: "7", Fields: map[string]string{"party_name": "Old"}})
	sink.Accept(ValidatedRecord{Key: "7", Fields: map[string]string{"party_name": "New"}})

	result := sink.Finalize()
	require.Len(t, result.Records, 1)
	require.Equal(t, "New", result.Records[0].Fields["party_name"])
}

func TestSinkOrdersByKey(t *testing.T) {
	sink := NewSink()
	for _, key := range []string{"30", "10", "20"} {
		sink.Accept(ValidatedRecord{Key: key})
	}

	result := sink.Finalize()
	require.Equal(t, "10", result.Records[0].Key)
	require.Equal(t, "20", result.Records[1].Key)
	require.Equal(t, "30", result.Records[2].Key)
}

func TestSinkOneShotFinalize(t *testing.T) {
	sink := NewSink()
	sink.Accept(ValidatedRecord{Key: "1"})
	sink.Finalize()

	require.Panics(t, func() {
		sink.Accept(ValidatedRecord{Key: "2"})
	})
	require.Panics(t, func() {
		sink.Finalize()
	})
}

func TestSinkDiagnostics(t *testing.T) {
	sink := NewSink()
	sink.Reject(Rejection{Key: "9", Field: "hearing_date", Reason: "missing required field"})
	sink.Fail(Partition{Range: NewDateRange(testDay(1), testDay(2))}, ErrProtocolViolation)
	sink.MarkIncomplete(Partition{Range: NewDateRange(testDay(3), testDay(3))}, 3, 5)
	sink.PartitionDone()

	result := sink.Finalize()
	require.Len(t, result.Rejections, 1)
	require.Len(t, result.Failures, 1)
	require.Len(t, result.Incomplete, 1)
	require.Equal(t, 2, result.Partitions)
	require.False(t, result.Complete())
}
