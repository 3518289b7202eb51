package harvest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestWalker(source Source, opts WalkerOptions) *Walker {
	if opts.PageSize == 0 {
		opts.PageSize = 2
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = 10
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.CallTimeout == 0 {
		opts.CallTimeout = time.Second
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = time.Millisecond
	}
	sessions := NewSessionManager(source, time.Minute)
	limiter := rate.NewLimiter(rate.Inf, 1)
	return NewWalker(source, sessions, limiter, opts)
}

// pageFunc adapts a function to the Source interface for walker tests.
type pageFunc func(offset, limit int) (ResultPage, error)

func (f pageFunc) Handshake(ctx context.Context) (Session, error) {
	return simSession{issued: time.Now()}, nil
}

func (f pageFunc) FetchPage(ctx context.Context, part Partition, sess Session, offset, limit int) (ResultPage, error) {
	return f(offset, limit)
}

func fullPartition() Partition {
	return LogicalQuery{Range: NewDateRange(testDay(1), testDay(10))}.Root()
}

func rowsOf(n, offset int) []RawRecord {
	out := make([]RawRecord, n)
	for i := range out {
		out[i] = RawRecord{"case_id": fmt.Sprint(offset + i)}
	}
	return out
}

func TestWalkStopsOnShortPage(t *testing.T) {
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		if offset >= 3 {
			t.Fatalf("fetched past the end, offset=%d", offset)
		}
		n := min(limit, 3-offset)
		return ResultPage{Records: rowsOf(n, offset), Offset: offset, Total: 3}, nil
	})

	w := newTestWalker(source, WalkerOptions{})
	res, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	require.Equal(t, 2, res.Pages)
	require.False(t, res.CapHit)
}

func TestWalkStopsAtReportedTotal(t *testing.T) {
	// totals divisible by the page size never produce a short page, the
	// running total against the reported total is the only stop signal
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		return ResultPage{Records: rowsOf(limit, offset), Offset: offset, Total: 4}, nil
	})

	w := newTestWalker(source, WalkerOptions{})
	res, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	require.False(t, res.CapHit)
}

func TestWalkReportsExplicitTruncation(t *testing.T) {
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		n := min(limit, 3-offset)
		return ResultPage{
			Records:   rowsOf(n, offset),
			Offset:    offset,
			Total:     3,
			Truncated: true,
		}, nil
	})

	w := newTestWalker(source, WalkerOptions{})
	res, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.NoError(t, err)
	require.True(t, res.CapHit)
	require.Len(t, res.Records, 3)
}

func TestWalkDetectsWithheldRecords(t *testing.T) {
	// the source claims 50 matches but stops delivering after 3: records
	// were withheld even though no truncation flag was ever set
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		n := min(limit, 3-offset)
		return ResultPage{Records: rowsOf(n, offset), Offset: offset, Total: 50}, nil
	})

	w := newTestWalker(source, WalkerOptions{})
	res, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.NoError(t, err)
	require.True(t, res.CapHit)
}

func TestWalkCeilingWithMoreAvailableIsCapHit(t *testing.T) {
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		return ResultPage{Records: rowsOf(limit, offset), Offset: offset, Total: 1_000_000}, nil
	})

	w := newTestWalker(source, WalkerOptions{MaxPages: 5})
	res, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.NoError(t, err)
	require.True(t, res.CapHit)
	require.Equal(t, 5, res.Pages)
}

func TestWalkNeverEndingSourceIsProtocolViolation(t *testing.T) {
	// full pages forever with no total hint: the source never signals
	// completion, the safety ceiling must turn that into an error
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		return ResultPage{Records: rowsOf(limit, offset), Offset: offset}, nil
	})

	w := newTestWalker(source, WalkerOptions{MaxPages: 5})
	_, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestWalkDoesNotRetryProtocolViolation(t *testing.T) {
	calls := 0
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		calls++
		return ResultPage{}, fmt.Errorf("%w: results grid missing", ErrProtocolViolation)
	})

	w := newTestWalker(source, WalkerOptions{MaxAttempts: 5})
	_, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.ErrorIs(t, err, ErrProtocolViolation)
	require.Equal(t, 1, calls)
}

func TestWalkRetriesTransportErrors(t *testing.T) {
	calls := 0
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		calls++
		if calls < 3 {
			return ResultPage{}, fmt.Errorf("connection reset")
		}
		return ResultPage{Records: rowsOf(1, offset), Offset: offset, Total: 1}, nil
	})

	w := newTestWalker(source, WalkerOptions{MaxAttempts: 5})
	res, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Equal(t, 3, calls)
}

func TestWalkExhaustsRetryBudget(t *testing.T) {
	calls := 0
	source := pageFunc(func(offset, limit int) (ResultPage, error) {
		calls++
		return ResultPage{}, fmt.Errorf("connection reset")
	})

	w := newTestWalker(source, WalkerOptions{MaxAttempts: 3})
	_, err := w.Walk(context.Background(), fullPartition(), "worker-0")
	require.Error(t, err)
	require.Equal(t, 3, calls)
}
