package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// WalkResult is every record a partition yielded, plus whether the
// source cut the partition off at its result cap.
type WalkResult struct {
	Records []RawRecord
	Pages   int
	// ReportedTotal is the source's final claim of how many records
	// match the partition.
	ReportedTotal int
	// CapHit is true when the partition's true match count meets or
	// exceeds the source's per-query result limit. It is reported, never
	// swallowed: the partitioner decides whether to subdivide.
	CapHit bool
}

type WalkerOptions struct {
	// PageSize is the number of records requested per page.
	PageSize int
	// MaxPages is the safety iteration ceiling guarding against a source
	// that never signals completion. Configuration, not a constant.
	MaxPages int
	// MaxAttempts bounds retries per network call, handshake included.
	MaxAttempts uint64
	// CallTimeout applies to each individual network call.
	CallTimeout time.Duration
	// InitialBackoff seeds the exponential retry backoff.
	InitialBackoff time.Duration
}

// Walker drives a single partition's pagination to exhaustion, in cursor
// order: page N+1's offset depends on what page N returned.
type Walker struct {
	source   Source
	sessions *SessionManager
	limiter  *rate.Limiter
	opts     WalkerOptions
}

func NewWalker(source Source, sessions *SessionManager, limiter *rate.Limiter, opts WalkerOptions) *Walker {
	return &Walker{
		source:   source,
		sessions: sessions,
		limiter:  limiter,
		opts:     opts,
	}
}

// Walk fetches successive pages for the partition until the source
// signals exhaustion. workerKey scopes the session used for the requests.
func (w *Walker) Walk(ctx context.Context, part Partition, workerKey string) (WalkResult, error) {
	ctx, span := tracer.Start(ctx, "Walk")
	defer span.End()
	span.SetAttributes(attribute.String("partition", part.Label()))

	var out WalkResult
	offset := 0

	for {
		if out.Pages >= w.opts.MaxPages {
			if out.ReportedTotal > offset {
				// the ceiling cut the walk short while the source still
				// reported more matches available
				out.CapHit = true
				span.SetAttributes(attribute.Bool("cap_hit", true))
				return out, nil
			}
			err := fmt.Errorf(
				"%w: no end of pagination after %d pages",
				ErrProtocolViolation, out.Pages,
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "pagination ceiling reached")
			return out, err
		}

		page, err := w.fetchPage(ctx, part, offset, workerKey)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "page fetch failed")
			return out, err
		}

		out.Records = append(out.Records, page.Records...)
		out.Pages++
		out.ReportedTotal = page.Total
		if page.Truncated {
			out.CapHit = true
		}
		offset += len(page.Records)

		if len(page.Records) < w.opts.PageSize {
			break
		}
		if page.Total > 0 && offset >= page.Total {
			break
		}
	}

	if out.ReportedTotal > offset {
		// exhausted early: the source delivered fewer records than it
		// itself claimed to have
		out.CapHit = true
	}

	span.SetAttributes(
		attribute.Int("records", len(out.Records)),
		attribute.Int("pages", out.Pages),
		attribute.Bool("cap_hit", out.CapHit),
	)
	return out, nil
}

func (w *Walker) fetchPage(ctx context.Context, part Partition, offset int, workerKey string) (ResultPage, error) {
	var page ResultPage

	op := func() error {
		err := w.limiter.Wait(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		sess, err := w.sessions.Acquire(ctx, workerKey)
		if err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, w.opts.CallTimeout)
		defer cancel()

		page, err = w.source.FetchPage(callCtx, part, sess, offset, w.opts.PageSize)
		if errors.Is(err, ErrAuthRejected) {
			slog.WarnContext(ctx, "session rejected, reacquiring",
				"partition", part.Label(), "worker", workerKey)
			w.sessions.Invalidate(workerKey)
			return err
		}
		if errors.Is(err, ErrProtocolViolation) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.opts.InitialBackoff
	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, w.opts.MaxAttempts-1),
		ctx,
	))
	return page, err
}
