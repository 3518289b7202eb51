// Package harvest implements exhaustive retrieval of a dataset from a
// rate/result-capped search portal that has no complete-export endpoint.
//
// A logical query is partitioned along enumerable dimensions, any
// partition that still hits the source's result cap is subdivided
// recursively, and each final partition is paginated to exhaustion. The
// union of all partitions, deduplicated by primary key, is the result.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("lib/harvest")

type Options struct {
	// Workers bounds partition concurrency. The source rate-limits us,
	// so fan-out must have a ceiling.
	Workers int
	// PageSize per pagination request.
	PageSize int
	// MaxPages per partition before the walker declares the source
	// misbehaving.
	MaxPages int
	// MaxAttempts per network call.
	MaxAttempts uint64
	// CallTimeout per network call.
	CallTimeout time.Duration
	// SessionTTL before a cached session is considered stale.
	SessionTTL time.Duration
	// RequestsPerSecond caps the request rate across all workers.
	RequestsPerSecond float64
	Burst             int
	// InitialBackoff seeds retry backoff.
	InitialBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.PageSize <= 0 {
		o.PageSize = 50
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 100
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 5
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = time.Second * 30
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = time.Minute * 15
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 4
	}
	if o.Burst <= 0 {
		o.Burst = 2
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Millisecond * 500
	}
	return o
}

type Harvester struct {
	schema Schema
	walker *Walker
	opts   Options
}

func New(source Source, schema Schema, opts Options) *Harvester {
	opts = opts.withDefaults()
	sessions := NewSessionManager(source, opts.SessionTTL)
	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	walker := NewWalker(source, sessions, limiter, WalkerOptions{
		PageSize:       opts.PageSize,
		MaxPages:       opts.MaxPages,
		MaxAttempts:    opts.MaxAttempts,
		CallTimeout:    opts.CallTimeout,
		InitialBackoff: opts.InitialBackoff,
	})
	return &Harvester{
		schema: schema,
		walker: walker,
		opts:   opts,
	}
}

// Harvest retrieves every record matching the logical query. It always
// returns a HarvestResult: failures and completeness caveats live in the
// result's diagnostics, and cancellation returns whatever accumulated.
func (h *Harvester) Harvest(ctx context.Context, query LogicalQuery) (HarvestResult, error) {
	ctx, span := tracer.Start(ctx, "Harvest")
	defer span.End()

	sink := NewSink()
	wl := newWorklist()
	wl.add(query.Root())

	// stop handing out work once the caller cancels; in-flight walks
	// abort through their own contexts
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			wl.close()
		case <-watchDone:
		}
	}()

	var g errgroup.Group
	for i := 0; i < h.opts.Workers; i++ {
		workerKey := fmt.Sprintf("worker-%d", i)
		g.Go(func() error {
			for {
				part, ok := wl.next()
				if !ok {
					return nil
				}
				h.process(ctx, part, workerKey, sink, wl)
				wl.done()
			}
		})
	}
	g.Wait()
	close(watchDone)

	result := sink.Finalize()
	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("records", len(result.Records)),
		attribute.Int("partitions", result.Partitions),
		attribute.Int("rejections", len(result.Rejections)),
		attribute.Int("failures", len(result.Failures)),
		attribute.Int("incomplete", len(result.Incomplete)),
	)
	return result, ctx.Err()
}

func (h *Harvester) process(ctx context.Context, part Partition, workerKey string, sink *Sink, wl *worklist) {
	res, err := h.walker.Walk(ctx, part, workerKey)
	if err != nil {
		if ctx.Err() != nil {
			// cancelled mid-walk, not a partition failure
			return
		}
		slog.ErrorContext(ctx, "partition failed",
			"partition", part.Label(), "err", err)
		sink.Fail(part, err)
		return
	}

	if res.CapHit {
		// enumerating a known finite dimension is exact and cheap, so it
		// is always preferred over guessing a range split point
		if _, ok := part.NextCategory(); ok {
			for _, child := range part.Enumerate() {
				wl.add(child)
			}
			sink.PartitionDone()
			return
		}
		if !part.Range.AtFloor() {
			left, right := part.Bisect()
			wl.add(left)
			wl.add(right)
			sink.PartitionDone()
			return
		}
		// nothing left to subdivide: keep what the source gave us and
		// say so loudly in the diagnostics
		slog.WarnContext(ctx, "irreducible cap hit",
			"partition", part.Label(),
			"retrieved", len(res.Records),
			"reported", res.ReportedTotal)
		sink.MarkIncomplete(part, len(res.Records), res.ReportedTotal)
	}

	for _, raw := range res.Records {
		rec, err := h.schema.Validate(raw)
		if err != nil {
			var rej Rejection
			errors.As(err, &rej)
			sink.Reject(rej)
			continue
		}
		sink.Accept(rec)
	}
	sink.PartitionDone()
}
