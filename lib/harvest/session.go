package harvest

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Session is opaque authentication state minted by a source handshake
// (cookies, anti-automation tokens). It is owned by the SessionManager
// and consumed read-only by the walker.
type Session interface {
	IssuedAt() time.Time
}

// RawRecord is whatever fields the source returns for one result row.
type RawRecord map[string]string

// ResultPage is one page of raw records plus the source's pagination
// metadata.
type ResultPage struct {
	Records []RawRecord
	Offset  int
	// Total is the match count the source reports. It may itself be
	// capped, so it is a hint, not a promise.
	Total int
	// Truncated is set when the source admits (explicitly or through a
	// source-specific heuristic) that results were cut off.
	Truncated bool
}

// Source is the scraping target. Implementations translate partitions
// into whatever request shape the portal expects.
type Source interface {
	// Handshake establishes fresh authenticated scraping state.
	Handshake(ctx context.Context) (Session, error)
	// FetchPage fetches one page of results for a partition. It must
	// return an error wrapping ErrAuthRejected when the source turns the
	// session away.
	FetchPage(ctx context.Context, part Partition, sess Session, offset, limit int) (ResultPage, error)
}

// SessionManager caches live sessions per worker key, so concurrent
// workers hold independent contexts and one worker's invalidation never
// touches another's in-flight requests.
type SessionManager struct {
	source Source
	cache  *expirable.LRU[string, Session]
}

func NewSessionManager(source Source, ttl time.Duration) *SessionManager {
	return &SessionManager{
		source: source,
		cache:  expirable.NewLRU[string, Session](64, nil, ttl),
	}
}

// Acquire returns the cached session for the key, or performs the
// source's handshake and caches the result.
func (m *SessionManager) Acquire(ctx context.Context, key string) (Session, error) {
	cached, hit := m.cache.Get(key)
	if hit {
		return cached, nil
	}

	ctx, span := tracer.Start(ctx, "session:Acquire")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	sess, err := m.source.Handshake(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handshake failed")
		return nil, err
	}
	m.cache.Add(key, sess)
	return sess, nil
}

// Invalidate drops the cached session for the key so the next Acquire
// performs a fresh handshake.
func (m *SessionManager) Invalidate(key string) {
	m.cache.Remove(key)
}
