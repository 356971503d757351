package session

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/tagrules/internal/identity"
	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/query"
	"github.com/roach88/tagrules/internal/queryir"
)

// Fetcher is the raw storage fetch. Every call may return fresh wrappers
// for rows it has returned before.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, entity ir.EntityType, pred queryir.Predicate, sort queryir.Sort) iter.Seq2[*T, error]
}

// Session routes fetches through an identity cache.
//
// A Session is not safe for concurrent use.
type Session[T any, P interface {
	*T
	ir.Record
}] struct {
	id      string
	fetcher Fetcher[T]
	cache   *identity.Cache[T, P]
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*options)

type options struct {
	ids    IDGenerator
	logger *slog.Logger
}

// WithIDGenerator sets the session id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New starts a session over f with an empty identity cache.
func New[T any, P interface {
	*T
	ir.Record
}](f Fetcher[T], opts ...Option) *Session[T, P] {
	o := options{ids: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session[T, P]{
		id:      o.ids.Generate(),
		fetcher: f,
		cache:   identity.New[T, P](),
	}
	s.logger = o.logger.With("session", s.id)
	s.logger.Debug("session started")
	return s
}

// ID returns the session id.
func (s *Session[T, P]) ID() string {
	return s.id
}

// Cache returns the session's identity cache.
func (s *Session[T, P]) Cache() *identity.Cache[T, P] {
	return s.cache
}

// Logger returns the session-scoped logger.
func (s *Session[T, P]) Logger() *slog.Logger {
	return s.logger
}

// Fetch yields the canonical instance of every record matching cq.
//
// Records are pulled from the fetcher one at a time as the sequence is
// consumed. The first fetch error is yielded and ends the sequence.
func (s *Session[T, P]) Fetch(ctx context.Context, entity ir.EntityType, cq *query.Compiled, sort queryir.Sort) iter.Seq2[P, error] {
	return func(yield func(P, error) bool) {
		if cq == nil {
			yield(nil, fmt.Errorf("session fetch %s: nil query", entity))
			return
		}
		if cq.Entity != entity {
			yield(nil, fmt.Errorf("session fetch %s: query compiled for %s", entity, cq.Entity))
			return
		}

		n := 0
		for raw, err := range s.fetcher.Fetch(ctx, entity, cq.Predicate, sort) {
			if err != nil {
				yield(nil, fmt.Errorf("session fetch %s: %w", entity, err))
				return
			}
			n++
			if !yield(s.cache.Canonicalize(P(raw)), nil) {
				break
			}
		}
		s.logger.Debug("fetched", "entity", entity, "records", n)
	}
}

// Albums fetches albums matching cq.
func (s *Session[T, P]) Albums(ctx context.Context, cq *query.Compiled, sort queryir.Sort) iter.Seq2[P, error] {
	return s.Fetch(ctx, ir.Album, cq, sort)
}

// Items fetches items matching cq.
func (s *Session[T, P]) Items(ctx context.Context, cq *query.Compiled, sort queryir.Sort) iter.Seq2[P, error] {
	return s.Fetch(ctx, ir.Item, cq, sort)
}
