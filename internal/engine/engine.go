package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/query"
	"github.com/roach88/tagrules/internal/queryir"
	"github.com/roach88/tagrules/internal/rule"
	"github.com/roach88/tagrules/internal/session"
)

// Engine runs rules against a batch session.
//
// T is the concrete record type the session's storage produces.
// An Engine holds no per-run state and may be reused across runs.
type Engine[T any, P interface {
	*T
	ir.Record
}] struct {
	compiler *query.Compiler
	policy   Policy
	sort     queryir.Sort
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	compiler *query.Compiler
	policy   Policy
	sort     queryir.Sort
	logger   *slog.Logger
}

// WithCompiler sets the query compiler. Default: query.NewCompiler(nil).
func WithCompiler(c *query.Compiler) Option {
	return func(cfg *config) {
		cfg.compiler = c
	}
}

// WithPolicy sets the failure policy. Default: FailFast.
func WithPolicy(p Policy) Option {
	return func(cfg *config) {
		cfg.policy = p
	}
}

// WithSort sets the order records are fetched and modified in.
// Default: id ascending.
func WithSort(s queryir.Sort) Option {
	return func(cfg *config) {
		cfg.sort = s
	}
}

// WithLogger sets the logger for Import and MatchAndApply. Run logs through
// the session's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// New creates an Engine.
func New[T any, P interface {
	*T
	ir.Record
}](opts ...Option) *Engine[T, P] {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.compiler == nil {
		cfg.compiler = query.NewCompiler(nil)
	}
	return &Engine[T, P]{
		compiler: cfg.compiler,
		policy:   cfg.policy,
		sort:     cfg.sort,
		logger:   cfg.logger,
	}
}

// Policy returns the engine's failure policy.
func (e *Engine[T, P]) Policy() Policy {
	return e.policy
}

// Result is the outcome of Run.
type Result[T any, P interface {
	*T
	ir.Record
}] struct {
	Modified *ModifiedSet[T, P]

	// Errors holds the record failures skipped under BestEffort, in the
	// order they happened. Always empty under FailFast.
	Errors []error
}

// Run applies every rule, in order, to the records it matches in sess.
//
// Compile and fetch failures always abort the run. A failed record
// application aborts it under FailFast; under BestEffort the record is
// dropped from the ModifiedSet and the run continues. On abort, Run returns
// a nil Result: records already changed in memory must not be persisted.
func (e *Engine[T, P]) Run(ctx context.Context, rules []*rule.Rule, sess *session.Session[T, P]) (*Result[T, P], error) {
	logger := sess.Logger()
	res := &Result[T, P]{Modified: NewModifiedSet[T, P]()}
	failed := make(map[*T]struct{})

	for i, r := range rules {
		if err := ctx.Err(); err != nil {
			return nil, &RunError{Rule: i, Source: r.String(), Err: err}
		}

		cq, err := r.Compile(e.compiler, r.Entity)
		if err != nil {
			return nil, &RunError{Rule: i, Source: r.String(), Err: err}
		}

		matched := 0
		for rec, err := range sess.Fetch(ctx, r.Entity, cq, e.sort) {
			if err != nil {
				return nil, &RunError{Rule: i, Source: r.String(), Err: err}
			}
			matched++

			if err := r.ApplyTo(rec); err != nil {
				key := ir.KeyOf(rec)
				rerr := &RunError{Rule: i, Source: r.String(), Record: &key, Err: err}
				if e.policy == FailFast {
					return nil, rerr
				}
				logger.Warn("skipping record",
					"rule", i,
					"entity", key.Entity,
					"id", key.ID,
					"error", err,
				)
				res.Errors = append(res.Errors, rerr)
				failed[(*T)(rec)] = struct{}{}
				continue
			}
			res.Modified.Add(rec)
		}

		logger.Debug("rule applied",
			"rule", r.String(),
			"entity", r.Entity,
			"matched", matched,
		)
	}

	for _, rec := range res.Modified.Records() {
		if _, ok := failed[(*T)(rec)]; ok {
			res.Modified.Remove(rec)
		}
	}

	logger.Info("run complete",
		"rules", len(rules),
		"modified", res.Modified.Len(),
		"skipped", len(failed),
	)
	return res, nil
}

// MatchAndApply tests rec against r's query, compiled for rec's own entity
// type, and applies r's change-set if it matches. No storage is involved.
// Returns false, leaving rec untouched, if it does not match.
func (e *Engine[T, P]) MatchAndApply(r *rule.Rule, rec ir.Record) (bool, error) {
	ok, err := r.Match(e.compiler, rec)
	if err != nil || !ok {
		return false, err
	}
	if err := r.ApplyTo(rec); err != nil {
		return false, err
	}
	return true, nil
}

// Import runs MatchAndApply for every rule, in order, on one record.
// Returns the number of rules that matched. The first error stops the
// remaining rules regardless of policy.
func (e *Engine[T, P]) Import(rules []*rule.Rule, rec ir.Record) (int, error) {
	applied := 0
	for i, r := range rules {
		ok, err := e.MatchAndApply(r, rec)
		if err != nil {
			key := ir.KeyOf(rec)
			return applied, &RunError{Rule: i, Source: r.String(), Record: &key, Err: err}
		}
		if ok {
			applied++
		}
	}

	e.logger.Debug("import rules applied",
		"entity", rec.Entity(),
		"id", rec.ID(),
		"applied", applied,
	)
	return applied, nil
}
