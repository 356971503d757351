package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tagrules/internal/engine"
	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/library"
	"github.com/roach88/tagrules/internal/session"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	lib    *library.Library
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory library with a fixed session id.
//
// Execution flow:
//  1. Open an in-memory library and seed albums, then items
//  2. Run every configured rule in one batch session
//  3. Store the modified records unless the run aborted
//  4. Evaluate assertions against the result and the stored library
//
// An error is returned only when the scenario itself cannot execute. A
// run that aborts is reported in Result.RunError.
func Run(scenario *Scenario) (*Result, error) {
	if scenario.cfg == nil {
		if err := validateScenario(scenario); err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
	}

	lib, err := library.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory library: %w", err)
	}
	defer lib.Close()

	h := &Harness{
		lib:    lib,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx := context.Background()

	if err := h.seed(ctx, ir.Album, scenario.Albums); err != nil {
		return nil, fmt.Errorf("failed to seed albums: %w", err)
	}
	if err := h.seed(ctx, ir.Item, scenario.Items); err != nil {
		return nil, fmt.Errorf("failed to seed items: %w", err)
	}

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	result := NewResult(sessionID)

	if err := h.execute(ctx, scenario, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Library: lib,
		Config:  scenario.cfg,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// seed adds one model per field map, in order.
func (h *Harness) seed(ctx context.Context, entity ir.EntityType, records []map[string]any) error {
	for i, fields := range records {
		m, err := library.ModelFromFields(entity, fields)
		if err != nil {
			return fmt.Errorf("%s %d: %w", entity, i, err)
		}
		if err := h.lib.Add(ctx, m); err != nil {
			return fmt.Errorf("%s %d: %w", entity, i, err)
		}
	}
	return nil
}

// execute runs the rules and stores the outcome.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	cfg := scenario.cfg

	sess := session.New[library.Model](h.lib,
		session.WithIDGenerator(session.NewFixedGenerator(result.SessionID)),
		session.WithLogger(h.logger),
	)
	eng := engine.New[library.Model](
		engine.WithCompiler(cfg.Compiler()),
		engine.WithPolicy(cfg.FailurePolicy()),
	)

	res, err := eng.Run(ctx, cfg.ParsedRules(), sess)
	if err != nil {
		result.RunError = err.Error()
		h.logger.Info("run aborted", "scenario", scenario.Name, "error", err)
		return nil
	}

	for _, rerr := range res.Errors {
		result.RecordErrors = append(result.RecordErrors, rerr.Error())
	}

	models := res.Modified.Records()
	result.Modified = library.Summarize(models)

	if err := h.lib.Store(ctx, models...); err != nil {
		return fmt.Errorf("failed to store modified records: %w", err)
	}
	return nil
}
