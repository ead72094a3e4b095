package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/stockroom/internal/allocation"
	"github.com/roach88/stockroom/internal/catalog"
	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/payment"
	"github.com/roach88/stockroom/internal/store"
	"github.com/roach88/stockroom/internal/testutil"
)

// Harness is the scenario execution environment.
type Harness struct {
	store    *store.Store
	engine   *allocation.Engine
	guard    *payment.Guard
	resolver *correlation.Resolver
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and apply the catalog
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the trace and final documents
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext is Run with a caller context and logger. A nil logger discards logs.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st, err := store.Open(":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if scenario.Catalog != "" {
		c, err := catalog.LoadFile(scenario.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		if _, err := c.Apply(ctx, st, logger); err != nil {
			return nil, fmt.Errorf("failed to apply catalog: %w", err)
		}
	}

	eng := allocation.New(st,
		allocation.WithRunIDGenerator(testutil.NewSequentialRunIDs(scenario.RunIDPrefix)),
		allocation.WithLogger(logger),
	)
	h := &Harness{
		store:    st,
		engine:   eng,
		guard:    payment.NewGuard(st, eng, logger),
		resolver: correlation.NewResolver(st, logger),
		clock:    testutil.NewDeterministicClock(),
		logger:   logger,
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one operation, traces it and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	action, ok := actions[step.Invoke]
	if !ok {
		return fmt.Errorf("flow step %d: unknown action %q", i, step.Invoke)
	}

	args, err := normalize(step.Args)
	if err != nil {
		return fmt.Errorf("flow step %d: %w", i, err)
	}
	result.AddInvocationTrace(step.Invoke, args, h.clock.Next())

	out, opErr := action(h, ctx, step.Args)
	if errors.Is(opErr, errBadArgs) {
		return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, opErr)
	}

	outcome := completionCase(opErr)
	var value any
	if opErr == nil {
		if value, err = normalize(out); err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
	}
	result.AddCompletionTrace(outcome, value, h.clock.Next())

	h.logger.Info("flow step completed", "step", i, "action", step.Invoke, "output_case", outcome)

	if step.Expect == nil {
		if opErr != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Invoke, opErr))
		}
		return nil
	}

	if outcome != step.Expect.Case {
		msg := fmt.Sprintf("flow[%d] %s: expected case %q, got %q", i, step.Invoke, step.Expect.Case, outcome)
		if opErr != nil {
			msg += fmt.Sprintf(" (%v)", opErr)
		}
		result.AddError(msg)
		return nil
	}
	if step.Expect.Result != nil {
		want, err := normalize(step.Expect.Result)
		if err != nil {
			return fmt.Errorf("flow step %d: expected result: %w", i, err)
		}
		if !matchArgs(value, want.(map[string]any)) {
			result.AddError(fmt.Sprintf("flow[%d] %s: result %v does not contain %v", i, step.Invoke, value, want))
		}
	}
	return nil
}

// normalize converts v to its JSON shape (maps, slices, float64, string,
// bool) so YAML-decoded expectations and Go results compare directly.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Map && rv.IsNil() {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	return out, nil
}
