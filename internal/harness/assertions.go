package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/txtag/internal/ir"
	"github.com/roach88/txtag/internal/queryir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			outcome := "ok"
			if ev.Error != "" {
				outcome = ev.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", ev.Step, ev.Op, ev.Args, outcome)
		}
	}
	return buf.String()
}

// checkAssertions evaluates every scenario assertion against the trace and
// the final records.
func (r *runner) checkAssertions(ctx context.Context, docs map[string]ir.Document) {
	for i, a := range r.scenario.Assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(r.result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(r.result.Trace, a)
		case AssertFinalState:
			err = r.assertFinalState(docs, a)
		case AssertCount:
			err = r.assertCount(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			r.result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
}

// assertTraceContains checks that an operation of the given kind succeeded.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Op == a.Op && ev.Error == "" {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("a successful %s step", a.Op),
		Actual:   "none found",
		Trace:    trace,
	}
}

// assertTraceCount checks that an operation ran exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Op == a.Op {
			n++
		}
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s steps", *a.Count, a.Op),
			Actual:   fmt.Sprintf("%d %s steps", n, a.Op),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the expected fields of one record. A field the
// record does not carry compares as null.
func (r *runner) assertFinalState(docs map[string]ir.Document, a Assertion) error {
	idx := *a.Record
	if idx < 0 || idx >= len(r.order) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record #%d", idx),
			Actual:   fmt.Sprintf("%d records seeded", len(r.order)),
		}
	}
	doc, ok := docs[r.order[idx]]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record #%d to exist", idx),
			Actual:   "record was deleted",
			Trace:    r.result.Trace,
		}
	}

	for key, expected := range a.Expect {
		want, err := ir.Normalize(expected)
		if err != nil {
			return fmt.Errorf("expect.%s: %w", key, err)
		}
		if got := doc[key]; !ir.Equal(want, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("record #%d %s = %v", idx, key, want),
				Actual:   fmt.Sprintf("record #%d %s = %v", idx, key, got),
				Trace:    r.result.Trace,
			}
		}
	}
	return nil
}

// assertCount checks how many records of the scenario collection a filter
// selects.
func (r *runner) assertCount(ctx context.Context, a Assertion) error {
	conds := make([]queryir.Condition, 0, len(a.Filter))
	for _, c := range a.Filter {
		v, err := ir.Normalize(c.Value)
		if err != nil {
			return err
		}
		c.Value = v
		conds = append(conds, c)
	}
	multi, err := queryir.ParseMulti(string(a.Multi))
	if err != nil {
		return err
	}

	docs, err := r.store.Select(ctx, r.collection, queryir.Filter{Conditions: conds, Multi: multi})
	if err != nil {
		return fmt.Errorf("count query: %w", err)
	}
	if len(docs) != *a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d records matching %v", *a.Count, conds),
			Actual:   fmt.Sprintf("%d records", len(docs)),
			Trace:    r.result.Trace,
		}
	}
	return nil
}
