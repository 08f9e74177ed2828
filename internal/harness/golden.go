package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden view of a scenario run. It holds no backend
// name, so every backend must produce the same bytes.
type Snapshot struct {
	Scenario string           `json:"scenario"`
	Trace    []TraceEvent     `json:"trace"`
	State    []map[string]any `json:"state"`
}

// NewSnapshot builds the golden view of a result.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	return Snapshot{
		Scenario: scenario.Name,
		Trace:    result.Trace,
		State:    result.State,
	}
}

// Render encodes the snapshot as indented JSON with sorted object keys.
func (s Snapshot) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs a scenario on backend, fails the test on any
// expectation or assertion error and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, backend string) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario, backend, WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("run scenario %s on %s: %v", scenario.Name, backend, err)
	}
	for _, e := range result.Errors {
		t.Errorf("%s on %s: %s", scenario.Name, backend, e)
	}

	AssertGolden(t, scenario, result)
	return result
}

// AssertGolden compares the snapshot of result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	data, err := NewSnapshot(scenario, result).Render()
	if err != nil {
		t.Fatalf("render snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
