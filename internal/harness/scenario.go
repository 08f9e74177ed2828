package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txtag/internal/queryir"
)

// Scenario defines an end-to-end tagging scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Collection the scenario works on. Defaults to the fixture IBAN.
	Collection string `yaml:"collection,omitempty"`

	// Fixture seeds the five reference bookings before Records.
	Fixture bool `yaml:"fixture,omitempty"`

	// Records are transaction records seeded after the fixture. They run
	// through the stored parsers before insert.
	Records []map[string]any `yaml:"records,omitempty"`

	// Metadata records are saved (overwriting) before anything is seeded.
	Metadata []map[string]any `yaml:"metadata,omitempty"`

	// Flow contains the operations to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and the final records.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one operation of the flow.
type FlowStep struct {
	// Op names the operation, see the Op* constants.
	Op string `yaml:"op"`

	// Args are the operation arguments. Which keys apply depends on Op.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect validates the step outcome. Without it the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected error class. Empty means the step succeeds.
	Error string `yaml:"error,omitempty"`

	// Result holds expected result fields (subset match).
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or the final records.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Record is the seed label index of the record (final_state).
	Record *int `yaml:"record,omitempty"`

	// Filter and Multi select records (count).
	Filter []queryir.Condition `yaml:"filter,omitempty"`
	Multi  queryir.Multi       `yaml:"multi,omitempty"`

	// Expect holds expected record fields (final_state, subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of steps or records.
	Count *int `yaml:"count,omitempty"`
}

// Flow operations.
const (
	OpInsert      = "insert"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpSetMetadata = "set_metadata"
	OpAddGroup    = "add_group"
	OpParse       = "parse"
	OpTag         = "tag"
	OpCategorize  = "categorize"
	OpTagAndCat   = "tag_and_cat"
	OpCustom      = "custom"
	OpManual      = "manual"
	OpRemoveTags  = "remove_tags"
	OpRemoveCat   = "remove_cat"
	OpClassify    = "classify"
)

var knownOps = []string{
	OpInsert, OpUpdate, OpDelete, OpSetMetadata, OpAddGroup, OpParse,
	OpTag, OpCategorize, OpTagAndCat, OpCustom, OpManual, OpRemoveTags, OpRemoveCat, OpClassify,
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertCount         = "count"
)

// Error classes used by ExpectClause.Error and TraceEvent.Error.
const (
	ErrClassValidation   = "validation"
	ErrClassRuleNotFound = "rule_not_found"
	ErrClassSchema       = "schema"
	ErrClassLockTimeout  = "lock_timeout"
	ErrClassOther        = "error"
)

var knownErrClasses = []string{
	ErrClassValidation, ErrClassRuleNotFound, ErrClassSchema, ErrClassLockTimeout, ErrClassOther,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if !slices.Contains(knownOps, step.Op) {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Error != "" && !slices.Contains(knownErrClasses, step.Expect.Error) {
			return fmt.Errorf("flow[%d].expect: unknown error class %q", i, step.Expect.Error)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: trace_contains requires op", index)
		}
	case AssertTraceCount:
		if a.Op == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: trace_count requires op and count", index)
		}
	case AssertFinalState:
		if a.Record == nil || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: final_state requires record and expect", index)
		}
	case AssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count requires count", index)
		}
		if _, err := queryir.ParseMulti(string(a.Multi)); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
