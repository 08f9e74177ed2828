package harness

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`

	// Args is kept for error reports; the golden snapshot omits it since
	// the scenario file already holds it.
	Args map[string]any `json:"-"`

	// Result is the operation result with record uuids replaced by their
	// seed labels. Nil when the step failed.
	Result map[string]any `json:"result,omitempty"`

	// Error is the error class of a failed step, see errorClass.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Backend the scenario ran on.
	Backend string `json:"backend"`

	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// State is the final projection of the scenario collection: one entry
	// per record, in seed order.
	State []map[string]any `json:"state"`
}

// NewResult creates a passing result.
func NewResult(backend string) *Result {
	return &Result{
		Backend: backend,
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		State:   []map[string]any{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends a step to the trace.
func (r *Result) addTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
