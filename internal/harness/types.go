package harness

import "fmt"

// TraceEvent is one entry in a scenario's execution trace. Every step
// produces an invoke event followed by a complete event.
//
// Events never carry record hashes or timestamps: hashes depend on the
// full canonical payload and timestamps on the scenario's clock steps,
// and embedding either would turn every chain change into a golden
// churn. Chain integrity is asserted through verification instead.
type TraceEvent struct {
	// Type is "invoke" or "complete".
	Type string

	// Step is the 1-based step number, counting setup and flow together.
	Step int

	// Op is the operation name (invoke only).
	Op string

	// Args echoes the step's arguments (invoke only).
	Args map[string]any

	// Outcome is "ok" or "error" (complete only).
	Outcome string

	// Result holds op-specific output for successful steps:
	//   project.add      {"project_id": ...}
	//   progress.report  {"record_id": ..., "seq": ...}
	//   audit.log        {"record_id": ..., "seq": ...}
	//   audit.purge      {"removed": ...}
	//   tamper           {"rows": ...}
	// clock.set completes with no result.
	Result map[string]any

	// Code is the ledger error code for failed steps (complete only).
	Code string
}

// Result collects everything a scenario run produced.
type Result struct {
	// ScenarioName identifies the scenario that ran.
	ScenarioName string

	// Trace is the ordered list of execution events.
	Trace []TraceEvent

	// Errors lists outcome mismatches and assertion failures. A run
	// with a non-empty Errors list failed the scenario.
	Errors []string
}

// NewResult creates an empty result for the named scenario.
func NewResult(name string) *Result {
	return &Result{
		ScenarioName: name,
		Trace:        []TraceEvent{},
		Errors:       []string{},
	}
}

// Passed reports whether the run completed with no errors.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// AddError records a failure message.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// addInvoke appends the invoke event for a step.
func (r *Result) addInvoke(step int, op string, args map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: "invoke",
		Step: step,
		Op:   op,
		Args: args,
	})
}

// addCompleteOK appends a successful completion event. result may be nil
// for ops with no output.
func (r *Result) addCompleteOK(step int, result map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    "complete",
		Step:    step,
		Outcome: "ok",
		Result:  result,
	})
}

// addCompleteError appends a failed completion event.
func (r *Result) addCompleteError(step int, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    "complete",
		Step:    step,
		Outcome: "error",
		Code:    code,
	})
}
