package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a setup phase, a flow of
// ledger operations with expected outcomes, and assertions over the
// resulting chains and state.
type Scenario struct {
	// Name uniquely identifies the scenario. It is also the golden file
	// name, so it must be a valid file name.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Setup steps establish initial state. Every setup step must
	// succeed; expect clauses are not allowed here.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the main sequence of operations. Each step may carry an
	// expect clause; a step without one is expected to succeed.
	Flow []Step `yaml:"flow"`

	// Assertions validate chain verification results and final state
	// after the flow completes.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation in a scenario.
type Step struct {
	// Op names the operation to run.
	Op string `yaml:"op"`

	// Args holds the operation's arguments. Required even when empty so
	// an omitted args block is a visible authoring mistake.
	Args map[string]any `yaml:"args"`

	// Expect is the expected outcome. Nil means success.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause states a step's expected outcome.
type ExpectClause struct {
	// Outcome is "ok" or "error".
	Outcome string `yaml:"outcome"`

	// Code is the expected ledger error code when Outcome is "error":
	// VALIDATION, DUPLICATE_RECORD, SCOPE_NOT_FOUND, or STORAGE.
	Code string `yaml:"code,omitempty"`
}

// Operations a step can run.
//
// The ledger operations go through the same entry points the HTTP API
// and CLI use. clock.set and tamper are harness-only: one repositions
// the frozen clock, the other edits stored rows to plant corruption for
// verification scenarios. Neither can fail with a ledger error, so
// expect clauses are not allowed on them.
const (
	OpProjectAdd     = "project.add"
	OpProgressReport = "progress.report"
	OpAuditLog       = "audit.log"
	OpAuditPurge     = "audit.purge"
	OpClockSet       = "clock.set"
	OpTamper         = "tamper"
)

// Assertion validates verification results or final database state.
type Assertion struct {
	// Type specifies the assertion:
	//   - "chain_valid": verify a chain and require zero findings
	//   - "findings": verify a chain and require exactly these findings
	//   - "record_count": count table rows matching a filter
	//   - "final_state": fetch exactly one row and check field values
	Type string `yaml:"type"`

	// Scope names the chain to verify (chain_valid, findings):
	// "progress/<project-id>" or "audit/global".
	Scope string `yaml:"scope,omitempty"`

	// Findings lists the expected findings in chain order (findings).
	Findings []ExpectedFinding `yaml:"findings,omitempty"`

	// Table is the table to query (record_count, final_state).
	Table string `yaml:"table,omitempty"`

	// Where filters rows by column equality (record_count, final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Count is the expected number of matching rows (record_count).
	Count int `yaml:"count,omitempty"`

	// Expect holds expected column values for the matched row
	// (final_state). Subset match: unlisted columns are not checked.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// ExpectedFinding is one anticipated verification finding.
type ExpectedFinding struct {
	// Kind is HASH_MISMATCH or LINK_MISMATCH.
	Kind string `yaml:"kind"`

	// Seq is the sequence number of the flagged record.
	Seq int64 `yaml:"seq"`
}

// Assertion type constants.
const (
	AssertChainValid  = "chain_valid"
	AssertFindings    = "findings"
	AssertRecordCount = "record_count"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo like "assertion:" for "assertions:" fails loudly
// instead of silently dropping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// knownOps is the closed operation vocabulary.
var knownOps = map[string]bool{
	OpProjectAdd:     true,
	OpProgressReport: true,
	OpAuditLog:       true,
	OpAuditPurge:     true,
	OpClockSet:       true,
	OpTamper:         true,
}

// validateScenario checks required fields and the step/assertion shapes.
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

	for i, step := range s.Setup {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup, setup steps must succeed", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(&assertion); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

// validateStep checks one step's op and expect shape.
func validateStep(step *Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	if !knownOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Args == nil {
		return fmt.Errorf("args is required (use an empty map if the op takes none)")
	}

	if step.Expect != nil {
		if step.Op == OpClockSet || step.Op == OpTamper {
			return fmt.Errorf("expect is not allowed on %s", step.Op)
		}
		switch step.Expect.Outcome {
		case "ok":
			if step.Expect.Code != "" {
				return fmt.Errorf("expect.code is only valid with outcome \"error\"")
			}
		case "error":
			if step.Expect.Code == "" {
				return fmt.Errorf("expect.code is required with outcome \"error\"")
			}
		default:
			return fmt.Errorf("expect.outcome must be \"ok\" or \"error\", got %q", step.Expect.Outcome)
		}
	}

	return nil
}

// validateAssertion checks one assertion's required fields per type.
func validateAssertion(a *Assertion) error {
	switch a.Type {
	case AssertChainValid:
		if a.Scope == "" {
			return fmt.Errorf("scope is required for chain_valid")
		}
	case AssertFindings:
		if a.Scope == "" {
			return fmt.Errorf("scope is required for findings")
		}
		if len(a.Findings) == 0 {
			return fmt.Errorf("findings list is required for findings (use chain_valid to assert none)")
		}
		for i, f := range a.Findings {
			if f.Kind != "HASH_MISMATCH" && f.Kind != "LINK_MISMATCH" {
				return fmt.Errorf("findings[%d]: kind must be HASH_MISMATCH or LINK_MISMATCH, got %q", i, f.Kind)
			}
		}
	case AssertRecordCount:
		if a.Table == "" {
			return fmt.Errorf("table is required for record_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for record_count")
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("table is required for final_state")
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("expect is required for final_state")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	return nil
}
