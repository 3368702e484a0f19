package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/verist/sitechain/internal/canonical"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// toCanonicalValue converts the snapshot to a canonical value tree, so the
// golden bytes come from the exact serializer the chain digests use. One
// serializer means one set of formatting rules to reason about.
func (s *TraceSnapshot) toCanonicalValue() (canonical.Value, error) {
	trace := make(canonical.Array, len(s.Trace))
	for i, event := range s.Trace {
		obj := canonical.Object{
			"type": canonical.String(event.Type),
			"step": canonical.Int(event.Step),
		}

		switch event.Type {
		case "invoke":
			obj["op"] = canonical.String(event.Op)
			args, err := toValue(event.Args)
			if err != nil {
				return nil, fmt.Errorf("trace[%d] args: %w", i, err)
			}
			obj["args"] = args

		case "complete":
			obj["outcome"] = canonical.String(event.Outcome)
			if event.Outcome == "ok" {
				if event.Result != nil {
					result, err := toValue(event.Result)
					if err != nil {
						return nil, fmt.Errorf("trace[%d] result: %w", i, err)
					}
					obj["result"] = result
				}
			} else {
				obj["code"] = canonical.String(event.Code)
			}

		default:
			return nil, fmt.Errorf("trace[%d]: unknown event type %q", i, event.Type)
		}

		trace[i] = obj
	}

	return canonical.Object{
		"scenario_name": canonical.String(s.ScenarioName),
		"trace":         trace,
	}, nil
}

// AssertGolden compares a result's trace against testdata/golden/<name>.golden.
// Regenerate with: go test ./internal/harness -update
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	value, err := snapshot.toCanonicalValue()
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", scenarioName, err)
	}
	data, err := canonical.MarshalCanonical(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", scenarioName, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file. The result comes back so callers can also check Passed()
// and Errors; the golden covers the trace, not the assertions.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}
