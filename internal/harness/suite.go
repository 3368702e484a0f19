package harness

import (
	"fmt"
	"path/filepath"
	"sort"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
}

// ScenarioOutcome is one scenario's pass/fail summary.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Passed bool     `json:"passed"`
	Errors []string `json:"errors,omitempty"`
}

// RunSuite loads and runs every scenario file under dir (.yaml or .yml,
// sorted by path). A scenario that fails to load or run counts as a
// failure rather than aborting the suite, so one broken file never hides
// the results of the rest.
func RunSuite(dir string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan scenario dir: %w", err)
	}
	more, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("scan scenario dir: %w", err)
	}
	paths = append(paths, more...)
	sort.Strings(paths)

	suite := &SuiteResult{Scenarios: []ScenarioOutcome{}}
	for _, path := range paths {
		outcome := runScenarioFile(path)
		suite.Scenarios = append(suite.Scenarios, outcome)
		suite.Total++
		if outcome.Passed {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}

	return suite, nil
}

// runScenarioFile loads and executes one scenario file.
func runScenarioFile(path string) ScenarioOutcome {
	scenario, err := LoadScenario(path)
	if err != nil {
		return ScenarioOutcome{
			Name:   filepath.Base(path),
			Path:   path,
			Errors: []string{err.Error()},
		}
	}

	result, err := Run(scenario)
	if err != nil {
		return ScenarioOutcome{
			Name:   scenario.Name,
			Path:   path,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	return ScenarioOutcome{
		Name:   scenario.Name,
		Path:   path,
		Passed: result.Passed(),
		Errors: result.Errors,
	}
}
