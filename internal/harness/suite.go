package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SuitePatterns are the doublestar globs that select scenario files.
var SuitePatterns = []string{"**/*.yaml", "**/*.yml"}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// FindScenarios returns the scenario files under dir, sorted. A non-empty
// filter is a glob matched against the file name without its extension.
func FindScenarios(dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	if filter != "" && !doublestar.ValidatePattern(filter) {
		return nil, fmt.Errorf("invalid filter pattern %q", filter)
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var files []string
	for _, p := range SuitePatterns {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(m), filepath.Ext(m))
			if filter != "" {
				if ok, _ := doublestar.Match(filter, name); !ok {
					continue
				}
			}
			seen[m] = true
			files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs every scenario under dir. Load and execution
// failures count as failed scenarios; only a bad directory or filter is
// returned as an error.
func RunSuite(dir, filter string) (*SuiteResult, error) {
	files, err := FindScenarios(dir, filter)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	for _, path := range files {
		sr := runScenarioFile(path)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}
	return result, nil
}

func runScenarioFile(path string) ScenarioResult {
	sr := ScenarioResult{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path: path,
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := Run(scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return sr
	}
	sr.Pass = result.Pass
	sr.Errors = result.Errors
	return sr
}
