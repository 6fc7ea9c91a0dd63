package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relsync/internal/ir"
)

// Scenario is a sequence of mutate and resolve steps run against one
// schema.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE schema directory. Relative paths are resolved
	// against the scenario file location.
	Schema string `yaml:"schema"`

	// Steps run in order, each in its own transaction.
	Steps []Step `yaml:"steps"`
}

// Step is exactly one of Mutate or Resolve.
type Step struct {
	Name string `yaml:"name,omitempty"`

	// Mutate is a mutate request in its JSON shape: action, model, data,
	// identifiers, attributes, requestId.
	Mutate map[string]any `yaml:"mutate,omitempty"`

	Resolve *ResolveStep `yaml:"resolve,omitempty"`

	// Expect is checked against the step's result. If nil, any result
	// that is not a configuration error is accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ResolveStep reads one model.
type ResolveStep struct {
	Model string         `yaml:"model"`
	Scope string         `yaml:"scope,omitempty"`
	Query map[string]any `yaml:"query,omitempty"`
}

// Expect describes the expected outcome of a step. Unset fields are not
// checked.
type Expect struct {
	// Errors lists the expected validation error keys, in any order. An
	// empty list asserts success.
	Errors []string `yaml:"errors,omitempty"`

	// Fields lists the expected error field paths, in any order.
	Fields []string `yaml:"fields,omitempty"`

	TransactionFailed bool `yaml:"transaction_failed,omitempty"`

	// Generated lists keys that must appear in the generated ids.
	Generated []string `yaml:"generated,omitempty"`

	// ConfigError is the expected configuration error code.
	ConfigError string `yaml:"config_error,omitempty"`

	Count *int64 `yaml:"count,omitempty"`

	// Rows is matched position by position against the resolved rows.
	// Each expected row is a subset of the actual one; nested includes are
	// matched the same way.
	Rows []map[string]any `yaml:"rows,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving a relative schema path
// against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && baseDir != "" {
		scenario.Schema = filepath.Join(baseDir, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	switch {
	case step.Mutate == nil && step.Resolve == nil:
		return fmt.Errorf("steps[%d]: one of mutate or resolve is required", i)
	case step.Mutate != nil && step.Resolve != nil:
		return fmt.Errorf("steps[%d]: mutate and resolve are mutually exclusive", i)
	case step.Resolve != nil && step.Resolve.Model == "":
		return fmt.Errorf("steps[%d].resolve: model is required", i)
	}
	if step.Mutate != nil {
		if _, err := decodeRequest(step.Mutate); err != nil {
			return fmt.Errorf("steps[%d].mutate: %w", i, err)
		}
	}
	if step.Resolve != nil {
		if _, err := decodeQuery(step.Resolve.Query); err != nil {
			return fmt.Errorf("steps[%d].resolve.query: %w", i, err)
		}
	}

	if e := step.Expect; e != nil {
		if step.Mutate != nil && (e.Count != nil || e.Rows != nil) {
			return fmt.Errorf("steps[%d].expect: count and rows apply to resolve steps", i)
		}
		if step.Resolve != nil && (e.Errors != nil || e.Fields != nil || e.Generated != nil || e.TransactionFailed) {
			return fmt.Errorf("steps[%d].expect: errors, fields, generated and transaction_failed apply to mutate steps", i)
		}
	}
	return nil
}

// decodeRequest converts the YAML form of a mutate request through its
// JSON shape, so field names match the wire format.
func decodeRequest(m map[string]any) (ir.MutateRequest, error) {
	var req ir.MutateRequest
	if err := viaJSON(m, &req); err != nil {
		return req, err
	}
	if req.Model == "" {
		return req, fmt.Errorf("model is required")
	}
	return req, nil
}

func decodeQuery(m map[string]any) (ir.Query, error) {
	var q ir.Query
	if m == nil {
		return q, nil
	}
	err := viaJSON(m, &q)
	return q, err
}

func viaJSON(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
