package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tagrules/internal/config"
	"github.com/roach88/tagrules/internal/ir"
)

// Scenario defines a rule conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is a tagrules configuration block. Absent means defaults.
	Config yaml.Node `yaml:"config,omitempty"`

	// Albums and Items seed the library, in order.
	Albums []map[string]any `yaml:"albums,omitempty"`
	Items  []map[string]any `yaml:"items,omitempty"`

	// Assertions validate the report and the final library state.
	Assertions []Assertion `yaml:"assertions"`

	// SessionID is the fixed batch session id. Defaults to DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`

	cfg *config.Config
}

// DefaultSessionID is the session id used when a scenario names none.
const DefaultSessionID = "scenario-session"

// Assertion validates the report or the final library state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected count (modified_count, error_count).
	Count int `yaml:"count,omitempty"`

	// Records lists records as "<entity> <id>" (modified_order).
	Records []string `yaml:"records,omitempty"`

	// Contains is a substring of the expected run error (run_error).
	Contains string `yaml:"contains,omitempty"`

	// Entity and Query select stored records (final_state).
	// An empty query selects every record of the entity type.
	Entity string   `yaml:"entity,omitempty"`
	Query  []string `yaml:"query,omitempty"`

	// Expect holds expected field values, compared by their formatted
	// string form (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Absent lists fields every selected record must not have (final_state).
	Absent []string `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertModifiedCount = "modified_count"
	AssertModifiedOrder = "modified_order"
	AssertErrorCount    = "error_count"
	AssertRunError      = "run_error"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
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

// RuleConfig returns the parsed configuration block.
func (s *Scenario) RuleConfig() *config.Config {
	return s.cfg
}

// validateScenario checks required fields and parses the config block.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	cfg, err := parseConfigNode(&s.Config)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	s.cfg = cfg

	for i, fields := range s.Albums {
		if err := validateSeed(fields); err != nil {
			return fmt.Errorf("albums[%d]: %w", i, err)
		}
	}
	for i, fields := range s.Items {
		if err := validateSeed(fields); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func parseConfigNode(node *yaml.Node) (*config.Config, error) {
	if node.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

func validateSeed(fields map[string]any) error {
	if _, ok := fields["id"]; ok {
		return fmt.Errorf("id is assigned by the library")
	}
	for name, v := range fields {
		if _, err := ir.ToIRValue(v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertModifiedCount, AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertModifiedOrder:
		if a.Records == nil {
			return fmt.Errorf("assertions[%d]: records list is required for modified_order", index)
		}
	case AssertRunError:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for run_error", index)
		}
	case AssertFinalState:
		if _, err := ir.ParseEntityType(a.Entity); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if len(a.Expect) == 0 && len(a.Absent) == 0 {
			return fmt.Errorf("assertions[%d]: expect or absent is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
