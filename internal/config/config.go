package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tagrules/internal/engine"
	"github.com/roach88/tagrules/internal/query"
	"github.com/roach88/tagrules/internal/rule"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration file.
type Config struct {
	Rules       []RuleSpec        `yaml:"rules"`
	ShowChanges bool              `yaml:"showchanges"`
	Confirm     bool              `yaml:"confirm"`
	OnImport    bool              `yaml:"onimport"`
	Policy      string            `yaml:"policy"`
	Prefixes    map[string]string `yaml:"prefixes"`

	rules    []*rule.Rule
	registry *query.Registry
	policy   engine.Policy
}

// RuleSpec is one configured rule: shell-quoted text or a token list.
type RuleSpec struct {
	Text   string
	Tokens []string
}

// UnmarshalYAML accepts a string or a sequence of strings.
func (r *RuleSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&r.Text)
	case yaml.SequenceNode:
		return node.Decode(&r.Tokens)
	default:
		return fmt.Errorf("line %d: rule must be a string or a list of strings", node.Line)
	}
}

// MarshalYAML writes the rule back in the form it was read.
func (r RuleSpec) MarshalYAML() (any, error) {
	if r.Tokens != nil {
		return r.Tokens, nil
	}
	return r.Text, nil
}

// Parse parses the rule.
func (r RuleSpec) Parse() (*rule.Rule, error) {
	if r.Tokens != nil {
		return rule.Parse(r.Tokens)
	}
	return rule.ParseText(r.Text)
}

// Default returns the configuration used when a key is absent.
func Default() *Config {
	c := &Config{
		ShowChanges: true,
		Confirm:     true,
		OnImport:    false,
		Policy:      engine.FailFast.String(),
	}
	if err := c.init(); err != nil {
		panic(err)
	}
	return c
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if filepath.Ext(path) == ".cue" {
		data, err = cueToJSON(path, data)
		if err != nil {
			return nil, err
		}
	}

	return Parse(data)
}

// Parse decodes YAML (or JSON) configuration data and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cueToJSON evaluates a CUE config against the embedded schema and exports
// it as JSON, which the YAML decoder reads as-is.
func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("building config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	value = schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	out, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting config: %w", err)
	}
	return out, nil
}

// init parses rules, the prefix table and the policy once.
func (c *Config) init() error {
	policy, err := engine.ParsePolicy(c.Policy)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.policy = policy

	reg := query.NewRegistry()
	prefixes := make([]string, 0, len(c.Prefixes))
	for p := range c.Prefixes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		if err := reg.RegisterNamed(p, c.Prefixes[p]); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	c.registry = reg

	c.rules = make([]*rule.Rule, 0, len(c.Rules))
	for i, spec := range c.Rules {
		r, err := spec.Parse()
		if err != nil {
			return fmt.Errorf("invalid config: rules[%d]: %w", i, err)
		}
		c.rules = append(c.rules, r)
	}
	return nil
}

// ParsedRules returns the parsed rules in configuration order. The same
// *rule.Rule values are returned on every call, so compiled queries are
// shared across runs.
func (c *Config) ParsedRules() []*rule.Rule {
	return c.rules
}

// Registry returns the query prefix registry: the built-in prefixes plus
// the configured ones.
func (c *Config) Registry() *query.Registry {
	return c.registry
}

// Compiler returns a query compiler over Registry.
func (c *Config) Compiler() *query.Compiler {
	return query.NewCompiler(c.registry)
}

// FailurePolicy returns the parsed policy.
func (c *Config) FailurePolicy() engine.Policy {
	return c.policy
}
