package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagrules/internal/engine"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
config:
  policy: besteffort
  rules:
    - "genre:rock genre=Rock"
    - ["?item", "title:x", "mood!"]
albums:
  - { album: "Abbey Road", year: 1969 }
items:
  - { title: x, album_id: 1 }
assertions:
  - type: modified_count
    count: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Len(t, scenario.Albums, 1)
	assert.Len(t, scenario.Items, 1)
	assert.Len(t, scenario.Assertions, 1)
	assert.Equal(t, 1969, scenario.Albums[0]["year"])

	cfg := scenario.RuleConfig()
	require.NotNil(t, cfg)
	assert.Len(t, cfg.ParsedRules(), 2)
	assert.Equal(t, engine.BestEffort, cfg.FailurePolicy())
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "x"
assertions: [{type: modified_count}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
assertions: [{type: modified_count}]
`,
			wantErr: "description is required",
		},
		{
			name: "no assertions",
			content: `
name: x
description: "x"
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown field",
			content: `
name: x
description: "x"
assertion: []
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "bad rule",
			content: `
name: x
description: "x"
config:
  rules: ["?track genre=Rock"]
assertions: [{type: modified_count}]
`,
			wantErr: "config: invalid config: rules[0]",
		},
		{
			name: "unknown config key",
			content: `
name: x
description: "x"
config:
  rulez: []
assertions: [{type: modified_count}]
`,
			wantErr: "config:",
		},
		{
			name: "seeded id",
			content: `
name: x
description: "x"
albums:
  - { id: 4, album: x }
assertions: [{type: modified_count}]
`,
			wantErr: "albums[0]: id is assigned by the library",
		},
		{
			name: "float seed",
			content: `
name: x
description: "x"
items:
  - { length: 3.5 }
assertions: [{type: modified_count}]
`,
			wantErr: "items[0]: field \"length\"",
		},
		{
			name: "unknown assertion",
			content: `
name: x
description: "x"
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "missing type",
			content: `
name: x
description: "x"
assertions: [{count: 1}]
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "negative count",
			content: `
name: x
description: "x"
assertions: [{type: error_count, count: -1}]
`,
			wantErr: "count must be non-negative",
		},
		{
			name: "order without records",
			content: `
name: x
description: "x"
assertions: [{type: modified_order}]
`,
			wantErr: "records list is required",
		},
		{
			name: "run_error without text",
			content: `
name: x
description: "x"
assertions: [{type: run_error}]
`,
			wantErr: "contains is required",
		},
		{
			name: "final_state bad entity",
			content: `
name: x
description: "x"
assertions: [{type: final_state, entity: track, expect: {a: b}}]
`,
			wantErr: `unknown entity type "track"`,
		},
		{
			name: "final_state without checks",
			content: `
name: x
description: "x"
assertions: [{type: final_state, entity: album}]
`,
			wantErr: "expect or absent is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_EmptyOrderAllowed(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: x
description: "x"
assertions: [{type: modified_order, records: []}]
`))
	require.NoError(t, err)
	assert.NotNil(t, scenario.Assertions[0].Records)
}
