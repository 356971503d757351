package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/queryir"
)

func TestRegistry_Defaults(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{":", "="}, reg.Prefixes())

	_, rest, ok := reg.Lookup(":^a")
	assert.True(t, ok)
	assert.Equal(t, "^a", rest)

	_, rest, ok = reg.Lookup("plain")
	assert.False(t, ok)
	assert.Equal(t, "plain", rest)
}

func TestRegistry_LongestPrefixWins(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterNamed("==", "substring"))

	m, rest, ok := reg.Lookup("==Rock")
	require.True(t, ok)
	assert.Equal(t, "Rock", rest)

	pred, err := m("genre", rest)
	require.NoError(t, err)
	assert.Equal(t, queryir.Substring{Field: "genre", Pattern: "Rock"}, pred)
}

func TestRegistry_CustomPrefixInCompiler(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterNamed("#", "numeric"))

	compiled, err := NewCompiler(reg).Compile([]string{"disc:#2"}, ir.Item)
	require.NoError(t, err)
	assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{
		queryir.NumericRange{Field: "disc", Min: queryir.Int64(2), Max: queryir.Int64(2)},
	}}, compiled.Predicate)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := NewRegistry()

	assert.Error(t, reg.Register("", ExactMatcher))
	assert.Error(t, reg.Register("^", ExactMatcher))
	assert.Error(t, reg.Register("~", nil))
	assert.Error(t, reg.RegisterNamed("~", "fuzzy"))
}

func TestNumericMatcher(t *testing.T) {
	tests := []struct {
		in      string
		min     *int64
		max     *int64
		wantErr bool
	}{
		{"5", queryir.Int64(5), queryir.Int64(5), false},
		{"1..3", queryir.Int64(1), queryir.Int64(3), false},
		{"..3", nil, queryir.Int64(3), false},
		{"-3..", queryir.Int64(-3), nil, false},
		{"..", nil, nil, false},
		{"x", nil, nil, true},
		{"", nil, nil, true},
		{"1.5", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			pred, err := NumericMatcher("year", tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, queryir.NumericRange{Field: "year", Min: tt.min, Max: tt.max}, pred)
		})
	}
}
