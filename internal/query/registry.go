package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/queryir"
)

// Matcher builds the predicate for one field from the value that follows a
// registered prefix.
type Matcher func(field, pattern string) (queryir.Predicate, error)

// Registry maps value prefixes to matchers. It is built once and passed to
// NewCompiler; lookups pick the longest registered prefix.
type Registry struct {
	prefixes map[string]Matcher
}

// NewRegistry returns a registry with the built-in prefixes:
//
//	:  regular expression
//	=  exact equality
func NewRegistry() *Registry {
	r := &Registry{prefixes: make(map[string]Matcher)}
	r.prefixes[":"] = RegexpMatcher
	r.prefixes["="] = ExactMatcher
	return r
}

// Register adds or replaces a prefix.
func (r *Registry) Register(prefix string, m Matcher) error {
	if prefix == "" {
		return fmt.Errorf("query prefix must not be empty")
	}
	if prefix == "^" || strings.ContainsAny(prefix, " \t") {
		return fmt.Errorf("query prefix %q is reserved", prefix)
	}
	if m == nil {
		return fmt.Errorf("query prefix %q: nil matcher", prefix)
	}
	r.prefixes[prefix] = m
	return nil
}

// RegisterNamed registers prefix with one of the named matchers.
func (r *Registry) RegisterNamed(prefix, name string) error {
	m, err := MatcherByName(name)
	if err != nil {
		return fmt.Errorf("query prefix %q: %w", prefix, err)
	}
	return r.Register(prefix, m)
}

// Lookup finds the longest registered prefix of value.
// Returns the matcher, the value with the prefix stripped, and whether a
// prefix matched.
func (r *Registry) Lookup(value string) (Matcher, string, bool) {
	best := ""
	for p := range r.prefixes {
		if len(p) > len(best) && strings.HasPrefix(value, p) {
			best = p
		}
	}
	if best == "" {
		return nil, value, false
	}
	return r.prefixes[best], value[len(best):], true
}

// Prefixes returns the registered prefixes in sorted order.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.prefixes))
	for p := range r.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MatcherByName resolves the matcher names accepted in configuration.
func MatcherByName(name string) (Matcher, error) {
	switch name {
	case "regexp":
		return RegexpMatcher, nil
	case "exact":
		return ExactMatcher, nil
	case "substring":
		return SubstringMatcher, nil
	case "numeric":
		return NumericMatcher, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q (known: exact, numeric, regexp, substring)", name)
	}
}

// RegexpMatcher compiles pattern as an RE2 regular expression.
func RegexpMatcher(field, pattern string) (queryir.Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}
	return queryir.Regexp{Field: field, Pattern: re}, nil
}

// ExactMatcher matches the formatted value exactly.
func ExactMatcher(field, pattern string) (queryir.Predicate, error) {
	return queryir.Equals{Field: field, Value: pattern}, nil
}

// SubstringMatcher matches a case-insensitive substring.
func SubstringMatcher(field, pattern string) (queryir.Predicate, error) {
	return queryir.Substring{Field: field, Pattern: pattern}, nil
}

// NumericMatcher parses "n", "a..b", "a.." or "..b" into an inclusive range.
func NumericMatcher(field, pattern string) (queryir.Predicate, error) {
	lo, hi, isRange := strings.Cut(pattern, "..")
	if !isRange {
		n, err := parseBound(pattern)
		if err != nil || n == nil {
			return nil, fmt.Errorf("invalid number %q", pattern)
		}
		return queryir.NumericRange{Field: field, Min: n, Max: n}, nil
	}

	minV, err := parseBound(lo)
	if err != nil {
		return nil, fmt.Errorf("invalid range start %q", lo)
	}
	maxV, err := parseBound(hi)
	if err != nil {
		return nil, fmt.Errorf("invalid range end %q", hi)
	}
	return queryir.NumericRange{Field: field, Min: minV, Max: maxV}, nil
}

func parseBound(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

var numericRange = regexp.MustCompile(`^-?\d*\.\.-?\d*$`)

// defaultMatcher picks the matcher for an unprefixed value: numeric for int
// fields and for values shaped like a range, substring otherwise.
func defaultMatcher(entity ir.EntityType, field, value string) Matcher {
	if f, ok := ir.LookupField(entity, field); ok && f.Kind == ir.KindInt {
		return NumericMatcher
	}
	if value != ".." && numericRange.MatchString(value) {
		return NumericMatcher
	}
	return SubstringMatcher
}
