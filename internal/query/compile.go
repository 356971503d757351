package query

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/queryir"
)

// CompileError reports a query fragment the builder rejected.
type CompileError struct {
	Fragment string
	Reason   string
	Err      error
}

func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %q: %s: %v", e.Fragment, e.Reason, e.Err)
	}
	return fmt.Sprintf("query %q: %s", e.Fragment, e.Reason)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsCompileError returns true if err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// Compiled is a predicate bound to one entity type. The same value serves
// library fetches and direct record matching.
type Compiled struct {
	Entity    ir.EntityType
	Predicate queryir.Predicate
}

// Match tests one record against the compiled predicate.
// Records of another entity type never match.
func (c *Compiled) Match(r ir.Record) bool {
	if r.Entity() != c.Entity {
		return false
	}
	return queryir.Match(c.Predicate, r)
}

// Compiler turns fragment lists into Compiled queries.
type Compiler struct {
	registry *Registry
}

// NewCompiler creates a compiler that resolves value prefixes through reg.
// A nil reg means NewRegistry().
func NewCompiler(reg *Registry) *Compiler {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Compiler{registry: reg}
}

// Compile builds the conjunction of every fragment for entity.
// Path predicates follow field predicates.
func (c *Compiler) Compile(fragments []string, entity ir.EntityType) (*Compiled, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("compile query: invalid entity type %d", int(entity))
	}

	var fieldPreds, pathPreds []queryir.Predicate
	for _, frag := range fragments {
		if IsPathFragment(frag) {
			pathPreds = append(pathPreds, pathPredicate(frag, entity))
			continue
		}
		pred, err := c.compileField(frag, entity)
		if err != nil {
			return nil, err
		}
		fieldPreds = append(fieldPreds, pred)
	}

	return &Compiled{
		Entity:    entity,
		Predicate: queryir.And{Predicates: append(fieldPreds, pathPreds...)},
	}, nil
}

// IsPathFragment reports whether a path separator occurs before the first
// colon of frag. Without a colon, a separator in the last position does not
// count, so "rock/" is a plain value.
func IsPathFragment(frag string) bool {
	var lhs string
	if i := strings.IndexByte(frag, ':'); i >= 0 {
		lhs = frag[:i]
	} else if frag != "" {
		lhs = frag[:len(frag)-1]
	}
	return strings.ContainsRune(lhs, os.PathSeparator)
}

func pathPredicate(frag string, entity ir.EntityType) queryir.Predicate {
	return queryir.Path{
		Field: ir.PathField,
		Path:  queryir.NormalizePath(frag),
		Fast:  ir.HasFastPath(entity),
	}
}

// compileField parses "[^][field:][prefix]value".
func (c *Compiler) compileField(frag string, entity ir.EntityType) (queryir.Predicate, error) {
	body := frag
	negate := false
	if strings.HasPrefix(body, "^") {
		negate = true
		body = body[1:]
	}

	field, value, hasField := splitField(body)
	if hasField && field == "" {
		return nil, &CompileError{Fragment: frag, Reason: "empty field name"}
	}

	var pred queryir.Predicate
	if hasField {
		m, rest, ok := c.registry.Lookup(value)
		if !ok {
			m = defaultMatcher(entity, field, value)
		}
		p, err := m(field, unescape(rest))
		if err != nil {
			return nil, &CompileError{Fragment: frag, Reason: "invalid value", Err: err}
		}
		pred = p
	} else {
		if _, _, ok := c.registry.Lookup(value); ok {
			return nil, &CompileError{Fragment: frag, Reason: "value prefix requires a field name"}
		}
		pred = queryir.AnyField{Fields: ir.SearchFields(entity), Pattern: unescape(value)}
	}

	if negate {
		return queryir.Not{Predicate: pred}, nil
	}
	return pred, nil
}

// splitField splits at the first colon not escaped by a backslash. A field
// name containing whitespace means the fragment is a bare term. The field is
// unescaped; the value is returned raw so prefix lookup sees the escapes.
func splitField(s string) (field, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] != ':' {
			continue
		}
		field = s[:i]
		if strings.ContainsAny(field, " \t") {
			return "", s, false
		}
		return unescape(field), s[i+1:], true
	}
	return "", s, false
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\:`, ":")
}
