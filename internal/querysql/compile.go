package querysql

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/queryir"
)

// SQLCompiler compiles QueryIR predicates to parameterized SQL for SQLite.
//
// Only predicates on fixed columns whose SQL meaning is identical to
// queryir.Match are pushed down. Everything else compiles to "1 = 1", so
// the WHERE clause always selects a superset of the matching rows and the
// caller must re-check every row with queryir.Match.
//
// CRITICAL: ALL queries include ORDER BY with an id tiebreaker for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	entity ir.EntityType
}

// NewSQLCompiler creates a compiler for the table of one entity type.
func NewSQLCompiler(entity ir.EntityType) *SQLCompiler {
	return &SQLCompiler{entity: entity}
}

// TableName returns the table that stores an entity type.
func TableName(entity ir.EntityType) string {
	switch entity {
	case ir.Item:
		return "items"
	default:
		return "albums"
	}
}

// Columns returns the fixed column list of an entity type in schema order.
func Columns(entity ir.EntityType) []string {
	fields := ir.Fields(entity)
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

// CompileSelect builds the full SELECT for a fetch.
// Returns (sql, params, error).
//
// MANDATORY: Every query includes ORDER BY with an id tiebreaker.
func (c *SQLCompiler) CompileSelect(p queryir.Predicate, sort queryir.Sort) (string, []any, error) {
	where, params, _, err := c.CompileFilter(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}

	orderBy, err := c.orderBy(sort)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		strings.Join(Columns(c.entity), ", "),
		TableName(c.entity),
		where,
		orderBy)

	return sql, params, nil
}

// CompileFilter compiles a predicate to a WHERE fragment.
// exact reports whether the fragment selects exactly the matching rows
// rather than a superset.
func (c *SQLCompiler) CompileFilter(p queryir.Predicate) (sql string, params []any, exact bool, err error) {
	if p == nil {
		return "1 = 1", nil, true, nil
	}

	switch pred := p.(type) {
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	case queryir.Not:
		return c.compileNot(pred)
	case queryir.Equals:
		return c.compileEquals(pred)
	case queryir.NumericRange:
		return c.compileRange(pred)
	case queryir.Path:
		return c.compilePath(pred)
	case queryir.Substring, queryir.AnyField, queryir.Regexp:
		// SQLite LIKE folds ASCII only and has no REGEXP by default.
		return "1 = 1", nil, false, nil
	default:
		return "", nil, false, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileAnd keeps every pushable conjunct. Dropping a conjunct only widens
// the result, which is safe.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, bool, error) {
	var parts []string
	var allParams []any
	exact := true

	for _, pred := range and.Predicates {
		sql, params, predExact, err := c.CompileFilter(pred)
		if err != nil {
			return "", nil, false, err
		}
		exact = exact && predExact
		if sql == "1 = 1" {
			continue
		}
		parts = append(parts, sql)
		allParams = append(allParams, params...)
	}

	if len(parts) == 0 {
		return "1 = 1", nil, exact, nil
	}
	if len(parts) == 1 {
		return parts[0], allParams, exact, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", allParams, exact, nil
}

// compileNot pushes a negation down only when the inner fragment is exact;
// negating a superset would lose rows. A NULL column makes the inner
// fragment NULL, which must count as a non-match before negation.
func (c *SQLCompiler) compileNot(not queryir.Not) (string, []any, bool, error) {
	sql, params, exact, err := c.CompileFilter(not.Predicate)
	if err != nil {
		return "", nil, false, err
	}
	if !exact {
		return "1 = 1", nil, false, nil
	}
	if sql == "1 = 1" {
		return "1 = 0", nil, true, nil
	}
	return "NOT COALESCE(" + sql + ", 0)", params, true, nil
}

// compileEquals compiles an Equals predicate to "field = ?" for text columns.
// CRITICAL: Value is NEVER interpolated - always parameterized.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, bool, error) {
	f, ok := ir.LookupField(c.entity, eq.Field)
	if !ok || f.Kind == ir.KindInt {
		return "1 = 1", nil, false, nil
	}
	return fmt.Sprintf("%s = ?", f.Name), []any{eq.Value}, true, nil
}

func (c *SQLCompiler) compileRange(r queryir.NumericRange) (string, []any, bool, error) {
	f, ok := ir.LookupField(c.entity, r.Field)
	if !ok || f.Kind != ir.KindInt {
		return "1 = 1", nil, false, nil
	}

	var parts []string
	var params []any
	if r.Min != nil {
		parts = append(parts, fmt.Sprintf("%s >= ?", f.Name))
		params = append(params, *r.Min)
	}
	if r.Max != nil {
		parts = append(parts, fmt.Sprintf("%s <= ?", f.Name))
		params = append(params, *r.Max)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s IS NOT NULL", f.Name), nil, true, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, true, nil
}

// compilePath compiles a fast path predicate. substr() counts characters,
// so the prefix length is a rune count. Stored paths are NFC normalized by
// the library, which makes the comparison identical to queryir.MatchPath.
func (c *SQLCompiler) compilePath(p queryir.Path) (string, []any, bool, error) {
	f, ok := ir.LookupField(c.entity, p.Field)
	if !p.Fast || !ok || f.Kind != ir.KindPath {
		return "1 = 1", nil, false, nil
	}

	prefix := queryir.DirPrefix(p.Path)
	sql := fmt.Sprintf("(%s = ? OR substr(%s, 1, ?) = ?)", f.Name, f.Name)
	return sql, []any{p.Path, utf8.RuneCountInString(prefix), prefix}, true, nil
}

// orderBy returns the ORDER BY clause for a fetch.
// MANDATORY: always ends with the id tiebreaker.
func (c *SQLCompiler) orderBy(sort queryir.Sort) (string, error) {
	if sort.Field == "" || sort.Field == "id" {
		if sort.Desc {
			return "id DESC", nil
		}
		return "id ASC", nil
	}

	f, ok := ir.LookupField(c.entity, sort.Field)
	if !ok {
		return "", fmt.Errorf("cannot sort %s by non-fixed field %q", c.entity, sort.Field)
	}

	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s COLLATE BINARY, id ASC", f.Name, dir), nil
}
