package queryir

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tagrules/internal/ir"
)

// Match evaluates a predicate against one record.
// A nil predicate matches everything.
func Match(p Predicate, r ir.Record) bool {
	if p == nil {
		return true
	}

	switch pred := p.(type) {
	case And:
		for _, sub := range pred.Predicates {
			if !Match(sub, r) {
				return false
			}
		}
		return true
	case *And:
		return Match(*pred, r)
	case Not:
		return !Match(pred.Predicate, r)
	case Equals:
		v, ok := fieldString(r, pred.Field)
		return ok && v == pred.Value
	case Substring:
		v, ok := fieldString(r, pred.Field)
		return ok && containsFold(v, pred.Pattern)
	case AnyField:
		for _, f := range pred.Fields {
			if v, ok := fieldString(r, f); ok && containsFold(v, pred.Pattern) {
				return true
			}
		}
		return false
	case Regexp:
		v, ok := fieldString(r, pred.Field)
		return ok && pred.Pattern.MatchString(v)
	case NumericRange:
		return matchRange(pred, r)
	case Path:
		v, ok := fieldString(r, pred.Field)
		return ok && MatchPath(pred.Path, v)
	default:
		panic(fmt.Sprintf("queryir: unsupported predicate type %T", p))
	}
}

// MatchPath reports whether candidate is pattern itself or lies below it.
func MatchPath(pattern, candidate string) bool {
	candidate = norm.NFC.String(candidate)
	if candidate == pattern {
		return true
	}
	return strings.HasPrefix(candidate, DirPrefix(pattern))
}

// DirPrefix returns pattern with exactly one trailing separator.
func DirPrefix(pattern string) string {
	if strings.HasSuffix(pattern, string(os.PathSeparator)) {
		return pattern
	}
	return pattern + string(os.PathSeparator)
}

// NormalizePath prepares a path for a Path predicate: NFC normalized and
// without trailing separators (the root stays as is).
func NormalizePath(p string) string {
	p = norm.NFC.String(p)
	for len(p) > 1 && strings.HasSuffix(p, string(os.PathSeparator)) {
		p = strings.TrimSuffix(p, string(os.PathSeparator))
	}
	return p
}

func fieldString(r ir.Record, field string) (string, bool) {
	v, ok := r.Get(field)
	if !ok {
		return "", false
	}
	if _, null := v.(ir.IRNull); null {
		return "", false
	}
	return ir.Format(v), true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchRange(pred NumericRange, r ir.Record) bool {
	v, ok := r.Get(pred.Field)
	if !ok {
		return false
	}

	var n int64
	switch val := v.(type) {
	case ir.IRInt:
		n = int64(val)
	case ir.IRString:
		parsed, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
		if err != nil {
			return false
		}
		n = parsed
	default:
		return false
	}

	if pred.Min != nil && n < *pred.Min {
		return false
	}
	if pred.Max != nil && n > *pred.Max {
		return false
	}
	return true
}
