package rule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/roach88/tagrules/internal/ir"
)

// ParseError reports a malformed rule token. No partial Rule is returned
// alongside it.
type ParseError struct {
	Token  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Token == "" && e.Err != nil {
		return fmt.Sprintf("parse rule: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse rule: token %q: %s", e.Token, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// shellOperators stop or redirect go-shellwords splitting. In rule text they
// are ordinary characters, so "genre=R&B" is one mutation.
const shellOperators = ";&|<>()`"

// escapeOperators backslash-escapes every unquoted shell operator in text.
func escapeOperators(text string) string {
	var b strings.Builder
	var single, double, escaped bool
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && !single:
			escaped = true
		case r == '\'' && !double:
			single = !single
		case r == '"' && !single:
			double = !double
		case !single && !double && strings.ContainsRune(shellOperators, r):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseText splits text with shell quoting rules and parses the tokens.
// Shell operators are kept as literal characters.
//
//	ParseText(`?item "album:Abbey Road" comment="remaster 2019"`)
func ParseText(text string) (*Rule, error) {
	parser := shellwords.NewParser()
	tokens, err := parser.Parse(escapeOperators(text))
	if err != nil {
		return nil, &ParseError{Reason: "split rule text", Err: err}
	}
	if parser.Position != -1 {
		return nil, &ParseError{Token: text, Reason: "rule text stops at a shell operator"}
	}
	r, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	r.Source = text
	return r, nil
}

// Parse classifies each token in order and builds a Rule.
//
// Classification, per token:
//   - "?album" / "?item" set the entity type; any other "?" token is an error
//   - no '=' and no ':' and a trailing '!' marks a deletion
//   - a '=' with no ':' before it is a mutation split at the first '='
//     (later mutations of the same field win)
//   - everything else is a query fragment, kept verbatim and in order
func Parse(tokens []string) (*Rule, error) {
	r := &Rule{
		Entity: ir.Album,
		ChangeSet: ChangeSet{
			Mutations: make(map[string]string),
		},
	}
	deletions := make(map[string]struct{})

	for _, tok := range tokens {
		if tok == "" {
			return nil, &ParseError{Token: tok, Reason: "empty token"}
		}

		if tok[0] == '?' {
			switch tok {
			case "?album":
				r.Entity = ir.Album
			case "?item":
				r.Entity = ir.Item
			default:
				return nil, &ParseError{Token: tok, Reason: "unknown special tag (known: ?album, ?item)"}
			}
			continue
		}

		eq := strings.IndexByte(tok, '=')
		colon := strings.IndexByte(tok, ':')

		switch {
		case eq == -1 && colon == -1 && strings.HasSuffix(tok, "!"):
			field := strings.TrimSuffix(tok, "!")
			if field == "" {
				return nil, &ParseError{Token: tok, Reason: "deletion without a field name"}
			}
			deletions[field] = struct{}{}

		case eq != -1 && (colon == -1 || colon > eq):
			field, value := tok[:eq], tok[eq+1:]
			if field == "" {
				return nil, &ParseError{Token: tok, Reason: "mutation without a field name"}
			}
			r.Mutations[field] = value

		default:
			r.Query = append(r.Query, tok)
		}
	}

	r.Deletions = sortedKeys(deletions)
	return r, nil
}

// MustParseText is like ParseText but panics on error. For tests and
// static rule tables.
func MustParseText(text string) *Rule {
	r, err := ParseText(text)
	if err != nil {
		panic(err)
	}
	return r
}
