package rule

import (
	"fmt"
	"strings"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/query"
)

// Rule combines a query with a change-set and a target entity type.
// It is immutable once parsed, apart from its compiled-query cache.
// A Rule is not safe for concurrent use.
type Rule struct {
	ChangeSet

	Query  []string      // query fragments in token order
	Entity ir.EntityType // target of Run; default ir.Album
	Source string        // original text when parsed with ParseText

	compiled map[ir.EntityType]*query.Compiled
}

// Compile returns the compiled query for entity, compiling it on first use.
// Later calls for the same entity return the identical *query.Compiled,
// whichever compiler is passed. Failed compilations are not cached.
func (r *Rule) Compile(c *query.Compiler, entity ir.EntityType) (*query.Compiled, error) {
	if cq, ok := r.compiled[entity]; ok {
		return cq, nil
	}

	cq, err := c.Compile(r.Query, entity)
	if err != nil {
		return nil, err
	}

	if r.compiled == nil {
		r.compiled = make(map[ir.EntityType]*query.Compiled)
	}
	r.compiled[entity] = cq
	return cq, nil
}

// Match compiles the query for the record's own entity type and tests the
// record against it. No storage is involved.
func (r *Rule) Match(c *query.Compiler, rec ir.Record) (bool, error) {
	cq, err := r.Compile(c, rec.Entity())
	if err != nil {
		return false, err
	}
	return cq.Match(rec), nil
}

// Tokens renders the rule back to a canonical token list: entity tag,
// query fragments, mutations by field name, deletions by field name.
func (r *Rule) Tokens() []string {
	tokens := make([]string, 0, 1+len(r.Query)+len(r.Mutations)+len(r.Deletions))
	tokens = append(tokens, "?"+r.Entity.String())
	tokens = append(tokens, r.Query...)
	for _, field := range sortedKeys(r.Mutations) {
		tokens = append(tokens, field+"="+r.Mutations[field])
	}
	for _, field := range r.Deletions {
		tokens = append(tokens, field+"!")
	}
	return tokens
}

func (r *Rule) String() string {
	return fmt.Sprintf("Rule(%s)", strings.Join(r.Tokens(), " "))
}
