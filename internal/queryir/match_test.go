package queryir

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tagrules/internal/ir"
)

// mapRecord is a minimal ir.Record over a field map.
type mapRecord struct {
	fields ir.IRObject
}

func (r mapRecord) ID() int64                { return 1 }
func (r mapRecord) Entity() ir.EntityType    { return ir.Item }
func (r mapRecord) Has(name string) bool     { _, ok := r.fields[name]; return ok }
func (r mapRecord) Set(name, v string) error { r.fields[name] = ir.IRString(v); return nil }
func (r mapRecord) Remove(name string)       { delete(r.fields, name) }
func (r mapRecord) Fields() ir.IRObject      { return r.fields.Clone() }
func (r mapRecord) Get(name string) (ir.IRValue, bool) {
	v, ok := r.fields[name]
	return v, ok
}

func track() mapRecord {
	return mapRecord{fields: ir.IRObject{
		"artist":  ir.IRString("The Beatles"),
		"title":   ir.IRString("Come Together"),
		"genre":   ir.IRString("Rock"),
		"year":    ir.IRInt(1969),
		"path":    ir.IRString("/music/Beatles/Abbey Road/01.flac"),
		"mood":    ir.IRString("42"),
		"comment": ir.IRNull{},
	}}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"nil matches", nil, true},
		{"empty and", And{}, true},
		{"equals", Equals{Field: "genre", Value: "Rock"}, true},
		{"equals is case sensitive", Equals{Field: "genre", Value: "rock"}, false},
		{"equals int", Equals{Field: "year", Value: "1969"}, true},
		{"substring folds case", Substring{Field: "artist", Pattern: "beatles"}, true},
		{"substring missing field", Substring{Field: "label", Pattern: ""}, false},
		{"null field never matches", Substring{Field: "comment", Pattern: ""}, false},
		{"any field", AnyField{Fields: []string{"artist", "title"}, Pattern: "together"}, true},
		{"any field miss", AnyField{Fields: []string{"artist"}, Pattern: "together"}, false},
		{"regexp", Regexp{Field: "title", Pattern: regexp.MustCompile(`^Come`)}, true},
		{"regexp miss", Regexp{Field: "title", Pattern: regexp.MustCompile(`^come`)}, false},
		{"range inside", NumericRange{Field: "year", Min: Int64(1960), Max: Int64(1970)}, true},
		{"range outside", NumericRange{Field: "year", Min: Int64(2000), Max: Int64(2010)}, false},
		{"range open max", NumericRange{Field: "year", Min: Int64(1969)}, true},
		{"range open min", NumericRange{Field: "year", Max: Int64(1968)}, false},
		{"range over flex string", NumericRange{Field: "mood", Min: Int64(40), Max: Int64(50)}, true},
		{"range non numeric", NumericRange{Field: "genre", Min: Int64(0)}, false},
		{"path directory", Path{Field: "path", Path: "/music/Beatles"}, true},
		{"path exact", Path{Field: "path", Path: "/music/Beatles/Abbey Road/01.flac"}, true},
		{"path sibling prefix", Path{Field: "path", Path: "/music/Beat"}, false},
		{"not", Not{Predicate: Equals{Field: "genre", Value: "Pop"}}, true},
		{"and short circuits", And{Predicates: []Predicate{
			Equals{Field: "genre", Value: "Rock"},
			Equals{Field: "year", Value: "1970"},
		}}, false},
		{"and pointer", &And{Predicates: []Predicate{Equals{Field: "genre", Value: "Rock"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pred, track()))
		})
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/music/Beatles", NormalizePath("/music/Beatles/"))
	assert.Equal(t, "/", NormalizePath("/"))
	assert.Equal(t, "/music/Beyonc\u00e9", NormalizePath("/music/Beyonce\u0301"))
}

func TestMatchPathNormalizesCandidate(t *testing.T) {
	assert.True(t, MatchPath("/music/Beyonc\u00e9", "/music/Beyonce\u0301/song.mp3"))
}

func TestMatchPathRoot(t *testing.T) {
	assert.True(t, MatchPath("/", "/music/a.mp3"))
	assert.Equal(t, "/", DirPrefix("/"))
	assert.Equal(t, "/music/", DirPrefix("/music"))
}
