package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/query"
)

func seedItems(t *testing.T, l *Library) []*Model {
	t.Helper()
	album := addModel(t, l, ir.Album, map[string]string{"album": "Abbey Road", "albumartist": "The Beatles"})
	albumID := ir.Format(ir.IRInt(album.ID()))

	return []*Model{
		addModel(t, l, ir.Item, map[string]string{
			"album_id": albumID, "path": "/music/Beatles/Abbey Road/01.mp3",
			"title": "Come Together", "artist": "The Beatles", "genre": "Rock", "year": "1969", "bitrate": "320",
		}),
		addModel(t, l, ir.Item, map[string]string{
			"album_id": albumID, "path": "/music/Beatles/Abbey Road/02.mp3",
			"title": "Something", "artist": "The Beatles", "year": "1969", "mood": "tender",
		}),
		addModel(t, l, ir.Item, map[string]string{
			"path":  "/music/Beatles Tribute/01.mp3",
			"title": "Come Together", "artist": "Tribute Band", "genre": "Pop", "year": "2004", "bitrate": "128",
		}),
		addModel(t, l, ir.Item, map[string]string{
			"path":  "/music/Miles Davis/So What.mp3",
			"title": "So What", "artist": "Miles Davis", "genre": "Jazz", "year": "1959",
		}),
	}
}

// TestFetch_AgreesWithMatch checks that a fetch returns exactly the records
// a direct match accepts, whatever part of the predicate runs in SQL.
func TestFetch_AgreesWithMatch(t *testing.T) {
	l := createTestLibrary(t)
	ctx := context.Background()
	seeded := seedItems(t, l)
	compiler := query.NewCompiler(nil)

	queries := [][]string{
		nil,
		{"genre:rock"},
		{"genre:=Rock"},
		{"^genre:=Rock"},
		{"^genre:rock"},
		{"year:1960..1970"},
		{"^year:1960..1970"},
		{"bitrate:200.."},
		{"^bitrate:200.."},
		{"title:=Come Together", "year:..2000"},
		{"together"},
		{"mood:tend"},
		{"^mood:tend"},
		{"artist::^The"},
		{"/music/Beatles"},
		{"/music/Beatles/"},
		{"/music"},
		{"/music/Beatles/Abbey Road/01.mp3"},
		{"^path:=/music/Miles Davis/So What.mp3"},
	}

	for _, frags := range queries {
		cq, err := compiler.Compile(frags, ir.Item)
		require.NoError(t, err, "%v", frags)

		var want []int64
		for _, m := range seeded {
			if cq.Match(m) {
				want = append(want, m.ID())
			}
		}

		var got []int64
		for m, err := range l.Fetch(ctx, ir.Item, cq.Predicate, Sort{}) {
			require.NoError(t, err)
			got = append(got, m.ID())
		}

		assert.Equal(t, want, got, "query %v", frags)
	}
}

func TestFetch_OpenRangeOnMissingValue(t *testing.T) {
	l := createTestLibrary(t)
	ctx := context.Background()
	dated := addModel(t, l, ir.Album, map[string]string{"album": "Abbey Road", "year": "1969"})
	undated := addModel(t, l, ir.Album, map[string]string{"album": "Bootleg"})
	compiler := query.NewCompiler(nil)

	tests := []struct {
		frag string
		want []int64
	}{
		{"year:..", []int64{dated.ID()}},
		{"^year:..", []int64{undated.ID()}},
	}

	for _, tt := range tests {
		t.Run(tt.frag, func(t *testing.T) {
			cq, err := compiler.Compile([]string{tt.frag}, ir.Album)
			require.NoError(t, err)

			var matched []int64
			for _, m := range []*Model{dated, undated} {
				if cq.Match(m) {
					matched = append(matched, m.ID())
				}
			}
			assert.Equal(t, tt.want, matched)

			var fetched []int64
			for m, err := range l.Fetch(ctx, ir.Album, cq.Predicate, Sort{}) {
				require.NoError(t, err)
				fetched = append(fetched, m.ID())
			}
			assert.Equal(t, tt.want, fetched)
		})
	}
}

func TestFetch_PathQueries(t *testing.T) {
	l := createTestLibrary(t)
	ctx := context.Background()
	seedItems(t, l)
	compiler := query.NewCompiler(nil)

	titles := func(frags ...string) []string {
		cq, err := compiler.Compile(frags, ir.Item)
		require.NoError(t, err)
		var out []string
		for m, err := range l.Fetch(ctx, ir.Item, cq.Predicate, Sort{}) {
			require.NoError(t, err)
			v, _ := m.Get("title")
			out = append(out, ir.Format(v))
		}
		return out
	}

	assert.Equal(t, []string{"Come Together", "Something"}, titles("/music/Beatles"),
		"a directory matches what lies below it, not siblings sharing a prefix")
	assert.Equal(t, []string{"Come Together"}, titles("/music/Beatles Tribute"))
	assert.Empty(t, titles("/music/beatles"), "paths are case-sensitive")
}

func TestFetch_AlbumPathAttribute(t *testing.T) {
	l := createTestLibrary(t)
	ctx := context.Background()
	addModel(t, l, ir.Album, map[string]string{"album": "Abbey Road", "path": "/music/Beatles/Abbey Road"})
	addModel(t, l, ir.Album, map[string]string{"album": "Kind of Blue"})

	cq, err := query.NewCompiler(nil).Compile([]string{"/music/Beatles"}, ir.Album)
	require.NoError(t, err)

	var albums []string
	for m, err := range l.Fetch(ctx, ir.Album, cq.Predicate, Sort{}) {
		require.NoError(t, err)
		v, _ := m.Get("album")
		albums = append(albums, ir.Format(v))
	}
	assert.Equal(t, []string{"Abbey Road"}, albums)
}
