package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagrules/internal/engine"
	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/rule"
	"github.com/roach88/tagrules/internal/session"
)

func TestEngine_RunAndStore(t *testing.T) {
	l := createTestLibrary(t)
	ctx := context.Background()
	addModel(t, l, ir.Album, map[string]string{"album": "Old", "year": "1995", "mood": "grim"})
	addModel(t, l, ir.Album, map[string]string{"album": "Mid", "year": "2003", "mood": "calm"})
	addModel(t, l, ir.Album, map[string]string{"album": "New", "year": "2010"})

	rules := []*rule.Rule{
		rule.MustParseText("genre=Pop year:2000..2010"),
		rule.MustParseText("?album mood!"),
	}

	sess := session.New[Model](l)
	res, err := engine.New[Model]().Run(ctx, rules, sess)
	require.NoError(t, err)

	modified := res.Modified.Records()
	require.Len(t, modified, 3)
	require.NoError(t, l.Store(ctx, modified...))

	for m, err := range l.Fetch(ctx, ir.Album, nil, Sort{}) {
		require.NoError(t, err)
		assert.False(t, m.Has("mood"), "%s", m)

		year, _ := m.Get("year")
		if int64(year.(ir.IRInt)) >= 2000 {
			assert.Equal(t, ir.IRString("Pop"), m.values["genre"], "%s", m)
		} else {
			assert.False(t, m.Has("genre"), "%s", m)
		}
	}
}

func TestEngine_TypeMismatchFromLibrary(t *testing.T) {
	l := createTestLibrary(t)
	ctx := context.Background()
	addModel(t, l, ir.Album, map[string]string{"album": "Mid", "year": "2003"})

	rules := []*rule.Rule{rule.MustParseText("year=someday")}

	_, err := engine.New[Model]().Run(ctx, rules, session.New[Model](l))
	require.Error(t, err)
	assert.True(t, IsFieldError(err))
	assert.True(t, engine.IsRecordError(err))
}

func TestEngine_ImportNewItem(t *testing.T) {
	l := createTestLibrary(t)
	ctx := context.Background()
	rules := []*rule.Rule{
		rule.MustParseText("?item /incoming genre=Unsorted"),
		rule.MustParseText("?item artist:beatles genre=Rock"),
	}

	item := NewModel(ir.Item)
	require.NoError(t, item.Set("path", "/incoming/track.mp3"))
	require.NoError(t, item.Set("artist", "The Beatles"))

	applied, err := engine.New[Model]().Import(rules, item)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	require.NoError(t, l.Add(ctx, item))
	got, err := l.Get(ctx, ir.Item, item.ID())
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Rock"), got.values["genre"])
}
