package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityTypeString(t *testing.T) {
	assert.Equal(t, "album", Album.String())
	assert.Equal(t, "item", Item.String())
	assert.Equal(t, "EntityType(9)", EntityType(9).String())
}

func TestParseEntityType(t *testing.T) {
	e, err := ParseEntityType("item")
	require.NoError(t, err)
	assert.Equal(t, Item, e)

	_, err = ParseEntityType("track")
	require.Error(t, err)
}

func TestEntityTypeTextRoundTrip(t *testing.T) {
	text, err := Item.MarshalText()
	require.NoError(t, err)

	var e EntityType
	require.NoError(t, e.UnmarshalText(text))
	assert.Equal(t, Item, e)

	_, err = EntityType(5).MarshalText()
	require.Error(t, err)
}

func TestSchema(t *testing.T) {
	assert.True(t, HasFastPath(Item))
	assert.False(t, HasFastPath(Album))

	f, ok := LookupField(Item, "bitrate")
	require.True(t, ok)
	assert.Equal(t, KindInt, f.Kind)

	assert.True(t, IsFixed(Album, "genre"))
	assert.False(t, IsFixed(Album, "mood"))
	assert.Equal(t, "id", Fields(Album)[0].Name)
	assert.Contains(t, SearchFields(Item), "title")
}
