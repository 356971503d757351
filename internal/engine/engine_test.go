package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagrules/internal/ir"
	"github.com/roach88/tagrules/internal/query"
	"github.com/roach88/tagrules/internal/rule"
	"github.com/roach88/tagrules/internal/session"
	"github.com/roach88/tagrules/internal/testutil"
)

type (
	testEngine  = Engine[testutil.Record, *testutil.Record]
	testSession = session.Session[testutil.Record, *testutil.Record]
)

func newEngine(opts ...Option) *testEngine {
	return New[testutil.Record](opts...)
}

func newSession(s *testutil.MemStore) *testSession {
	return session.New[testutil.Record](s, session.WithIDGenerator(session.NewFixedGenerator("test-session")))
}

func parseRules(t *testing.T, texts ...string) []*rule.Rule {
	t.Helper()
	rules := make([]*rule.Rule, 0, len(texts))
	for _, text := range texts {
		r, err := rule.ParseText(text)
		require.NoError(t, err)
		rules = append(rules, r)
	}
	return rules
}

func ids(recs []*testutil.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID())
	}
	return out
}

func albumStore() *testutil.MemStore {
	s := testutil.NewMemStore()
	s.Put(ir.Album, 1, ir.IRObject{"album": ir.IRString("Early"), "year": ir.IRInt(1995), "genre": ir.IRString("Rock"), "bitrate": ir.IRInt(128)})
	s.Put(ir.Album, 2, ir.IRObject{"album": ir.IRString("Middle"), "year": ir.IRInt(2003), "genre": ir.IRString("Rock"), "bitrate": ir.IRInt(192)})
	s.Put(ir.Album, 3, ir.IRObject{"album": ir.IRString("Late"), "year": ir.IRInt(2010), "genre": ir.IRString("Jazz")})
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	rules := []*rule.Rule{
		mustParse(t, "genre=Pop", "year:2000..2010"),
		mustParse(t, "?album", "bitrate!"),
	}

	res, err := newEngine().Run(context.Background(), rules, newSession(albumStore()))
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	recs := res.Modified.Records()
	assert.Equal(t, []int64{2, 3, 1}, ids(recs), "each album appears once, in first-touched order")

	for _, rec := range recs {
		assert.False(t, rec.Has("bitrate"), "album %d", rec.ID())
	}
	assert.Equal(t, ir.IRString("Pop"), recs[0].Values["genre"])
	assert.Equal(t, ir.IRString("Pop"), recs[1].Values["genre"])
	assert.Equal(t, ir.IRString("Rock"), recs[2].Values["genre"])
}

func mustParse(t *testing.T, tokens ...string) *rule.Rule {
	t.Helper()
	r, err := rule.Parse(tokens)
	require.NoError(t, err)
	return r
}

func TestRun_SameRecordAcrossRules(t *testing.T) {
	s := testutil.NewMemStore()
	s.Put(ir.Item, 41, ir.IRObject{"artist": ir.IRString("Miles Davis"), "genre": ir.IRString("Jazz")})
	s.Put(ir.Item, 42, ir.IRObject{"artist": ir.IRString("The Beatles"), "genre": ir.IRString("Rock"), "year": ir.IRInt(1969)})

	rules := parseRules(t,
		"?item artist:Beatles mood=happy",
		"?item year:1960..1970 era=sixties",
		"?item genre:rock genre=Classic",
	)

	res, err := newEngine().Run(context.Background(), rules, newSession(s))
	require.NoError(t, err)

	require.Equal(t, 1, res.Modified.Len())
	rec := res.Modified.Records()[0]
	assert.Equal(t, int64(42), rec.ID())
	assert.Equal(t, ir.IRObject{
		"artist": ir.IRString("The Beatles"),
		"genre":  ir.IRString("Classic"),
		"year":   ir.IRInt(1969),
		"mood":   ir.IRString("happy"),
		"era":    ir.IRString("sixties"),
	}, rec.Fields())
	assert.Equal(t, 3, s.Fetches)
}

func TestRun_LaterRuleOverrides(t *testing.T) {
	rules := parseRules(t, "genre=First", "genre=Second")

	res, err := newEngine().Run(context.Background(), rules, newSession(albumStore()))
	require.NoError(t, err)

	require.Equal(t, 3, res.Modified.Len())
	for _, rec := range res.Modified.Records() {
		assert.Equal(t, ir.IRString("Second"), rec.Values["genre"])
	}
}

func TestRun_NoMatches(t *testing.T) {
	res, err := newEngine().Run(context.Background(), parseRules(t, "year:1900..1901 genre=Old"), newSession(albumStore()))
	require.NoError(t, err)
	assert.Zero(t, res.Modified.Len())
	assert.Empty(t, res.Modified.Records())
}

func TestRun_CompileErrorAborts(t *testing.T) {
	rules := parseRules(t, "genre=Pop", "title::(broken genre=X")

	res, err := newEngine(WithPolicy(BestEffort)).Run(context.Background(), rules, newSession(albumStore()))
	require.Error(t, err)
	assert.Nil(t, res)

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Rule)
	assert.Nil(t, re.Record)
	assert.True(t, query.IsCompileError(err))
	assert.False(t, IsRecordError(err))
}

func TestRun_FetchErrorAborts(t *testing.T) {
	s := albumStore()
	boom := errors.New("database is locked")
	s.Err = boom

	_, err := newEngine(WithPolicy(BestEffort)).Run(context.Background(), parseRules(t, "genre=Pop"), newSession(s))
	assert.ErrorIs(t, err, boom)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine().Run(ctx, parseRules(t, "genre=Pop"), newSession(albumStore()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_FailFast(t *testing.T) {
	s := albumStore()
	s.RejectField("year")
	rules := parseRules(t, "genre=Pop", "album:Middle year=soon", "label=Blue")

	res, err := newEngine().Run(context.Background(), rules, newSession(s))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsRecordError(err))

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Rule)
	assert.Equal(t, &ir.Key{Entity: ir.Album, ID: 2}, re.Record)
	assert.Contains(t, err.Error(), "set year on album 2")
}

func TestRun_BestEffort(t *testing.T) {
	s := albumStore()
	s.RejectField("year")
	rules := parseRules(t, "genre=Pop", "album:Middle year=soon", "label=Blue")

	eng := newEngine(WithPolicy(BestEffort))
	require.Equal(t, BestEffort, eng.Policy())

	res, err := eng.Run(context.Background(), rules, newSession(s))
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.True(t, IsRecordError(res.Errors[0]))

	recs := res.Modified.Records()
	assert.Equal(t, []int64{1, 3}, ids(recs), "the failing album is left out")
	for _, rec := range recs {
		assert.Equal(t, ir.IRString("Pop"), rec.Values["genre"])
		assert.Equal(t, ir.IRString("Blue"), rec.Values["label"], "later rules still ran")
	}
}

func TestMatchAndApply(t *testing.T) {
	eng := newEngine()
	r := mustParse(t, "?album", "genre:rock", "genre=Classic", "bitrate!")

	rock := testutil.NewRecord(ir.Item, 1, ir.IRObject{"genre": ir.IRString("Rock"), "bitrate": ir.IRInt(320)})
	ok, err := eng.MatchAndApply(r, rock)
	require.NoError(t, err)
	assert.True(t, ok, "matches by the record's own entity type")
	assert.Equal(t, ir.IRObject{"genre": ir.IRString("Classic")}, rock.Fields())

	jazz := testutil.NewRecord(ir.Item, 2, ir.IRObject{"genre": ir.IRString("Jazz"), "bitrate": ir.IRInt(320)})
	ok, err = eng.MatchAndApply(r, jazz)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, jazz.Sets)
	assert.True(t, jazz.Has("bitrate"))
}

func TestMatchAndApply_Errors(t *testing.T) {
	eng := newEngine()

	_, err := eng.MatchAndApply(mustParse(t, "title::(bad"), testutil.NewRecord(ir.Item, 1, nil))
	assert.True(t, query.IsCompileError(err))

	rec := testutil.NewRecord(ir.Item, 1, nil)
	rec.Reject = map[string]bool{"year": true}
	ok, err := eng.MatchAndApply(mustParse(t, "year=never"), rec)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestImport(t *testing.T) {
	eng := newEngine()
	rules := parseRules(t,
		"?item artist:beatles genre=Rock",
		"?item genre:rock mood=loud",
		"?item artist:davis genre=Jazz",
	)

	rec := testutil.NewRecord(ir.Item, 9, ir.IRObject{"artist": ir.IRString("The Beatles")})
	applied, err := eng.Import(rules, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, applied)
	assert.Equal(t, ir.IRObject{
		"artist": ir.IRString("The Beatles"),
		"genre":  ir.IRString("Rock"),
		"mood":   ir.IRString("loud"),
	}, rec.Fields(), "rules see the changes of earlier rules")
}

func TestImport_StopsOnError(t *testing.T) {
	rec := testutil.NewRecord(ir.Item, 9, nil)
	rec.Reject = map[string]bool{"year": true}

	applied, err := newEngine().Import(parseRules(t, "genre=Rock", "year=later", "mood=calm"), rec)
	require.Error(t, err)
	assert.Equal(t, 1, applied)
	assert.True(t, IsRecordError(err))
	assert.False(t, rec.Has("mood"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	p, err = ParsePolicy("besteffort")
	require.NoError(t, err)
	assert.Equal(t, BestEffort, p)
	assert.Equal(t, "besteffort", p.String())

	_, err = ParsePolicy("yolo")
	assert.Error(t, err)
}
