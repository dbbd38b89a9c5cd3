package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "typetest.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sessionAt(id string, lang string, end time.Time, net int) model.SessionStats {
	return model.SessionStats{
		StartedAt:    end.Add(-30 * time.Second),
		EndedAt:      end,
		Lang:         lang,
		WordListPath: "builtin:" + lang,
		Results: model.Results{
			TestID:          id,
			Lang:            lang,
			DurationSeconds: 30,
			Finished:        true,
			GrossWPM:        net + 5,
			NetWPM:          net,
			Accuracy:        0.95,
			TotalChars:      200,
			CorrectChars:    190,
			Timeline:        []model.TimelinePoint{{T: 1, WPM: net}},
		},
	}
}

func TestInsertAndListSessions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var ids []int64
	for i, lang := range []string{"en", "de", "en"} {
		id, err := st.InsertSession(ctx, sessionAt(string(rune('a'+i)), lang, base.Add(time.Duration(i)*time.Hour), 40+i), []model.CharStats{
			{Char: "a", Correct: 5, Incorrect: 1, LatencySumMs: 500, LatencyCount: 5},
			{Char: "b", Correct: 2, Incorrect: 2},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := st.ListSessions(ctx, model.StatsConfig{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[0], all[0].SessionID)
	assert.Equal(t, "a", all[0].TestID)
	assert.Equal(t, 40, all[0].NetWPM)
	assert.True(t, all[0].EndedAt.Equal(base))

	en, err := st.ListSessions(ctx, model.StatsConfig{Lang: "en"})
	require.NoError(t, err)
	assert.Len(t, en, 2)

	since := base.Add(90 * time.Minute)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, ids[2], recent[0].SessionID)

	res, err := st.SessionResults(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "de", res.Lang)
	assert.Equal(t, []model.TimelinePoint{{T: 1, WPM: 41}}, res.Timeline)
}

func TestInsertDuplicateTestIDFails(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_, err := st.InsertSession(ctx, sessionAt("same", "en", now, 40), nil)
	require.NoError(t, err)
	_, err = st.InsertSession(ctx, sessionAt("same", "en", now, 40), []model.CharStats{{Char: "a", Correct: 1}})
	require.Error(t, err)

	aggs, err := st.GetWeakChars(ctx, 10, "")
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func TestCharAggregates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := st.InsertSession(ctx, sessionAt(string(rune('a'+i)), "en", base.Add(time.Duration(i)*time.Minute), 40), []model.CharStats{
			{Char: "a", Correct: i + 1, Incorrect: 1, LatencySumMs: 100, LatencyCount: 1},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	weak, err := st.GetWeakChars(ctx, 2, "en")
	require.NoError(t, err)
	require.Len(t, weak, 1)
	assert.Equal(t, model.CharAggregate{Char: "a", Correct: 5, Incorrect: 2, LatencySumMs: 200, LatencyCount: 2}, weak[0])

	none, err := st.GetWeakChars(ctx, 0, "en")
	require.NoError(t, err)
	assert.Nil(t, none)

	aggs, err := st.ListCharAggregatesForSessions(ctx, ids[:1])
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 1, aggs[0].Correct)

	per, err := st.ListCharStatsForSessions(ctx, ids, []string{"a", "z"})
	require.NoError(t, err)
	assert.Len(t, per, 3)
	assert.Equal(t, 3, per[ids[2]]["a"].Correct)
}

func TestLastResults(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, ok, err := st.LastResults(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	first := model.Results{TestID: "one", NetWPM: 10}
	second := model.Results{TestID: "two", NetWPM: 20, Finished: true}
	require.NoError(t, st.SaveLastResults(ctx, first))
	require.NoError(t, st.SaveLastResults(ctx, second))

	got, ok, err := st.LastResults(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)
}
