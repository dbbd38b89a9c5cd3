package stats

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

type fakeSource struct {
	sessions  []model.SessionAggregate
	chars     map[int64][]model.CharAggregate
	requested []string
}

func (f *fakeSource) ListSessions(_ context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	var out []model.SessionAggregate
	for _, s := range f.sessions {
		if cfg.Since != nil && s.EndedAt.Before(*cfg.Since) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSource) ListCharAggregatesForSessions(_ context.Context, ids []int64) ([]model.CharAggregate, error) {
	merged := map[string]model.CharAggregate{}
	var order []string
	for _, id := range ids {
		for _, agg := range f.chars[id] {
			cur, ok := merged[agg.Char]
			if !ok {
				order = append(order, agg.Char)
			}
			cur.Char = agg.Char
			cur.Correct += agg.Correct
			cur.Incorrect += agg.Incorrect
			merged[agg.Char] = cur
		}
	}
	out := make([]model.CharAggregate, 0, len(order))
	for _, ch := range order {
		out = append(out, merged[ch])
	}
	return out, nil
}

func (f *fakeSource) ListCharStatsForSessions(_ context.Context, ids []int64, chars []string) (map[int64]map[string]model.CharAggregate, error) {
	f.requested = chars
	out := map[int64]map[string]model.CharAggregate{}
	for _, id := range ids {
		out[id] = map[string]model.CharAggregate{}
		for _, agg := range f.chars[id] {
			out[id][agg.Char] = agg
		}
	}
	return out, nil
}

func newFakeSource() *fakeSource {
	src := &fakeSource{chars: map[int64][]model.CharAggregate{}}
	for i := 0; i < 3; i++ {
		id := int64(i + 1)
		src.sessions = append(src.sessions, model.SessionAggregate{
			SessionID:       id,
			TestID:          "test",
			EndedAt:         time.Unix(0, 0).Add(time.Duration(i) * time.Minute),
			DurationSeconds: 30,
			NetWPM:          40 + i*5,
			GrossWPM:        45 + i*5,
			Accuracy:        0.9,
		})
		src.chars[id] = []model.CharAggregate{
			{Char: "a", Correct: 5, Incorrect: 0},
			{Char: "b", Correct: 4, Incorrect: 1},
		}
	}
	return src
}

func TestBuildReport(t *testing.T) {
	src := newFakeSource()
	report, err := BuildReport(context.Background(), src, model.StatsConfig{
		Lang:        "en",
		Last:        2,
		CurveWindow: 1,
		Chars:       " B, a,b",
	})
	require.NoError(t, err)

	require.Len(t, report.Sessions, 2)
	assert.Equal(t, int64(2), report.Sessions[0].SessionID)
	assert.Equal(t, int64(3), report.Sessions[1].SessionID)
	assert.Equal(t, []int64{3}, report.WindowSessionIDs)
	assert.Equal(t, []string{"b", "a"}, report.Chars)
	assert.Equal(t, model.CharAggregate{Char: "a", Correct: 10}, report.CharAggsAll[0])
	assert.Equal(t, model.CharAggregate{Char: "b", Correct: 4, Incorrect: 1}, report.CharAggsWindow[1])
}

func TestBuildReportDefaultsToFrequentChars(t *testing.T) {
	src := newFakeSource()
	report, err := BuildReport(context.Background(), src, model.StatsConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, src.requested)
	assert.Len(t, report.Sessions, 3)
}

func TestReportRender(t *testing.T) {
	report, err := BuildReport(context.Background(), newFakeSource(), model.StatsConfig{CurveWindow: 2})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf))
	out := buf.String()
	for _, want := range []string{"Summary", "Sessions: 3", "Best WPM: 50", "Learning Curves", "Per-Character (Windowed)", "Char a"} {
		assert.True(t, strings.Contains(out, want), "missing %q in output:\n%s", want, out)
	}
}

func TestReportRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report{}.Render(&buf))
	assert.Equal(t, "No sessions found.\n", buf.String())
}
