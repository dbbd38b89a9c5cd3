package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

type fakeSource struct {
	sessions []model.SessionAggregate
	aggs     []model.CharAggregate
	err      error
	lastCfg  model.StatsConfig
}

func (f *fakeSource) ListSessions(_ context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	f.lastCfg = cfg
	return f.sessions, f.err
}

func (f *fakeSource) ListCharAggregatesForSessions(context.Context, []int64) ([]model.CharAggregate, error) {
	return f.aggs, nil
}

func (f *fakeSource) ListCharStatsForSessions(_ context.Context, ids []int64, chars []string) (map[int64]map[string]model.CharAggregate, error) {
	out := map[int64]map[string]model.CharAggregate{}
	for _, id := range ids {
		out[id] = map[string]model.CharAggregate{}
		for _, agg := range f.aggs {
			out[id][agg.Char] = agg
		}
	}
	return out, nil
}

func newSource() *fakeSource {
	now := time.Now()
	return &fakeSource{
		sessions: []model.SessionAggregate{
			{SessionID: 1, NetWPM: 40, Accuracy: 0.9, EndedAt: now.Add(-time.Hour)},
			{SessionID: 2, NetWPM: 60, Accuracy: 0.95, EndedAt: now},
		},
		aggs: []model.CharAggregate{
			{Char: "a", Correct: 10, Incorrect: 1, LatencySumMs: 1000, LatencyCount: 10},
			{Char: " ", Correct: 20},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOverviewShowsCards(t *testing.T) {
	m := NewModel(newSource(), model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	assert.Contains(t, view, "Overview")
	assert.Contains(t, view, "Best WPM")
	assert.Contains(t, view, "60")
}

func TestCharTableOrdersByTotal(t *testing.T) {
	rows := charRows(newSource().aggs)
	require.Len(t, rows, 2)
	assert.Equal(t, "<space>", rows[0][0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "90.91%", rows[1][1])
	assert.Equal(t, "10.0", rows[1][2])
}

func TestTabNavigationWraps(t *testing.T) {
	m := NewModel(newSource(), model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(key("right"))
	assert.Equal(t, tabCharTable, m.activeTab)
	m.Update(key("right"))
	m.Update(key("right"))
	assert.Equal(t, tabOverview, m.activeTab)
}

func TestCurveWindowKeys(t *testing.T) {
	src := newSource()
	m := NewModel(src, model.StatsConfig{CurveWindow: 5})
	m.Update(key("="))
	assert.Equal(t, 10, m.cfg.CurveWindow)
	assert.Equal(t, 10, src.lastCfg.CurveWindow)
	m.Update(key("-"))
	m.Update(key("-"))
	assert.Equal(t, 1, m.cfg.CurveWindow)
}

func TestFilterAppliesSettings(t *testing.T) {
	src := newSource()
	m := NewModel(src, model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(key("/"))
	require.True(t, m.filterMode)

	m.filterInputs[0].SetValue("de")
	m.filterInputs[2].SetValue("3")
	m.Update(key("enter"))

	assert.False(t, m.filterMode)
	assert.Equal(t, "de", src.lastCfg.Lang)
	assert.Equal(t, 3, src.lastCfg.Last)
}

func TestFilterRejectsBadDate(t *testing.T) {
	m := NewModel(newSource(), model.StatsConfig{CurveWindow: 5})
	m.Update(key("/"))
	m.filterInputs[1].SetValue("yesterday")
	m.Update(key("enter"))

	assert.True(t, m.filterMode)
	assert.Contains(t, m.filterError, "YYYY-MM-DD")
	m.Update(key("esc"))
	assert.False(t, m.filterMode)
}

func TestLoadErrorShownInFooter(t *testing.T) {
	src := newSource()
	src.err = errors.New("db locked")
	m := NewModel(src, model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	assert.True(t, strings.Contains(m.View(), "db locked"))
}

func TestCurveWindowSteps(t *testing.T) {
	assert.Equal(t, 5, nextCurveWindow(1))
	assert.Equal(t, 10, nextCurveWindow(7))
	assert.Equal(t, 5, prevCurveWindow(7))
	assert.Equal(t, 1, prevCurveWindow(5))
}
