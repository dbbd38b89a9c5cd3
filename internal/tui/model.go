// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typetest/internal/config"
	"github.com/verte-zerg/typetest/internal/engine"
	"github.com/verte-zerg/typetest/internal/keys"
	"github.com/verte-zerg/typetest/internal/logging"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/share"
	"github.com/verte-zerg/typetest/internal/stats"
	"github.com/verte-zerg/typetest/internal/timer"
)

const (
	textRows      = 3
	wordsBehind   = 30
	wordsAhead    = 90
	contentFactor = 0.70
)

// SessionStore persists finished tests.
type SessionStore interface {
	InsertSession(ctx context.Context, stats model.SessionStats, chars []model.CharStats) (int64, error)
	SaveLastResults(ctx context.Context, res model.Results) error
	GetWeakChars(ctx context.Context, window int, lang string) ([]model.CharAggregate, error)
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
}

// WeakBiaser is a word source whose selection can favour weak characters.
type WeakBiaser interface {
	SetWeakChars(weakSet map[rune]struct{}, factor float64)
}

// Options configures the typing UI.
type Options struct {
	Lang         string
	WordListPath string
	ShareBaseURL string
	FocusWeak    bool
	WeakTop      int
	WeakFactor   float64
	WeakWindow   int
	Store        SessionStore
	Biaser       WeakBiaser
	Logger       *slog.Logger
}

// ConfigMsg delivers a reloaded config file to a running program.
type ConfigMsg struct {
	Config config.FileConfig
	Err    error
}

type keyMap struct {
	NewTest key.Binding
	Confirm key.Binding
	Restart key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewTest, k.Restart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() keyMap {
	return keyMap{
		NewTest: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab+enter", "new test")),
		Confirm: key.NewBinding(key.WithKeys("enter")),
		Restart: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "restart")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	eng    *engine.Engine
	opts   Options
	logger *slog.Logger
	keys   keyMap
	help   help.Model

	width  int
	height int

	tabArmed        bool
	pendingDuration int

	result    *model.Results
	shareLink string

	hasLast       bool
	lastWPM       int
	lastAcc       float64
	allWPMSum     float64
	allAccSum     float64
	allCount      int
	weakNoticeLog bool
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	extraStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#9E3A3B"))
	missedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A85A5A")).Underline(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	resultsStyle     = lipgloss.NewStyle().
				Padding(1, 2).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A"))
)

// NewModel constructs a typing TUI model around eng.
func NewModel(eng *engine.Engine, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.ShareBaseURL == "" {
		opts.ShareBaseURL = config.DefaultShareBaseURL
	}
	m := &Model{
		eng:    eng,
		opts:   opts,
		logger: opts.Logger,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
	m.loadFooterStats()
	if opts.FocusWeak {
		m.refreshWeakSet()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.SetWindowTitle("typetest")
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case timer.TickMsg:
		return m, m.handleTick(msg)
	case ConfigMsg:
		m.applyConfig(msg)
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.NewTest):
		m.tabArmed = true
		return nil
	case key.Matches(msg, m.keys.Confirm) && m.tabArmed:
		m.tabArmed = false
		m.restart(true)
		return nil
	case key.Matches(msg, m.keys.Restart):
		m.tabArmed = false
		m.restart(false)
		return nil
	}
	m.tabArmed = false

	before := m.eng.Phase()
	for _, id := range keyIdentifiers(msg) {
		m.eng.ProcessKey(id)
	}
	after := m.eng.Phase()
	switch {
	case after == model.PhaseFinished && before != model.PhaseFinished:
		m.onFinish()
	case before == model.PhaseNotStarted && after == model.PhaseRunning:
		return timer.Schedule(m.eng.Generation())
	}
	return nil
}

// keyIdentifiers maps a terminal key event to engine key identifiers.
// Pasted text arrives as one event with several runes.
func keyIdentifiers(msg tea.KeyMsg) []string {
	if msg.Alt {
		return nil
	}
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyCtrlH:
		return []string{keys.Backspace}
	case tea.KeySpace:
		return []string{keys.Space}
	case tea.KeyEnter:
		return []string{keys.Enter}
	case tea.KeyRunes:
		ids := make([]string, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			if r == ' ' {
				ids = append(ids, keys.Space)
				continue
			}
			ids = append(ids, string(r))
		}
		return ids
	default:
		return nil
	}
}

func (m *Model) handleTick(msg timer.TickMsg) tea.Cmd {
	if msg.Gen != m.eng.Generation() {
		m.logger.Debug("dropping stale tick", "gen", msg.Gen, "current", m.eng.Generation())
		return nil
	}
	if m.eng.Tick(msg.At) {
		m.onFinish()
		return nil
	}
	if m.eng.Phase() == model.PhaseRunning {
		return timer.Schedule(msg.Gen)
	}
	return nil
}

func (m *Model) restart(newWords bool) {
	if newWords {
		m.eng.NewTest()
	} else {
		m.eng.Reset()
	}
	if m.pendingDuration > 0 && m.eng.SetDuration(m.pendingDuration) {
		m.logger.Info("applied duration change", "duration_s", m.pendingDuration)
		m.pendingDuration = 0
	}
	m.result = nil
	m.shareLink = ""
}

func (m *Model) applyConfig(msg ConfigMsg) {
	if msg.Err != nil {
		m.logger.Warn("config reload failed", "err", msg.Err)
		return
	}
	m.opts.ShareBaseURL = msg.Config.ShareBaseURL()
	d := msg.Config.Test.Duration
	if d == nil || *d == m.eng.DurationSeconds() {
		return
	}
	if m.eng.SetDuration(*d) {
		m.logger.Info("applied duration change", "duration_s", *d)
		m.pendingDuration = 0
		return
	}
	m.logger.Info("duration change deferred until the next test", "duration_s", *d)
	m.pendingDuration = *d
}

func (m *Model) onFinish() {
	res := m.eng.Results()
	m.result = &res

	link, err := share.Link(m.opts.ShareBaseURL, res)
	if err != nil {
		m.logger.Warn("failed to build share link", "err", err)
	}
	m.shareLink = link

	m.recordFooter(res)
	m.persist(res)
	if m.opts.FocusWeak {
		m.refreshWeakSet()
	}
}

func (m *Model) persist(res model.Results) {
	if m.opts.Store == nil {
		return
	}
	ctx := context.Background()
	startedAt, endedAt := m.eng.Timing()
	session := model.SessionStats{
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		Lang:         m.opts.Lang,
		WordListPath: m.opts.WordListPath,
		Results:      res,
	}
	if _, err := m.opts.Store.InsertSession(ctx, session, m.eng.CharStats()); err != nil {
		m.logger.Error("failed to save session", "test_id", res.TestID, "err", err)
	}
	if err := m.opts.Store.SaveLastResults(ctx, res); err != nil {
		m.logger.Error("failed to save last result", "test_id", res.TestID, "err", err)
	}
}

func (m *Model) loadFooterStats() {
	if m.opts.Store == nil {
		return
	}
	sessions, err := m.opts.Store.ListSessions(context.Background(), model.StatsConfig{Lang: m.opts.Lang})
	if err != nil {
		m.logger.Error("failed to load session stats", "err", err)
		return
	}
	for _, s := range sessions {
		m.allWPMSum += float64(s.NetWPM)
		m.allAccSum += s.Accuracy
		m.allCount++
	}
	if len(sessions) > 0 {
		last := sessions[len(sessions)-1]
		m.hasLast = true
		m.lastWPM = last.NetWPM
		m.lastAcc = last.Accuracy
	}
}

func (m *Model) recordFooter(res model.Results) {
	m.hasLast = true
	m.lastWPM = res.NetWPM
	m.lastAcc = res.Accuracy
	m.allWPMSum += float64(res.NetWPM)
	m.allAccSum += res.Accuracy
	m.allCount++
}

func (m *Model) refreshWeakSet() {
	if m.opts.Store == nil || m.opts.Biaser == nil {
		return
	}
	aggs, err := m.opts.Store.GetWeakChars(context.Background(), m.opts.WeakWindow, m.opts.Lang)
	if err != nil {
		m.logger.Error("failed to load weak chars", "err", err)
		return
	}
	weak := stats.SelectWeakChars(aggs, m.opts.WeakTop)
	if len(weak) == 0 && !m.weakNoticeLog {
		m.logger.Info("no stats available for weak-char focus yet; using uniform words")
		m.weakNoticeLog = true
	}
	m.opts.Biaser.SetWeakChars(weak, m.opts.WeakFactor)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.result != nil {
		return m.place(m.renderResults(), m.help.View(m.keys))
	}
	snap := m.eng.Snapshot()
	runes := buildStyledRunes(snap, snap.WordIndex-wordsBehind, snap.WordIndex+wordsAhead)
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(runes)
	}
	contentWidth := max(int(float64(m.width)*contentFactor), 1)
	lines := visibleLines(wrapLines(runes, contentWidth), textRows)
	content := lipgloss.NewStyle().Width(contentWidth).Render(renderLines(lines))
	return m.place(content, m.renderFooter(snap))
}

func (m *Model) place(content, footer string) string {
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderResults() string {
	var buf bytes.Buffer
	if err := stats.RenderResults(&buf, *m.result); err != nil {
		m.logger.Error("failed to render results", "err", err)
	}
	text := strings.TrimRight(buf.String(), "\n")
	if m.shareLink != "" {
		text += "\n\nShare: " + m.shareLink
	}
	return resultsStyle.Render(text)
}

func (m *Model) renderFooter(snap model.Snapshot) string {
	segments := []string{fmt.Sprintf("%ds", int(snap.Remaining/time.Second))}
	if snap.Phase == model.PhaseRunning {
		live := m.eng.Results()
		segments = append(segments, fmt.Sprintf("%d WPM · %.1f%%", live.NetWPM, live.Accuracy*100))
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %d WPM · %.1f%%", m.lastWPM, m.lastAcc*100))
	}
	if m.allCount > 0 {
		n := float64(m.allCount)
		segments = append(segments, fmt.Sprintf("All-time %.1f WPM · %.1f%%", m.allWPMSum/n, m.allAccSum/n*100))
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	return footer + "  " + m.help.View(m.keys)
}
