// Package engine implements the typing test state machine.
//
// An Engine owns every piece of mutable test state: the materialized word
// window, the current word and partial input, committed attempts and the
// keystroke log. Hosts feed it key identifiers and clock ticks and read
// back copies through Snapshot and Results. All methods must be called
// from a single goroutine.
package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typetest/internal/keys"
	"github.com/verte-zerg/typetest/internal/logging"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/stats"
	"github.com/verte-zerg/typetest/internal/timer"
)

// DefaultMaxWrongPerWord is the number of wrong characters the current input
// may hold before further printable keys are rejected. Only characters
// currently held count, so backspacing frees the budget again. Zero disables
// the guard.
const DefaultMaxWrongPerWord = 10

// DefaultDurationSeconds is used when a config leaves the duration unset.
const DefaultDurationSeconds = 30

// Source supplies target words.
type Source interface {
	More(n int) []string
}

// WindowPolicy bounds the materialized word window. When the current word
// is within GrowWithin words of the end, more words are requested; when
// the window holds more than TrimAbove words, it is cut down to KeepLast.
type WindowPolicy struct {
	Initial    int
	GrowWithin int
	TrimAbove  int
	KeepLast   int
}

// DefaultWindowPolicy returns the standard buffer sizes.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{Initial: 150, GrowWithin: 100, TrimAbove: 700, KeepLast: 200}
}

// Config holds engine settings.
type Config struct {
	Lang            string
	DurationSeconds int
	MaxWrongPerWord int
	Window          WindowPolicy
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator replaces the test id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// Engine is the typing test state machine.
type Engine struct {
	cfg    Config
	src    Source
	now    func() time.Time
	logger *slog.Logger
	newID  func() string

	testID     string
	gen        uint64
	phase      model.Phase
	startedAt  time.Time
	endedAt    time.Time
	observedAt time.Time
	countdown  *timer.Countdown

	firstWindow []string
	words       []string
	windowStart int
	wordIndex   int
	input       []rune
	attempts    map[int]string
	targets     map[int]string
	boundary    int
	log         []model.Keystroke
}

// New returns an engine in the NotStarted phase with a fresh word window.
func New(cfg Config, src Source, opts ...Option) *Engine {
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = DefaultDurationSeconds
	}
	if cfg.MaxWrongPerWord < 0 {
		cfg.MaxWrongPerWord = 0
	}
	cfg.Window = normalizePolicy(cfg.Window)
	e := &Engine{
		cfg:    cfg,
		src:    src,
		now:    time.Now,
		logger: logging.Discard(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.NewTest()
	return e
}

func normalizePolicy(p WindowPolicy) WindowPolicy {
	def := DefaultWindowPolicy()
	if p.Initial <= 0 {
		p.Initial = def.Initial
	}
	if p.GrowWithin <= 0 {
		p.GrowWithin = def.GrowWithin
	}
	if p.KeepLast <= p.GrowWithin {
		p.KeepLast = p.GrowWithin + 1
	}
	if p.TrimAbove <= p.KeepLast {
		p.TrimAbove = p.KeepLast + p.GrowWithin
	}
	return p
}

// NewTest resets the engine and draws a new word window from the source.
func (e *Engine) NewTest() {
	e.firstWindow = e.src.More(e.cfg.Window.Initial)
	e.Reset()
}

// Reset restarts the test on the same opening words. Any tick scheduled
// for the previous run is fenced off by the new generation.
func (e *Engine) Reset() {
	e.gen++
	e.testID = e.newID()
	e.phase = model.PhaseNotStarted
	e.startedAt = time.Time{}
	e.endedAt = time.Time{}
	e.observedAt = time.Time{}
	e.countdown = timer.NewCountdown(time.Duration(e.cfg.DurationSeconds) * time.Second)
	e.words = append([]string(nil), e.firstWindow...)
	e.windowStart = 0
	e.wordIndex = 0
	e.input = nil
	e.attempts = map[int]string{}
	e.targets = map[int]string{}
	e.boundary = -1
	e.log = nil
}

// Generation identifies the current run. It changes on every Reset.
func (e *Engine) Generation() uint64 {
	return e.gen
}

// Phase returns the lifecycle phase.
func (e *Engine) Phase() model.Phase {
	return e.phase
}

// DurationSeconds returns the configured test length.
func (e *Engine) DurationSeconds() int {
	return e.cfg.DurationSeconds
}

// SetDuration changes the test length. It only applies before the first
// keystroke and reports whether the change was accepted.
func (e *Engine) SetDuration(seconds int) bool {
	if e.phase != model.PhaseNotStarted || seconds <= 0 {
		return false
	}
	e.cfg.DurationSeconds = seconds
	e.countdown = timer.NewCountdown(time.Duration(seconds) * time.Second)
	return true
}

// ProcessKey feeds one key identifier into the machine. It never fails:
// keys outside the known set are ignored.
func (e *Engine) ProcessKey(key string) {
	now := e.now()
	if e.phase == model.PhaseRunning && e.Tick(now) {
		return
	}
	act := keys.Classify(key, keys.State{Phase: e.phase, InputLen: len(e.input)})
	switch act.Kind {
	case keys.Ignore:
		return
	case keys.StartAndType:
		if e.phase != model.PhaseNotStarted {
			e.invalid(act)
			return
		}
		e.start(now)
		e.typeChar(act.Char, now)
	case keys.TypeChar:
		if e.phase != model.PhaseRunning {
			e.invalid(act)
			return
		}
		e.typeChar(act.Char, now)
	case keys.DeleteChar:
		if e.phase != model.PhaseRunning {
			e.invalid(act)
			return
		}
		e.backspace(now)
	case keys.CommitWord:
		if e.phase != model.PhaseRunning {
			e.invalid(act)
			return
		}
		e.commit(now)
	default:
		e.invalid(act)
		return
	}
	e.observedAt = now
}

// Tick polls the countdown at now and reports whether it finished the test.
func (e *Engine) Tick(now time.Time) bool {
	if e.phase != model.PhaseRunning {
		return false
	}
	e.observedAt = now
	if _, expired := e.countdown.Tick(now); !expired {
		return false
	}
	e.finish(now)
	return true
}

// Finish ends a running test early. The partial word counts as committed.
func (e *Engine) Finish() {
	if e.phase != model.PhaseRunning {
		return
	}
	now := e.now()
	e.observedAt = now
	e.countdown.Stop()
	e.finish(now)
}

func (e *Engine) invalid(act keys.Action) {
	e.logger.Debug("dropping action not valid in phase",
		"action", act.Kind.String(), "phase", e.phase.String())
}

func (e *Engine) start(now time.Time) {
	e.phase = model.PhaseRunning
	e.startedAt = now
	e.countdown.Start(now)
	e.logger.Debug("test started", "test_id", e.testID, "duration_s", e.cfg.DurationSeconds)
}

func (e *Engine) finish(now time.Time) {
	if len(e.input) > 0 {
		e.attempts[e.wordIndex] = string(e.input)
		e.targets[e.wordIndex] = e.currentWord()
		e.boundary = e.wordIndex
		e.wordIndex++
		e.input = nil
	}
	e.phase = model.PhaseFinished
	e.endedAt = now
	e.logger.Debug("test finished", "test_id", e.testID, "words", len(e.attempts))
}

func (e *Engine) elapsedMs(now time.Time) int64 {
	return now.Sub(e.startedAt).Milliseconds()
}

func (e *Engine) currentWord() string {
	i := e.wordIndex - e.windowStart
	if i < 0 || i >= len(e.words) {
		return ""
	}
	return e.words[i]
}

func (e *Engine) wrongInCurrent(target []rune) int {
	wrong := 0
	for i, r := range e.input {
		if i >= len(target) || !stats.EqualFoldRune(target[i], r) {
			wrong++
		}
	}
	return wrong
}

func (e *Engine) typeChar(r rune, now time.Time) {
	target := []rune(e.currentWord())
	if e.cfg.MaxWrongPerWord > 0 && e.wrongInCurrent(target) >= e.cfg.MaxWrongPerWord {
		e.logger.Debug("rejecting key past wrong-character cap", "word_index", e.wordIndex)
		return
	}
	pos := len(e.input)
	rec := model.Keystroke{Char: string(r), AtMs: e.elapsedMs(now)}
	if pos < len(target) {
		rec.Expected = string(target[pos])
		rec.Correct = stats.EqualFoldRune(target[pos], r)
	}
	e.input = append(e.input, r)
	e.log = append(e.log, rec)
}

func (e *Engine) backspace(now time.Time) {
	if len(e.input) == 0 {
		return
	}
	e.input = e.input[:len(e.input)-1]
	for i := len(e.log) - 1; i >= 0; i-- {
		rec := &e.log[i]
		if rec.Separator {
			break
		}
		if rec.Backspace || rec.Undone {
			continue
		}
		rec.Undone = true
		break
	}
	e.log = append(e.log, model.Keystroke{
		Char:      model.BackspaceKey,
		AtMs:      e.elapsedMs(now),
		Backspace: true,
	})
}

func (e *Engine) commit(now time.Time) {
	e.attempts[e.wordIndex] = string(e.input)
	e.targets[e.wordIndex] = e.currentWord()
	e.log = append(e.log, model.Keystroke{
		Char:      " ",
		Correct:   true,
		AtMs:      e.elapsedMs(now),
		Separator: true,
	})
	e.wordIndex++
	e.input = nil
	e.maintainWindow()
}

// maintainWindow grows the window ahead of the cursor and trims resolved
// words behind it. Indices stay absolute: trimming only moves windowStart.
func (e *Engine) maintainWindow() {
	p := e.cfg.Window
	rel := e.wordIndex - e.windowStart
	if len(e.words)-rel <= p.GrowWithin {
		e.words = append(e.words, e.src.More(p.Initial)...)
	}
	if len(e.words) <= p.TrimAbove {
		return
	}
	drop := len(e.words) - p.KeepLast
	if drop > rel {
		drop = rel
	}
	if drop <= 0 {
		return
	}
	e.words = append([]string(nil), e.words[drop:]...)
	e.windowStart += drop
	e.logger.Debug("trimmed word window", "dropped", drop, "window_start", e.windowStart)
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() model.Snapshot {
	attempts := make(map[int]string, len(e.attempts))
	for k, v := range e.attempts {
		attempts[k] = v
	}
	return model.Snapshot{
		Phase:           e.phase,
		StartedAt:       e.startedAt,
		Remaining:       e.remaining(),
		DurationSeconds: e.cfg.DurationSeconds,
		WordIndex:       e.wordIndex,
		WindowStart:     e.windowStart,
		Words:           append([]string(nil), e.words...),
		Input:           string(e.input),
		Attempts:        attempts,
		Keystrokes:      append([]model.Keystroke(nil), e.log...),
	}
}

func (e *Engine) remaining() time.Duration {
	switch e.phase {
	case model.PhaseFinished:
		return 0
	case model.PhaseRunning:
		return e.countdown.Remaining(e.observedAt)
	default:
		return e.countdown.Duration()
	}
}

// Results derives metrics as of the last processed key or tick.
func (e *Engine) Results() model.Results {
	return stats.Compute(e.metricsInput())
}

// CharStats returns per-character stats of the current log.
func (e *Engine) CharStats() []model.CharStats {
	return stats.CharStatsFromLog(e.log)
}

// Timing returns when the test started and ended. Zero values mean the
// phase has not been reached.
func (e *Engine) Timing() (startedAt, endedAt time.Time) {
	return e.startedAt, e.endedAt
}

func (e *Engine) metricsInput() stats.Input {
	indices := make([]int, 0, len(e.attempts))
	for idx := range e.attempts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	attempts := make([]stats.Attempt, 0, len(indices))
	for _, idx := range indices {
		attempts = append(attempts, stats.Attempt{
			Index:    idx,
			Target:   e.targets[idx],
			Typed:    e.attempts[idx],
			Boundary: idx == e.boundary,
		})
	}
	now := e.observedAt
	if e.phase == model.PhaseFinished {
		now = e.endedAt
	}
	return stats.Input{
		TestID:          e.testID,
		Lang:            e.cfg.Lang,
		Attempts:        attempts,
		CurrentTarget:   e.currentWord(),
		CurrentInput:    string(e.input),
		Keystrokes:      e.log,
		DurationSeconds: e.cfg.DurationSeconds,
		StartedAt:       e.startedAt,
		Now:             now,
		Phase:           e.phase,
	}
}
