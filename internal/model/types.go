// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Config defines typing test settings.
type Config struct {
	Lang            string
	DurationSeconds int
	WordListPath    string
	MaxWrongPerWord int
	Seed            int64
	FocusWeak       bool
	WeakTop         int
	WeakFactor      float64
	WeakWindow      int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Lang        string
	Since       *time.Time
	Last        int
	CurveWindow int
	Chars       string
}

// Phase is the lifecycle state of a typing test.
type Phase int

// Test phases.
const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhaseFinished
)

var phaseNames = map[Phase]string{
	PhaseNotStarted: "not_started",
	PhaseRunning:    "running",
	PhaseFinished:   "finished",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	name, ok := phaseNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// BackspaceKey is the Char value of backspace records in the keystroke log.
const BackspaceKey = "Backspace"

// Keystroke is one entry of the append-only keystroke log.
type Keystroke struct {
	Char      string `json:"char"`
	Expected  string `json:"expected,omitempty"`
	Correct   bool   `json:"correct"`
	AtMs      int64  `json:"at_ms"`
	Separator bool   `json:"separator,omitempty"`
	Backspace bool   `json:"backspace,omitempty"`
	Undone    bool   `json:"undone,omitempty"`
}

// Scored reports whether the record counts toward keystroke accuracy.
func (k Keystroke) Scored() bool {
	return !k.Separator && !k.Backspace
}

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	Phase           Phase          `json:"phase"`
	StartedAt       time.Time      `json:"started_at"`
	Remaining       time.Duration  `json:"remaining"`
	DurationSeconds int            `json:"duration_seconds"`
	WordIndex       int            `json:"word_index"`
	WindowStart     int            `json:"window_start"`
	Words           []string       `json:"words"`
	Input           string         `json:"input"`
	Attempts        map[int]string `json:"attempts"`
	Keystrokes      []Keystroke    `json:"keystrokes"`
}

// Word returns the target word at an absolute index, if it is still materialized.
func (s Snapshot) Word(index int) (string, bool) {
	i := index - s.WindowStart
	if i < 0 || i >= len(s.Words) {
		return "", false
	}
	return s.Words[i], true
}

// CurrentWord returns the target word being typed.
func (s Snapshot) CurrentWord() string {
	w, _ := s.Word(s.WordIndex)
	return w
}

// TimelinePoint is the cumulative WPM after T whole seconds.
type TimelinePoint struct {
	T   int `json:"t"`
	WPM int `json:"wpm"`
}

// ErrorSlice counts scored keystrokes inside [Start, End) seconds.
type ErrorSlice struct {
	Start   int `json:"start"`
	End     int `json:"end"`
	Correct int `json:"correct"`
	Errors  int `json:"errors"`
}

// Results is the derived metrics snapshot of a test.
type Results struct {
	TestID            string          `json:"test_id"`
	Lang              string          `json:"lang,omitempty"`
	DurationSeconds   int             `json:"duration_seconds"`
	ElapsedSeconds    float64         `json:"elapsed_seconds"`
	Finished          bool            `json:"finished"`
	GrossWPM          int             `json:"gross_wpm"`
	NetWPM            int             `json:"net_wpm"`
	Accuracy          float64         `json:"accuracy"`
	CharAccuracy      float64         `json:"char_accuracy"`
	KeystrokeAccuracy float64         `json:"keystroke_accuracy"`
	TotalChars        int             `json:"total_chars"`
	CorrectChars      int             `json:"correct_chars"`
	CorrectWords      int             `json:"correct_words"`
	TotalWords        int             `json:"total_words"`
	Backspaces        int             `json:"backspaces"`
	Consistency       float64         `json:"consistency"`
	Timeline          []TimelinePoint `json:"timeline"`
	ErrorSlices       []ErrorSlice    `json:"error_slices"`
}

// SessionStats captures a completed typing test for persistence.
type SessionStats struct {
	StartedAt    time.Time
	EndedAt      time.Time
	Lang         string
	WordListPath string
	Results      Results
}

// CharStats stores per-character stats for a session.
type CharStats struct {
	Char         string
	Correct      int
	Incorrect    int
	LatencySumMs int64
	LatencyCount int64
}

// Aggregated per-char stats for selection or reporting.

// CharAggregate aggregates character stats across sessions.
type CharAggregate struct {
	Char         string
	Correct      int
	Incorrect    int
	LatencySumMs int64
	LatencyCount int64
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID       int64
	TestID          string
	EndedAt         time.Time
	DurationSeconds int
	NetWPM          int
	GrossWPM        int
	Accuracy        float64
	Consistency     float64
}
