// Package replay feeds recorded keystroke scripts through an engine.
//
// A script has one event per line: the offset in milliseconds from the
// first key, a space, and the key identifier ("Space", "Backspace" or a
// single character). Blank lines and lines starting with # are skipped.
package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/timer"
)

// Event is one recorded key.
type Event struct {
	AtMs int64
	Key  string
}

// Engine is the part of the typing engine a replay drives.
type Engine interface {
	ProcessKey(key string)
	Tick(now time.Time) bool
	Finish()
	Phase() model.Phase
	Results() model.Results
}

// Parse reads a script. Offsets must not decrease.
func Parse(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		ms, key, ok := strings.Cut(strings.TrimLeft(line, " \t"), " ")
		if !ok || key == "" {
			return nil, fmt.Errorf("line %d: expected \"<ms> <key>\"", lineNo)
		}
		at, err := strconv.ParseInt(ms, 10, 64)
		if err != nil || at < 0 {
			return nil, fmt.Errorf("line %d: invalid offset %q", lineNo, ms)
		}
		if n := len(events); n > 0 && at < events[n-1].AtMs {
			return nil, fmt.Errorf("line %d: offset %d goes back in time", lineNo, at)
		}
		events = append(events, Event{AtMs: at, Key: key})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return events, nil
}

// Clock is a manually advanced time source.
type Clock struct {
	now time.Time
}

// NewClock returns a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.now = t
}

// Simulate plays events on clock, which must be the engine's clock, with
// ticks every timer.Interval between keys. When finish is true the test
// is ended after the last key; otherwise ticking continues until the
// countdown expires.
func Simulate(eng Engine, clock *Clock, events []Event, finish bool) model.Results {
	start := clock.Now()
	nextTick := start.Add(timer.Interval)
	tickUntil := func(t time.Time) bool {
		for !nextTick.After(t) {
			clock.Set(nextTick)
			if eng.Tick(nextTick) {
				return true
			}
			nextTick = nextTick.Add(timer.Interval)
		}
		return false
	}

	for _, ev := range events {
		at := start.Add(time.Duration(ev.AtMs) * time.Millisecond)
		if eng.Phase() == model.PhaseRunning && tickUntil(at) {
			break
		}
		if eng.Phase() == model.PhaseNotStarted {
			// The countdown starts with the first accepted key.
			nextTick = at.Add(timer.Interval)
		}
		clock.Set(at)
		eng.ProcessKey(ev.Key)
		if eng.Phase() == model.PhaseFinished {
			break
		}
	}

	if eng.Phase() == model.PhaseRunning {
		if finish {
			eng.Finish()
		} else {
			for {
				clock.Set(nextTick)
				if eng.Tick(nextTick) {
					break
				}
				nextTick = nextTick.Add(timer.Interval)
			}
		}
	}
	return eng.Results()
}

// Realtime plays events against the wall clock, driving the countdown with
// timer.Run. The engine must use the real clock.
func Realtime(ctx context.Context, eng Engine, events []Event, finish bool) (model.Results, error) {
	start := time.Now()
	next := 0
	err := timer.Run(ctx, timer.Interval, func(now time.Time) bool {
		elapsed := now.Sub(start).Milliseconds()
		for next < len(events) && events[next].AtMs <= elapsed {
			eng.ProcessKey(events[next].Key)
			next++
		}
		if eng.Tick(now) || eng.Phase() == model.PhaseFinished {
			return false
		}
		if next == len(events) && (finish || eng.Phase() == model.PhaseNotStarted) {
			eng.Finish()
			return false
		}
		return true
	})
	if err != nil {
		return model.Results{}, err
	}
	return eng.Results(), nil
}
