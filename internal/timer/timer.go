// Package timer drives the test countdown.
package timer

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Interval is the polling granularity of the countdown.
const Interval = 100 * time.Millisecond

// Countdown tracks the remaining time of one test. Remaining time moves in
// whole seconds: the clock shows the duration until a full second has
// elapsed.
type Countdown struct {
	duration  time.Duration
	startedAt time.Time
	running   bool
	fired     bool
}

// NewCountdown returns a stopped countdown of the given length.
func NewCountdown(d time.Duration) *Countdown {
	return &Countdown{duration: d}
}

// Start begins counting from at. Starting a running countdown is a no-op.
func (c *Countdown) Start(at time.Time) {
	if c.running || c.fired {
		return
	}
	c.startedAt = at
	c.running = true
}

// Stop halts the countdown without firing.
func (c *Countdown) Stop() {
	c.running = false
}

// Running reports whether the countdown is active.
func (c *Countdown) Running() bool {
	return c.running
}

// Duration returns the configured length.
func (c *Countdown) Duration() time.Duration {
	return c.duration
}

// Remaining returns max(0, duration - floor(elapsed)) in whole seconds.
func (c *Countdown) Remaining(now time.Time) time.Duration {
	if c.fired {
		return 0
	}
	if !c.running {
		return c.duration
	}
	elapsed := now.Sub(c.startedAt).Truncate(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := c.duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Tick polls the countdown. expired is true exactly once, on the first
// tick at which the remaining time reaches zero; the countdown stops then.
func (c *Countdown) Tick(now time.Time) (remaining time.Duration, expired bool) {
	if !c.running {
		return c.Remaining(now), false
	}
	remaining = c.Remaining(now)
	if remaining > 0 {
		return remaining, false
	}
	c.running = false
	c.fired = true
	return 0, true
}

// TickMsg is delivered to a Bubble Tea program on every poll. Gen carries
// the generation of the test that scheduled it.
type TickMsg struct {
	Gen uint64
	At  time.Time
}

// Schedule returns a command that delivers a TickMsg after Interval.
// Receivers must drop messages whose Gen is not the current generation.
func Schedule(gen uint64) tea.Cmd {
	return tea.Tick(Interval, func(t time.Time) tea.Msg {
		return TickMsg{Gen: gen, At: t}
	})
}

// Run calls fn every interval until fn returns false or ctx is done.
// fn always runs on the calling goroutine.
func Run(ctx context.Context, interval time.Duration, fn func(now time.Time) bool) error {
	if interval <= 0 {
		interval = Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !fn(now) {
				return nil
			}
		}
	}
}
