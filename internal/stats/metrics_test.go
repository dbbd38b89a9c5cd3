package stats

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

var testStart = time.Unix(1_700_000_000, 0)

func key(ch string, correct bool, atMs int64) model.Keystroke {
	return model.Keystroke{Char: ch, Expected: ch, Correct: correct, AtMs: atMs}
}

func sep(atMs int64) model.Keystroke {
	return model.Keystroke{Char: " ", Correct: true, AtMs: atMs, Separator: true}
}

func TestComputeNotStartedIsZero(t *testing.T) {
	res := Compute(Input{DurationSeconds: 30, Phase: model.PhaseNotStarted, Now: testStart})
	assert.Equal(t, 0, res.GrossWPM)
	assert.Equal(t, 0, res.NetWPM)
	assert.Equal(t, 0.0, res.Accuracy)
	assert.Empty(t, res.Timeline)
	assert.Empty(t, res.ErrorSlices)
	assert.Equal(t, 0.0, res.Consistency)
}

func TestComputeFirstKeystrokeFloorsElapsed(t *testing.T) {
	res := Compute(Input{
		CurrentTarget:   "hello",
		CurrentInput:    "h",
		Keystrokes:      []model.Keystroke{key("h", true, 0)},
		DurationSeconds: 30,
		StartedAt:       testStart,
		Now:             testStart,
		Phase:           model.PhaseRunning,
	})
	// 1 char / 5 / (1/60 min) = 12 WPM
	assert.Equal(t, 12, res.GrossWPM)
	assert.Equal(t, 12, res.NetWPM)
	assert.Equal(t, 1.0, res.Accuracy)
}

func TestComputeFinishedUsesDuration(t *testing.T) {
	var log []model.Keystroke
	var attempts []Attempt
	for i := 0; i < 20; i++ {
		at := int64(i) * 3000
		log = append(log, key("a", true, at), key("b", true, at+100), key("c", true, at+200), key("d", true, at+300), sep(at+400))
		attempts = append(attempts, Attempt{Index: i, Target: "abcd", Typed: "abcd"})
	}
	res := Compute(Input{
		Attempts:        attempts,
		Keystrokes:      log,
		DurationSeconds: 60,
		StartedAt:       testStart,
		Now:             testStart.Add(61 * time.Second),
		Phase:           model.PhaseFinished,
	})
	assert.True(t, res.Finished)
	assert.Equal(t, 60.0, res.ElapsedSeconds)
	assert.Equal(t, 100, res.TotalChars)
	assert.Equal(t, 20, res.GrossWPM)
	assert.Equal(t, 20, res.NetWPM)
	assert.Equal(t, 20, res.CorrectWords)
	assert.Len(t, res.Timeline, 60)
	assert.Equal(t, 1, res.Timeline[0].T)
	assert.Equal(t, 60, res.Timeline[59].T)
	assert.Len(t, res.ErrorSlices, 6)
	for _, s := range res.ErrorSlices {
		assert.Equal(t, 0, s.Errors)
	}
}

func TestComputeEarlyFinishUsesActualElapsed(t *testing.T) {
	res := Compute(Input{
		Attempts:        []Attempt{{Index: 0, Target: "abcd", Typed: "abcd"}},
		DurationSeconds: 60,
		StartedAt:       testStart,
		Now:             testStart.Add(12 * time.Second),
		Phase:           model.PhaseFinished,
	})
	assert.Equal(t, 12.0, res.ElapsedSeconds)
	// 5 chars / 5 / (12/60 min) = 5 WPM
	assert.Equal(t, 5, res.GrossWPM)
}

func TestComputeAccuracyTakesMinimum(t *testing.T) {
	// A corrected typo: char accuracy is perfect, keystroke accuracy is not.
	log := []model.Keystroke{
		key("a", true, 0),
		{Char: "x", Expected: "b", Correct: false, AtMs: 100, Undone: true},
		{Char: model.BackspaceKey, AtMs: 200, Backspace: true},
		key("b", true, 300),
	}
	res := Compute(Input{
		CurrentTarget:   "ab",
		CurrentInput:    "ab",
		Keystrokes:      log,
		DurationSeconds: 30,
		StartedAt:       testStart,
		Now:             testStart.Add(time.Second),
		Phase:           model.PhaseRunning,
	})
	assert.Equal(t, 1.0, res.CharAccuracy)
	assert.InDelta(t, 2.0/3.0, res.KeystrokeAccuracy, 1e-9)
	assert.InDelta(t, 2.0/3.0, res.Accuracy, 1e-9)
	assert.Equal(t, 1, res.Backspaces)
}

func TestComputeSeparatorsDoNotInflateKeystrokeAccuracy(t *testing.T) {
	// Same corrected typo, but the word is committed with a separator.
	log := []model.Keystroke{
		{Char: "x", Expected: "a", Correct: false, AtMs: 0, Undone: true},
		{Char: model.BackspaceKey, AtMs: 100, Backspace: true},
		key("a", true, 200),
		key("b", true, 300),
		sep(400),
	}
	res := Compute(Input{
		Attempts:        []Attempt{{Index: 0, Target: "ab", Typed: "ab"}},
		CurrentTarget:   "cd",
		Keystrokes:      log,
		DurationSeconds: 30,
		StartedAt:       testStart,
		Now:             testStart.Add(time.Second),
		Phase:           model.PhaseRunning,
	})
	assert.Equal(t, 1.0, res.CharAccuracy)
	assert.InDelta(t, 2.0/3.0, res.KeystrokeAccuracy, 1e-9)
	assert.InDelta(t, 2.0/3.0, res.Accuracy, 1e-9)
}

func TestComputeErrorSlicesAndConsistency(t *testing.T) {
	var log []model.Keystroke
	// 50 correct keys in the first slice, 10 in the second, 2 errors in the second.
	for i := 0; i < 50; i++ {
		log = append(log, key("a", true, int64(i)*100))
	}
	for i := 0; i < 10; i++ {
		log = append(log, key("a", true, 10_000+int64(i)*500))
	}
	log = append(log, key("a", false, 16_000), key("a", false, 17_000))

	res := Compute(Input{
		Keystrokes:      log,
		DurationSeconds: 20,
		StartedAt:       testStart,
		Now:             testStart.Add(20 * time.Second),
		Phase:           model.PhaseFinished,
	})
	require.Len(t, res.ErrorSlices, 2)
	assert.Equal(t, model.ErrorSlice{Start: 0, End: 10, Correct: 50, Errors: 0}, res.ErrorSlices[0])
	assert.Equal(t, model.ErrorSlice{Start: 10, End: 20, Correct: 10, Errors: 2}, res.ErrorSlices[1])
	// slice WPMs are 60 and 12, stddev 24
	assert.InDelta(t, 24.0, res.Consistency, 1e-9)
}

func TestComputeTimelineCumulative(t *testing.T) {
	log := []model.Keystroke{
		key("a", true, 100),
		key("b", true, 500),
		key("c", false, 900),
		key("d", true, 1500),
	}
	res := Compute(Input{
		Keystrokes:      log,
		DurationSeconds: 30,
		StartedAt:       testStart,
		Now:             testStart.Add(2500 * time.Millisecond),
		Phase:           model.PhaseRunning,
	})
	require.Len(t, res.Timeline, 2)
	// 2 correct by 1s: 2/5/(1/60) = 24; 3 correct by 2s: 3/5/(2/60) = 18
	assert.Equal(t, model.TimelinePoint{T: 1, WPM: 24}, res.Timeline[0])
	assert.Equal(t, model.TimelinePoint{T: 2, WPM: 18}, res.Timeline[1])
}

func TestComputeIsIdempotentAndSerializable(t *testing.T) {
	in := Input{
		TestID:          "abc",
		Attempts:        []Attempt{{Index: 0, Target: "the", Typed: "teh"}},
		CurrentTarget:   "cat",
		CurrentInput:    "ca",
		Keystrokes:      []model.Keystroke{key("t", true, 0), key("e", false, 100), key("h", false, 200), sep(300), key("c", true, 400), key("a", true, 500)},
		DurationSeconds: 15,
		StartedAt:       testStart,
		Now:             testStart.Add(12 * time.Second),
		Phase:           model.PhaseRunning,
	}
	a := Compute(in)
	b := Compute(in)
	assert.Equal(t, a, b)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	var decoded model.Results
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, a, decoded)
}

func TestComputeNeverProducesNaN(t *testing.T) {
	res := Compute(Input{
		DurationSeconds: 0,
		StartedAt:       testStart,
		Now:             testStart,
		Phase:           model.PhaseFinished,
	})
	for _, v := range []float64{res.Accuracy, res.CharAccuracy, res.KeystrokeAccuracy, res.Consistency, res.ElapsedSeconds} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.Equal(t, 0, res.GrossWPM)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestCharStatsFromLog(t *testing.T) {
	log := []model.Keystroke{
		key("a", true, 0),
		{Char: "x", Expected: "b", Correct: false, AtMs: 100},
		{Char: model.BackspaceKey, AtMs: 150, Backspace: true},
		{Char: "B", Expected: "b", Correct: true, AtMs: 300},
		{Char: "z", Correct: false, AtMs: 400},
		sep(500),
	}
	got := CharStatsFromLog(log)
	require.Len(t, got, 2)
	assert.Equal(t, model.CharStats{Char: "a", Correct: 1}, got[0])
	assert.Equal(t, model.CharStats{Char: "b", Correct: 1, Incorrect: 1, LatencySumMs: 300, LatencyCount: 1}, got[1])
}
