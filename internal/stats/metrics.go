// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/verte-zerg/typetest/internal/model"
)

const (
	charsPerWord  = 5.0
	sliceSeconds  = 10
	minElapsedMin = 1.0 / 60.0
)

// Attempt pairs a committed word with its target. Boundary marks the word
// that was cut off by the end of the test: it has no separator behind it.
type Attempt struct {
	Index    int
	Target   string
	Typed    string
	Boundary bool
}

// Input is everything the calculator reads. It is a plain value so that
// Compute stays a pure function of the test state and the clock.
type Input struct {
	TestID          string
	Lang            string
	Attempts        []Attempt
	CurrentTarget   string
	CurrentInput    string
	Keystrokes      []model.Keystroke
	DurationSeconds int
	StartedAt       time.Time
	// Now is the evaluation instant. For a finished test it is the finish time;
	// elapsed time is then capped at DurationSeconds, so an early forced
	// finish is timed on the actual elapsed seconds rather than the full duration.
	Now   time.Time
	Phase model.Phase
}

// Compute derives the metrics snapshot. Calling it twice with the same
// input yields identical output; all ratios fall back to 0.
func Compute(in Input) model.Results {
	res := model.Results{
		TestID:          in.TestID,
		Lang:            in.Lang,
		DurationSeconds: in.DurationSeconds,
		Finished:        in.Phase == model.PhaseFinished,
		Timeline:        []model.TimelinePoint{},
		ErrorSlices:     []model.ErrorSlice{},
	}

	for _, a := range in.Attempts {
		sep := 1
		if a.Boundary {
			sep = 0
		}
		res.TotalChars += utf8.RuneCountInString(a.Typed) + sep
		res.CorrectChars += matchCount(a.Target, a.Typed) + sep
		res.TotalWords++
		if strings.EqualFold(a.Target, a.Typed) {
			res.CorrectWords++
		}
	}
	res.TotalChars += utf8.RuneCountInString(in.CurrentInput)
	res.CorrectChars += matchCount(in.CurrentTarget, in.CurrentInput)

	elapsed := elapsedSeconds(in)
	res.ElapsedSeconds = math.Round(elapsed*100) / 100
	minutes := 0.0
	if in.Phase != model.PhaseNotStarted {
		minutes = math.Max(elapsed/60.0, minElapsedMin)
	}

	res.GrossWPM = int(math.Round(safeDiv(float64(res.TotalChars)/charsPerWord, minutes)))
	res.CharAccuracy = clamp01(safeDiv(float64(res.CorrectChars), float64(res.TotalChars)))

	scored, correctKeys := 0, 0
	for _, k := range in.Keystrokes {
		if k.Backspace {
			res.Backspaces++
			continue
		}
		if !k.Scored() {
			continue
		}
		scored++
		if k.Correct && !k.Undone {
			correctKeys++
		}
	}
	res.Accuracy = res.CharAccuracy
	if scored > 0 {
		res.KeystrokeAccuracy = clamp01(safeDiv(float64(correctKeys), float64(scored)))
		res.Accuracy = math.Min(res.CharAccuracy, res.KeystrokeAccuracy)
	}
	res.NetWPM = int(math.Round(float64(res.GrossWPM) * res.Accuracy))

	res.Timeline = timeline(in.Keystrokes, elapsed)
	res.ErrorSlices = errorSlices(in.Keystrokes, elapsed)
	res.Consistency = consistency(in.Keystrokes, elapsed)
	return res
}

func elapsedSeconds(in Input) float64 {
	if in.Phase == model.PhaseNotStarted || in.StartedAt.IsZero() {
		return 0
	}
	elapsed := in.Now.Sub(in.StartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	if in.Phase == model.PhaseFinished && in.DurationSeconds > 0 {
		elapsed = math.Min(elapsed, float64(in.DurationSeconds))
	}
	return elapsed
}

// matchCount counts case-insensitive per-position matches over the
// overlapping length. Extra typed characters never match.
func matchCount(target, typed string) int {
	t := []rune(target)
	count := 0
	for i, r := range []rune(typed) {
		if i >= len(t) {
			break
		}
		if EqualFoldRune(t[i], r) {
			count++
		}
	}
	return count
}

// EqualFoldRune compares two runes ignoring case.
func EqualFoldRune(a, b rune) bool {
	return strings.EqualFold(string(a), string(b))
}

func countsCorrect(k model.Keystroke) bool {
	return k.Correct && !k.Undone && !k.Backspace
}

func timeline(log []model.Keystroke, elapsed float64) []model.TimelinePoint {
	seconds := int(math.Floor(elapsed))
	points := make([]model.TimelinePoint, 0, seconds)
	idx, cumulative := 0, 0
	for s := 1; s <= seconds; s++ {
		limit := int64(s) * 1000
		for idx < len(log) && log[idx].AtMs < limit {
			if countsCorrect(log[idx]) {
				cumulative++
			}
			idx++
		}
		wpm := safeDiv(float64(cumulative)/charsPerWord, float64(s)/60.0)
		points = append(points, model.TimelinePoint{T: s, WPM: int(math.Round(wpm))})
	}
	return points
}

func sliceCount(elapsed float64) int {
	if elapsed <= 0 {
		return 0
	}
	return int(math.Ceil(elapsed / sliceSeconds))
}

func errorSlices(log []model.Keystroke, elapsed float64) []model.ErrorSlice {
	n := sliceCount(elapsed)
	slices := make([]model.ErrorSlice, n)
	for i := range slices {
		slices[i] = model.ErrorSlice{Start: i * sliceSeconds, End: (i + 1) * sliceSeconds}
	}
	for _, k := range log {
		if !k.Scored() {
			continue
		}
		i := bucketOf(k.AtMs, n)
		if i < 0 {
			continue
		}
		if k.Correct {
			slices[i].Correct++
		} else {
			slices[i].Errors++
		}
	}
	return slices
}

func bucketOf(atMs int64, n int) int {
	if atMs < 0 || n == 0 {
		return -1
	}
	i := int(atMs / (sliceSeconds * 1000))
	if i >= n {
		i = n - 1
	}
	return i
}

// consistency is the population standard deviation of the WPM of each
// 10-second slice. A partial last slice is scaled by its real length.
func consistency(log []model.Keystroke, elapsed float64) float64 {
	n := sliceCount(elapsed)
	if n < 2 {
		return 0
	}
	correct := make([]int, n)
	for _, k := range log {
		if !countsCorrect(k) {
			continue
		}
		if i := bucketOf(k.AtMs, n); i >= 0 {
			correct[i]++
		}
	}
	wpms := make([]float64, n)
	for i := range correct {
		length := math.Min(sliceSeconds, elapsed-float64(i*sliceSeconds))
		length = math.Max(length, 1)
		wpms[i] = safeDiv(float64(correct[i])/charsPerWord, length/60.0)
	}
	return math.Round(StdDev(wpms)*100) / 100
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
