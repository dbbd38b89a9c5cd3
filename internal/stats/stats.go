// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/typetest/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// TimelineValues extracts the WPM series of a timeline.
func TimelineValues(points []model.TimelinePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = float64(p.WPM)
	}
	return out
}

// RenderResults prints the result of a single test.
func RenderResults(w io.Writer, res model.Results) error {
	status := "in progress"
	if res.Finished {
		status = "finished"
	}
	lines := []string{
		fmt.Sprintf("Test %s (%ds, %s)", shortID(res.TestID), res.DurationSeconds, status),
		fmt.Sprintf("WPM: %d net / %d gross", res.NetWPM, res.GrossWPM),
		fmt.Sprintf("Accuracy: %.2f%%", res.Accuracy*100),
		fmt.Sprintf("Characters: %s correct of %s", humanize.Comma(int64(res.CorrectChars)), humanize.Comma(int64(res.TotalChars))),
		fmt.Sprintf("Words: %d correct of %d", res.CorrectWords, res.TotalWords),
		fmt.Sprintf("Backspaces: %d", res.Backspaces),
		fmt.Sprintf("Consistency: %.2f", res.Consistency),
	}
	if len(res.Timeline) > 0 {
		lines = append(lines, "Timeline: "+Sparkline(TimelineValues(res.Timeline)))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(res.ErrorSlices) == 0 {
		return nil
	}
	tbl := newTable("Seconds", "Correct", "Errors").alignRight(1, 2)
	for _, s := range res.ErrorSlices {
		tbl.add(fmt.Sprintf("%d-%d", s.Start, s.End), fmt.Sprintf("%d", s.Correct), fmt.Sprintf("%d", s.Errors))
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	for _, line := range tbl.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RenderSummary prints a summary table for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalWPM, totalAcc, totalCons float64
	var totalTime time.Duration
	bestWPM := 0
	for _, s := range sessions {
		totalWPM += float64(s.NetWPM)
		totalAcc += s.Accuracy
		totalCons += s.Consistency
		totalTime += time.Duration(s.DurationSeconds) * time.Second
		bestWPM = max(bestWPM, s.NetWPM)
	}
	count := float64(len(sessions))
	last := sessions[len(sessions)-1]
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d (%s typing)", len(sessions), totalTime),
		fmt.Sprintf("Last: %s", humanize.Time(last.EndedAt)),
		fmt.Sprintf("Avg WPM: %.2f", totalWPM/count),
		fmt.Sprintf("Best WPM: %d", bestWPM),
		fmt.Sprintf("Avg Accuracy: %.2f%%", (totalAcc/count)*100),
		fmt.Sprintf("Avg Consistency: %.2f", totalCons/count),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints learning curves for WPM and accuracy.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i] = float64(s.NetWPM)
		accs[i] = s.Accuracy * 100
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "WPM", Values: MovingAverage(wpms, window)},
		{Name: "Accuracy", Values: MovingAverage(accs, window)},
	}, width, height, useColor)
}

// RenderCharTable prints per-character aggregates.
func RenderCharTable(w io.Writer, aggs []model.CharAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No character stats found.")
		return err
	}
	type row struct {
		char      string
		acc       float64
		latency   float64
		correct   int
		incorrect int
	}
	rows := make([]row, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, row{
			char:      agg.Char,
			acc:       accuracy(agg),
			latency:   safeDiv(float64(agg.LatencySumMs), float64(agg.LatencyCount)),
			correct:   agg.Correct,
			incorrect: agg.Incorrect,
		})
	}
	// Sort by lowest accuracy.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].acc == rows[j].acc {
			return rows[i].char < rows[j].char
		}
		return rows[i].acc < rows[j].acc
	})

	if _, err := fmt.Fprintln(w, "Per-Character (Windowed)"); err != nil {
		return err
	}

	tbl := newTable("Char", "Accuracy", "Avg Latency (ms)", "Correct", "Incorrect").alignRight(1, 2, 3, 4)
	for _, r := range rows {
		tbl.add(
			r.char,
			fmt.Sprintf("%.2f%%", r.acc*100),
			fmt.Sprintf("%.1f", r.latency),
			humanize.Comma(int64(r.correct)),
			humanize.Comma(int64(r.incorrect)),
		)
	}
	for _, line := range tbl.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCharCurves prints per-character accuracy curves.
func RenderCharCurves(w io.Writer, sessions []model.SessionAggregate, perSession map[int64]map[string]model.CharAggregate, chars []string, window int) error {
	if len(chars) == 0 || len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Character Curves"); err != nil {
		return err
	}
	for _, ch := range chars {
		accSeries := make([]float64, len(sessions))
		latSeries := make([]float64, len(sessions))
		for i, s := range sessions {
			agg, ok := perSession[s.SessionID][ch]
			if !ok {
				continue
			}
			accSeries[i] = accuracy(agg) * 100
			latSeries[i] = safeDiv(float64(agg.LatencySumMs), float64(agg.LatencyCount))
		}
		if err := PlotSeries(w, fmt.Sprintf("Char %s", ch), []Series{
			{Name: "Accuracy", Values: MovingAverage(accSeries, window)},
			{Name: "Latency", Values: MovingAverage(latSeries, window)},
		}, 0, 6); err != nil {
			return err
		}
	}
	return nil
}
