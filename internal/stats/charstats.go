// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"
	"strings"

	"github.com/verte-zerg/typetest/internal/model"
)

// CharStatsFromLog aggregates per expected character accuracy and the
// latency between consecutive correct keystrokes. Over-typed keys have no
// expected character and are skipped.
func CharStatsFromLog(log []model.Keystroke) []model.CharStats {
	entries := map[string]*model.CharStats{}
	prevCorrectMs := int64(-1)
	for _, k := range log {
		if !k.Scored() || k.Expected == "" {
			continue
		}
		key := strings.ToLower(k.Expected)
		entry, ok := entries[key]
		if !ok {
			entry = &model.CharStats{Char: key}
			entries[key] = entry
		}
		if !k.Correct {
			entry.Incorrect++
			continue
		}
		entry.Correct++
		if prevCorrectMs >= 0 {
			entry.LatencySumMs += k.AtMs - prevCorrectMs
			entry.LatencyCount++
		}
		prevCorrectMs = k.AtMs
	}

	out := make([]model.CharStats, 0, len(entries))
	for _, entry := range entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Char < out[j].Char
	})
	return out
}
