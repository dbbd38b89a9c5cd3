package stats

import (
	"sort"

	"github.com/verte-zerg/typetest/internal/model"
)

// minWeakSamples is the number of attempts a character needs before it can
// be picked as weak.
const minWeakSamples = 3

// SelectWeakChars picks up to top characters with the lowest accuracy.
// Characters seen fewer than minWeakSamples times are skipped; top <= 0
// selects every eligible character.
func SelectWeakChars(aggs []model.CharAggregate, top int) map[rune]struct{} {
	weak := map[rune]struct{}{}
	candidates := make([]model.CharAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Correct+agg.Incorrect < minWeakSamples || agg.Char == "" {
			continue
		}
		candidates = append(candidates, agg)
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai, aj := accuracy(candidates[i]), accuracy(candidates[j])
		if ai == aj {
			return candidates[i].Char < candidates[j].Char
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for _, agg := range candidates[:top] {
		// Perfect characters are never weak.
		if accuracy(agg) >= 1 {
			break
		}
		weak[[]rune(agg.Char)[0]] = struct{}{}
	}
	return weak
}

// TopCharsByFrequency returns the n most typed characters.
func TopCharsByFrequency(aggs []model.CharAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := make([]model.CharAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		ti := sorted[i].Correct + sorted[i].Incorrect
		tj := sorted[j].Correct + sorted[j].Incorrect
		if ti == tj {
			return sorted[i].Char < sorted[j].Char
		}
		return ti > tj
	})
	n = min(n, len(sorted))
	out := make([]string, n)
	for i := range out {
		out[i] = sorted[i].Char
	}
	return out
}

func accuracy(agg model.CharAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}
