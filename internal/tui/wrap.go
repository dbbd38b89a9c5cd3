package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/typetest/internal/model"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
	cursor  bool
}

type wordState int

const (
	wordPast wordState = iota
	wordCurrent
	wordPending
)

// styleWord renders one target word against what was typed for it. Typed
// runes past the end of the target are shown as extra runes after it.
func styleWord(target, typed string, state wordState) []styledRune {
	tr, in := []rune(target), []rune(typed)
	out := make([]styledRune, 0, max(len(tr), len(in))+1)
	for i, r := range tr {
		style := pendingStyle
		switch {
		case state == wordPending:
		case i < len(in) && equalFold(in[i], r):
			style = correctStyle
		case i < len(in):
			style = incorrectStyle
		case state == wordPast:
			style = missedStyle
		default:
			style = currentWordStyle
		}
		cursor := state == wordCurrent && i == len(in)
		if cursor {
			style = style.Underline(true)
		}
		out = append(out, newStyledRune(r, style, cursor))
	}
	for i := len(tr); i < len(in); i++ {
		out = append(out, newStyledRune(in[i], extraStyle, false))
	}
	return out
}

func newStyledRune(r rune, style lipgloss.Style, cursor bool) styledRune {
	return styledRune{s: style.Render(string(r)), width: runewidth.RuneWidth(r), cursor: cursor}
}

func equalFold(a, b rune) bool {
	return strings.EqualFold(string(a), string(b))
}

// buildStyledRunes renders words of the snapshot window in [from, to),
// separated by spaces. The space after the current word carries the
// cursor once the whole target has been typed.
func buildStyledRunes(snap model.Snapshot, from, to int) []styledRune {
	from = max(from, snap.WindowStart)
	to = min(to, snap.WindowStart+len(snap.Words))
	var out []styledRune
	for idx := from; idx < to; idx++ {
		target, _ := snap.Word(idx)
		var runes []styledRune
		switch {
		case idx < snap.WordIndex:
			runes = styleWord(target, snap.Attempts[idx], wordPast)
		case idx == snap.WordIndex && snap.Phase != model.PhaseFinished:
			runes = styleWord(target, snap.Input, wordCurrent)
		default:
			runes = styleWord(target, "", wordPending)
		}
		out = append(out, runes...)
		if idx == to-1 {
			break
		}
		cursor := idx == snap.WordIndex && snap.Phase != model.PhaseFinished &&
			len([]rune(snap.Input)) >= len([]rune(target))
		style := pendingStyle
		if cursor {
			style = cursorStyle
		}
		sp := newStyledRune(' ', style, cursor)
		sp.isSpace = true
		out = append(out, sp)
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapLines splits runes into lines no wider than width, breaking at the
// last space of a line. Words longer than width are hard-wrapped.
func wrapLines(runes []styledRune, width int) [][]styledRune {
	if width <= 0 {
		return [][]styledRune{runes}
	}
	var lines [][]styledRune
	line := make([]styledRune, 0, width)
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				lines = append(lines, line[:lastSpaceIdx+1])
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				lines = append(lines, line)
				line = []styledRune{}
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines
}

// visibleLines returns up to rows lines starting one line above the line
// holding the cursor.
func visibleLines(lines [][]styledRune, rows int) [][]styledRune {
	if rows <= 0 || len(lines) <= rows {
		return lines
	}
	cursorLine := 0
	for i, line := range lines {
		for _, item := range line {
			if item.cursor {
				cursorLine = i
			}
		}
	}
	start := max(0, cursorLine-1)
	start = min(start, len(lines)-rows)
	return lines[start : start+rows]
}

func renderLines(lines [][]styledRune) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = renderStyledRunes(line)
	}
	return strings.Join(parts, "\n")
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
