// Package keys maps raw key identifiers to typing actions.
package keys

import (
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/typetest/internal/model"
)

// Named key identifiers.
const (
	Backspace = "Backspace"
	Space     = "Space"
	Shift     = "Shift"
	Alt       = "Alt"
	Control   = "Control"
	Meta      = "Meta"
	Enter     = "Enter"
	Tab       = "Tab"
	Escape    = "Escape"
)

var ignorable = map[string]struct{}{
	Shift:   {},
	Alt:     {},
	Control: {},
	Meta:    {},
	Enter:   {},
	Tab:     {},
	Escape:  {},
}

// Kind is the classified meaning of a keystroke.
type Kind int

// Action kinds.
const (
	Ignore Kind = iota
	StartAndType
	TypeChar
	DeleteChar
	CommitWord
)

func (k Kind) String() string {
	switch k {
	case Ignore:
		return "ignore"
	case StartAndType:
		return "start_and_type"
	case TypeChar:
		return "type_char"
	case DeleteChar:
		return "backspace"
	case CommitWord:
		return "commit_word"
	default:
		return "unknown"
	}
}

// Action is the classifier output. Char is set for StartAndType and TypeChar.
type Action struct {
	Kind Kind
	Char rune
}

// State is the part of the engine state classification depends on.
type State struct {
	Phase    model.Phase
	InputLen int
}

// Classify maps a raw key identifier to an action. It is total over all
// strings: anything outside the documented key set is Ignore.
func Classify(key string, st State) Action {
	if st.Phase == model.PhaseFinished {
		return Action{Kind: Ignore}
	}
	if _, ok := ignorable[key]; ok {
		return Action{Kind: Ignore}
	}
	switch {
	case key == Backspace:
		if st.Phase != model.PhaseRunning || st.InputLen == 0 {
			return Action{Kind: Ignore}
		}
		return Action{Kind: DeleteChar}
	case IsSeparator(key):
		if st.Phase != model.PhaseRunning || st.InputLen == 0 {
			return Action{Kind: Ignore}
		}
		return Action{Kind: CommitWord}
	}

	r, ok := printable(key)
	if !ok {
		return Action{Kind: Ignore}
	}
	if st.Phase == model.PhaseNotStarted {
		return Action{Kind: StartAndType, Char: r}
	}
	return Action{Kind: TypeChar, Char: r}
}

// IsSeparator reports whether key commits the current word.
func IsSeparator(key string) bool {
	return key == Space || key == " "
}

func printable(key string) (rune, bool) {
	if utf8.RuneCountInString(key) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError || !unicode.IsPrint(r) || unicode.IsSpace(r) {
		return 0, false
	}
	return r, true
}
