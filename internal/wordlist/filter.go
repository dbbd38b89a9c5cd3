package wordlist

import (
	"strings"
	"unicode"
)

// FilterFunc reports whether a word can be used as a test target.
type FilterFunc func(string) bool

// FilterForLang returns the target filter for a language. English lists
// keep plain a-z words; other languages keep words made only of letters.
func FilterForLang(lang string) FilterFunc {
	switch strings.ToLower(lang) {
	case "en":
		return asciiLetters
	default:
		return letters
	}
}

func asciiLetters(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func letters(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
