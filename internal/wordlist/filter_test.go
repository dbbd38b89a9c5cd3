package wordlist

import "testing"

func TestFilterEnglishASCII(t *testing.T) {
	filter := FilterForLang("EN")
	if !filter("hello") {
		t.Fatalf("expected hello to pass english filter")
	}
	for _, word := range []string{"", "résumé", "naïve", "don’t", "co-op", "abc1"} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestFilterOtherLanguagesKeepsLetters(t *testing.T) {
	filter := FilterForLang("de")
	for _, word := range []string{"straße", "über", "naïve"} {
		if !filter(word) {
			t.Fatalf("expected %q to pass", word)
		}
	}
	for _, word := range []string{"", "co-op", "a b", "x1"} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}
