// Package wordlist loads word lists from files or the embedded defaults.
package wordlist

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed words/*.txt
var embedded embed.FS

// LoadWords reads one word per line from the provided file path.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()
	return readWords(file)
}

// Embedded returns the built-in word list for lang.
func Embedded(lang string) ([]string, error) {
	file, err := embedded.Open(path.Join("words", strings.ToLower(lang)+".txt"))
	if err != nil {
		return nil, fmt.Errorf("no built-in word list for %q", lang)
	}
	defer func() {
		_ = file.Close()
	}()
	return readWords(file)
}

// EmbeddedLangs lists the languages with a built-in word list.
func EmbeddedLangs() []string {
	entries, err := embedded.ReadDir("words")
	if err != nil {
		return nil
	}
	langs := make([]string, 0, len(entries))
	for _, entry := range entries {
		langs = append(langs, strings.TrimSuffix(entry.Name(), ".txt"))
	}
	sort.Strings(langs)
	return langs
}

// Resolve loads the word list at path, falling back to the built-in list
// for lang when the file does not exist. The returned source names where
// the words came from.
func Resolve(path, lang string) (words []string, source string, err error) {
	if path != "" {
		words, err = LoadWords(path)
		if err == nil {
			return filterWords(words, lang), path, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", err
		}
	}
	words, err = Embedded(lang)
	if err != nil {
		if path != "" {
			return nil, "", fmt.Errorf("word list %s not found and %w", path, err)
		}
		return nil, "", err
	}
	return words, "builtin:" + strings.ToLower(lang), nil
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return words, nil
}

func filterWords(words []string, lang string) []string {
	keep := FilterForLang(lang)
	out := words[:0:0]
	for _, w := range words {
		w = strings.ToLower(w)
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// Langs lists languages with a word list file in dir merged with the
// built-in languages. A missing dir is not an error.
func Langs(dir string) ([]string, error) {
	seen := map[string]bool{}
	for _, lang := range EmbeddedLangs() {
		seen[lang] = true
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read wordlist directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		seen[strings.TrimSuffix(name, ".txt")] = true
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs, nil
}
