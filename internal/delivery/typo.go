package delivery

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTypoWord keeps typos off short words where they read as a different word.
const minTypoWord = 4

// injectTypo corrupts one word of text. It returns the corrupted text and the
// follow-up correction ("*word"), or ok=false when no word qualifies.
func injectTypo(text string, r Rand) (typoed, correction string, ok bool) {
	words := strings.Fields(text)
	var candidates []int
	for i, w := range words {
		if utf8.RuneCountInString(w) >= minTypoWord && isPlainWord(w) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return text, "", false
	}
	idx := candidates[r.Intn(len(candidates))]
	word := words[idx]
	bad := corrupt(word, r)
	if bad == word {
		return text, "", false
	}

	// Replace the n-th occurrence so earlier identical words stay intact.
	nth := 0
	for i := 0; i < idx; i++ {
		if words[i] == word {
			nth++
		}
	}
	return replaceNth(text, word, bad, nth), "*" + word, true
}

func isPlainWord(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// corrupt applies one of: swap two neighbours, drop a letter, double a letter.
func corrupt(word string, r Rand) string {
	rs := []rune(word)
	// Keep the first letter so the word stays recognisable.
	i := 1 + r.Intn(len(rs)-2)
	switch r.Intn(3) {
	case 0:
		if rs[i] == rs[i+1] {
			return string(append(rs[:i:i], rs[i+1:]...))
		}
		rs[i], rs[i+1] = rs[i+1], rs[i]
		return string(rs)
	case 1:
		return string(append(rs[:i:i], rs[i+1:]...))
	default:
		out := make([]rune, 0, len(rs)+1)
		out = append(out, rs[:i+1]...)
		out = append(out, rs[i])
		out = append(out, rs[i+1:]...)
		return string(out)
	}
}

func replaceNth(s, old, repl string, n int) string {
	start := 0
	for {
		i := indexWord(s[start:], old)
		if i < 0 {
			return s
		}
		i += start
		if n == 0 {
			return s[:i] + repl + s[i+len(old):]
		}
		n--
		start = i + len(old)
	}
}

// indexWord finds old as a whitespace-delimited field.
func indexWord(s, old string) int {
	for start := 0; start < len(s); {
		i := strings.Index(s[start:], old)
		if i < 0 {
			return -1
		}
		i += start
		end := i + len(old)
		before, _ := utf8.DecodeLastRuneInString(s[:i])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (i == 0 || unicode.IsSpace(before)) && (end == len(s) || unicode.IsSpace(after)) {
			return i
		}
		start = i + 1
	}
	return -1
}
