package mind

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"domme-chat/internal/chat"
)

// minSegmentLen drops short name pieces like "ai" or "x" that match too much.
const minSegmentLen = 3

// IsDirectAddress reports whether msg mentions the bot or names it as a whole word.
func IsDirectAddress(msg chat.InboundMessage, id chat.BotIdentity) bool {
	if id.ID != "" && slices.Contains(msg.MentionedIDs, id.ID) {
		return true
	}
	content := strings.ToLower(msg.Content)
	for _, name := range NameVariants(id) {
		if containsWord(content, name) {
			return true
		}
	}
	return false
}

// NameVariants lists the lower-cased names the bot answers to: full names plus their
// separator-split segments longer than two characters.
func NameVariants(id chat.BotIdentity) []string {
	full := append([]string{id.Username, id.DisplayName, id.GlobalName}, id.Aliases...)
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || slices.Contains(out, s) {
			return
		}
		out = append(out, s)
	}
	for _, name := range full {
		add(name)
		for _, seg := range strings.FieldsFunc(name, isSeparator) {
			if utf8.RuneCountInString(seg) >= minSegmentLen {
				add(seg)
			}
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// containsWord finds word in text with no letter or digit touching either side.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (i == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
