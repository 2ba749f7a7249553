package sequence

import (
	"strconv"
	"strings"
)

const directivePrefix = "::"

// Directive names understood by Parse.
const (
	DirectiveDelete    = "delete_last_messages"
	DirectiveEdit      = "edit_last_message"
	DirectiveReaction  = "reaction"
	DirectiveLongPause = "long_pause"
)

// Parse splits a generated blob into items. Directives must sit on their own line;
// everything else is text, flushed into a TextChunk whenever a directive or the end is reached.
func Parse(blob string) []Item {
	blob = strings.ReplaceAll(blob, "\r\n", "\n")

	var (
		items   []Item
		pending []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(pending, "\n"))
		pending = pending[:0]
		if text != "" {
			items = append(items, TextChunk{Content: text})
		}
	}

	for _, line := range strings.Split(blob, "\n") {
		it, isDirective := parseDirective(line)
		if !isDirective {
			pending = append(pending, line)
			continue
		}
		flush()
		if it != nil {
			items = append(items, it)
		}
	}
	flush()
	return items
}

// parseDirective reports whether line is a known directive. A known directive with a bad
// argument returns (nil, true) so the line is consumed without producing text.
func parseDirective(line string) (Item, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, directivePrefix) {
		return nil, false
	}
	body := strings.TrimPrefix(trimmed, directivePrefix)
	name, arg, _ := strings.Cut(body, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case DirectiveDelete:
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return nil, true
		}
		return DeleteOp{Count: n}, true
	case DirectiveEdit:
		if arg == "" {
			return nil, true
		}
		return EditOp{FromEnd: 1, NewContent: arg}, true
	case DirectiveReaction:
		if arg == "" {
			return nil, true
		}
		return ReactionOp{Emoji: arg}, true
	case DirectiveLongPause:
		return PauseOp{}, true
	}
	return nil, false
}

// IsBlank reports whether items leave nothing the channel would see: no text and no reaction.
// Pauses, deletes and edits alone do not count.
func IsBlank(items []Item) bool {
	for _, it := range items {
		switch v := it.(type) {
		case TextChunk:
			if strings.TrimSpace(v.Content) != "" {
				return false
			}
		case ReactionOp:
			return false
		}
	}
	return true
}
