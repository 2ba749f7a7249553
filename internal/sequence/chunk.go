package sequence

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// PlatformLimit is the hard message size of the platform.
	PlatformLimit = 2000
	// DefaultChunkLimit leaves headroom under PlatformLimit.
	DefaultChunkLimit = 1800
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Chunk splits text into messages no longer than limit characters.
// Paragraphs stay whole when they fit; oversized paragraphs are packed line by line.
// Multi-line text that would otherwise go out as a single message is sent one line per message.
func Chunk(text string, limit int) []string {
	if limit <= 0 || limit > PlatformLimit {
		limit = DefaultChunkLimit
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if runeLen(para) <= limit {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, packLines(para, limit)...)
	}

	if len(chunks) <= 1 && strings.Contains(strings.TrimSpace(text), "\n") {
		var lines []string
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			lines = append(lines, splitLong(line, limit)...)
		}
		return lines
	}
	return chunks
}

// packLines greedily joins lines into chunks of at most limit runes.
func packLines(para string, limit int) []string {
	var (
		out []string
		cur strings.Builder
		n   int
	)
	emit := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
		n = 0
	}
	for _, line := range strings.Split(para, "\n") {
		line = strings.TrimRight(line, " \t")
		for _, piece := range splitLong(line, limit) {
			size := runeLen(piece)
			if n > 0 && n+1+size > limit {
				emit()
			}
			if n > 0 {
				cur.WriteByte('\n')
				n++
			}
			cur.WriteString(piece)
			n += size
		}
	}
	emit()
	return out
}

// splitLong cuts a single line longer than limit, preferring the last space before the cut.
func splitLong(line string, limit int) []string {
	var out []string
	for runeLen(line) > limit {
		cut := byteOffset(line, limit)
		if sp := strings.LastIndex(line[:cut], " "); sp > 0 {
			cut = sp
		}
		head := strings.TrimSpace(line[:cut])
		if head != "" {
			out = append(out, head)
		}
		line = strings.TrimSpace(line[cut:])
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// byteOffset returns the byte index of the n-th rune.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
