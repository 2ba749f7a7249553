package sequence

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"single line", "hello", 1800, []string{"hello"}},
		{"paragraphs", "hello\n\nworld", 1800, []string{"hello", "world"}},
		{"lines fall back to one per line", "a\nb", 1800, []string{"a", "b"}},
		{"blank lines skipped in fallback", "a\n\n\n", 1800, []string{"a"}},
		{"multi-line paragraph kept with siblings", "a\nb\n\nc", 1800, []string{"a\nb", "c"}},
		{"oversized paragraph packed by lines", "aaaa\nbbbb\ncccc\ndd\n\nz", 10, []string{"aaaa\nbbbb", "cccc\ndd", "z"}},
		{"long line split at space", "aaaa bbbb cccc", 9, []string{"aaaa", "bbbb cccc"}},
		{"empty", "   ", 1800, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Chunk(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestChunkRespectsLimit(t *testing.T) {
	long := strings.Repeat("word ", 900) + "\n" + strings.Repeat("x", 4000) + "\n\n" + strings.Repeat("line\n", 600)
	for _, limit := range []int{50, 333, DefaultChunkLimit} {
		for i, c := range Chunk(long, limit) {
			if n := utf8.RuneCountInString(c); n > limit {
				t.Fatalf("limit %d: chunk %d has %d runes", limit, i, n)
			}
			if strings.TrimSpace(c) == "" {
				t.Fatalf("limit %d: chunk %d is blank", limit, i)
			}
		}
	}
}

func TestChunkMultibyte(t *testing.T) {
	text := strings.Repeat("ж", 25)
	got := Chunk(text, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(got), got)
	}
	for _, c := range got {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %q is not valid utf8", c)
		}
	}
}

func TestChunkIdempotent(t *testing.T) {
	inputs := []string{
		"hello\n\nworld",
		"a\nb",
		"a\nb\n\nc",
		strings.Repeat("some words here\n", 200),
		strings.Repeat("y", 5000),
		"one paragraph\nwith two lines\n\n" + strings.Repeat("z ", 1200),
	}
	for _, in := range inputs {
		first := Chunk(in, DefaultChunkLimit)
		second := Chunk(strings.Join(first, "\n\n"), DefaultChunkLimit)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("re-chunking changed the result for %.30q...\nfirst  %d chunks\nsecond %d chunks", in, len(first), len(second))
		}
	}
}

func TestChunkDefaultLimit(t *testing.T) {
	text := strings.Repeat("q", PlatformLimit+10)
	for _, c := range Chunk(text, 0) {
		if len(c) > DefaultChunkLimit {
			t.Fatalf("chunk of %d exceeds default limit", len(c))
		}
	}
}
