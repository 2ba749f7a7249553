package delivery

import "domme-chat/internal/sequence"

// step is a sequence item with its text pre-chunked.
type step struct {
	item  sequence.Item
	parts []string
	// first is the ordinal of parts[0] among all text messages of the sequence.
	first int
}

// plan chunks every TextChunk and marks which text messages a later delete or edit
// will reach, so those are never sent with a typo.
func plan(items []sequence.Item, limit int) ([]step, map[int]bool) {
	steps := make([]step, 0, len(items))
	touched := make(map[int]bool)
	var (
		stack []int // ordinals of messages alive at this point of the sequence
		next  int
	)
	for _, it := range items {
		s := step{item: it, first: next}
		switch op := it.(type) {
		case sequence.TextChunk:
			s.parts = sequence.Chunk(op.Content, limit)
			for range s.parts {
				stack = append(stack, next)
				next++
			}
		case sequence.DeleteOp:
			n := min(max(op.Count, 0), len(stack))
			for _, ord := range stack[len(stack)-n:] {
				touched[ord] = true
			}
			stack = stack[:len(stack)-n]
		case sequence.EditOp:
			if i := len(stack) - op.FromEnd; i >= 0 && i < len(stack) {
				touched[stack[i]] = true
			}
		}
		steps = append(steps, s)
	}
	return steps, touched
}
