// Package sequence turns a generated reply into an ordered list of delivery steps.
package sequence

import "fmt"

// Item is one parsed step. The concrete types are TextChunk, DeleteOp, EditOp, PauseOp and ReactionOp.
type Item interface {
	item()
	String() string
}

// TextChunk is text to be typed out, possibly as several messages.
type TextChunk struct {
	Content string
}

// DeleteOp removes the last Count messages sent in the session.
type DeleteOp struct {
	Count int
}

// EditOp rewrites the message FromEnd positions back from the newest one (1 = newest).
type EditOp struct {
	FromEnd    int
	NewContent string
}

// PauseOp waits without doing anything.
type PauseOp struct{}

// ReactionOp reacts to the message being answered.
type ReactionOp struct {
	Emoji string
}

func (TextChunk) item()  {}
func (DeleteOp) item()   {}
func (EditOp) item()     {}
func (PauseOp) item()    {}
func (ReactionOp) item() {}

func (t TextChunk) String() string  { return fmt.Sprintf("text(%d chars)", len(t.Content)) }
func (d DeleteOp) String() string   { return fmt.Sprintf("delete(last %d)", d.Count) }
func (e EditOp) String() string     { return fmt.Sprintf("edit(-%d)", e.FromEnd) }
func (PauseOp) String() string      { return "pause" }
func (r ReactionOp) String() string { return "reaction(" + r.Emoji + ")" }
