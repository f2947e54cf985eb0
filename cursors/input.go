/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cursors

// Input is a keyboard, text or pointer event from the local user.
type Input interface {
	isInput()
}

// KeyDown is a key press anywhere on the page. Enter and Escape drive the
// chat input; "/" has its default handling suppressed.
type KeyDown struct {
	Key string
}

// KeyUp is a key release at page level. "/", "Escape" and "e" switch modes.
type KeyUp struct {
	Key string
}

// TextChange carries the new value of the chat input.
type TextChange struct {
	Value string
}

// SelectGlyph picks a reaction from the picker overlay.
type SelectGlyph struct {
	Glyph string
}

type PointerMove struct {
	X, Y float64
}

type PointerLeave struct{}

type PointerDown struct {
	X, Y float64
}

type PointerUp struct{}

func (KeyDown) isInput()      {}
func (KeyUp) isInput()        {}
func (TextChange) isInput()   {}
func (SelectGlyph) isInput()  {}
func (PointerMove) isInput()  {}
func (PointerLeave) isInput() {}
func (PointerDown) isInput()  {}
func (PointerUp) isInput()    {}

const (
	KeySlash  = "/"
	KeyEscape = "Escape"
	KeyEnter  = "Enter"
	KeyEmoji  = "e"
)
