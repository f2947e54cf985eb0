/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cursors

import "fmt"

// Mode is the local cursor interaction state. The set of variants is closed:
// Hidden, Chat, ReactionPicker and Reacting.
type Mode interface {
	isMode()
	Name() string
}

// Hidden shows no overlay next to the cursor.
type Hidden struct{}

// Chat is active while composing. PreviousMessage holds the last line sent.
type Chat struct {
	Message         string
	PreviousMessage *string
}

// ReactionPicker has the glyph selection overlay open.
type ReactionPicker struct{}

// Reacting has a glyph attached to the cursor; IsEmitting is true while the
// pointer button is held.
type Reacting struct {
	Glyph      string
	IsEmitting bool
}

func (Hidden) isMode()         {}
func (Chat) isMode()           {}
func (ReactionPicker) isMode() {}
func (Reacting) isMode()       {}

func (Hidden) Name() string         { return "hidden" }
func (Chat) Name() string           { return "chat" }
func (ReactionPicker) Name() string { return "reaction_picker" }
func (Reacting) Name() string       { return "reacting" }

func unknownMode(m Mode) string {
	return fmt.Sprintf("cursors: unknown mode %T", m)
}

// ModeView is the wire form of a Mode, sent to the browser with each frame.
type ModeView struct {
	Mode            string  `json:"mode"`
	Message         string  `json:"message,omitempty"`
	PreviousMessage *string `json:"previous_message,omitempty"`
	Glyph           string  `json:"glyph,omitempty"`
	IsEmitting      bool    `json:"is_emitting,omitempty"`
}

func ViewOf(m Mode) ModeView {
	switch m := m.(type) {
	case Hidden:
		return ModeView{Mode: m.Name()}
	case Chat:
		return ModeView{Mode: m.Name(), Message: m.Message, PreviousMessage: m.PreviousMessage}
	case ReactionPicker:
		return ModeView{Mode: m.Name()}
	case Reacting:
		return ModeView{Mode: m.Name(), Glyph: m.Glyph, IsEmitting: m.IsEmitting}
	default:
		panic(unknownMode(m))
	}
}
