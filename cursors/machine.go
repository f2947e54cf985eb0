/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cursors

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// MaxMessageLength caps a chat line, counted in user-perceived characters.
const MaxMessageLength = 50

// Effect is what a transition asks of its surroundings.
type Effect struct {
	Presence       PresenceUpdate
	PreventDefault bool
}

// Transition maps the current mode and an input to the next mode. It is pure;
// the returned Effect describes any presence write to perform.
func Transition(mode Mode, in Input) (Mode, Effect) {
	switch in := in.(type) {
	case KeyDown:
		return onKeyDown(mode, in.Key)

	case KeyUp:
		switch in.Key {
		case KeySlash:
			return Chat{}, Effect{}
		case KeyEscape:
			return Hidden{}, Effect{Presence: MessageUpdate("")}
		case KeyEmoji:
			return ReactionPicker{}, Effect{}
		}
		return mode, Effect{}

	case TextChange:
		if _, ok := mode.(Chat); !ok {
			return mode, Effect{}
		}
		msg := truncateMessage(in.Value)
		return Chat{Message: msg}, Effect{Presence: MessageUpdate(msg)}

	case SelectGlyph:
		if _, ok := mode.(ReactionPicker); !ok || in.Glyph == "" {
			return mode, Effect{}
		}
		return Reacting{Glyph: in.Glyph}, Effect{}

	case PointerMove:
		// The picker freezes the shared cursor while a glyph is chosen.
		if _, ok := mode.(ReactionPicker); ok {
			return mode, Effect{}
		}
		p := RoundPoint(in.X, in.Y)
		return mode, Effect{Presence: CursorUpdate(&p)}

	case PointerLeave:
		return Hidden{}, Effect{Presence: CursorUpdate(nil)}

	case PointerDown:
		p := RoundPoint(in.X, in.Y)
		eff := Effect{Presence: CursorUpdate(&p)}
		if r, ok := mode.(Reacting); ok {
			r.IsEmitting = true
			return r, eff
		}
		return mode, eff

	case PointerUp:
		if r, ok := mode.(Reacting); ok {
			r.IsEmitting = false
			return r, Effect{}
		}
		return mode, Effect{}

	default:
		panic(fmt.Sprintf("cursors: unknown input %T", in))
	}
}

func onKeyDown(mode Mode, key string) (Mode, Effect) {
	if key == KeySlash {
		return mode, Effect{PreventDefault: true}
	}

	switch m := mode.(type) {
	case Chat:
		switch key {
		case KeyEnter:
			prev := m.Message
			return Chat{PreviousMessage: &prev}, Effect{}
		case KeyEscape:
			return Hidden{}, Effect{}
		}
		return m, Effect{}
	case Hidden, ReactionPicker, Reacting:
		return mode, Effect{}
	default:
		panic(unknownMode(mode))
	}
}

func truncateMessage(s string) string {
	if uniseg.GraphemeClusterCount(s) <= MaxMessageLength {
		return s
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; n < MaxMessageLength && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	return b.String()
}

// Machine holds the local mode and writes transition effects to a channel.
type Machine struct {
	mode Mode
	ch   Channel
}

func NewMachine(ch Channel) *Machine {
	return &Machine{mode: Hidden{}, ch: ch}
}

func (m *Machine) Mode() Mode {
	return m.mode
}

// Handle applies in and reports whether the browser should suppress the
// event's default handling.
func (m *Machine) Handle(in Input) bool {
	next, eff := Transition(m.mode, in)
	m.mode = next

	if !eff.Presence.Empty() {
		m.ch.UpdateMyPresence(eff.Presence)
	}

	return eff.PreventDefault
}
