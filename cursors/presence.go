/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package cursors holds the local side of a live-cursors room: the
// interaction state machine, the reaction lifecycle, and the session loop
// that drives both against a presence/broadcast channel.
package cursors

import "math"

// Colors is the palette other participants' cursors are drawn with.
var Colors = []string{"#DC2626", "#D97706", "#059669", "#7C3AED", "#DB2777"}

// ColorFor picks a stable display color for a connection.
func ColorFor(connectionID int) string {
	i := connectionID % len(Colors)
	if i < 0 {
		i += len(Colors)
	}
	return Colors[i]
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RoundPoint converts raw pointer coordinates into the integer point shared
// through presence.
func RoundPoint(x, y float64) Point {
	return Point{X: int(math.Round(x)), Y: int(math.Round(y))}
}

// Presence is the per-participant state every member of a room can see.
// Cursor is nil while the pointer is off the surface.
type Presence struct {
	Cursor  *Point `json:"cursor"`
	Message string `json:"message"`
}

// InitialPresence is declared on room entry.
func InitialPresence() Presence {
	return Presence{Cursor: nil, Message: ""}
}

// Clone returns a copy that shares no pointers with p.
func (p Presence) Clone() Presence {
	if p.Cursor != nil {
		c := *p.Cursor
		p.Cursor = &c
	}
	return p
}

// PresenceUpdate is a partial presence write. A field is only applied when
// its Set flag is true, so a cursor can be explicitly cleared.
type PresenceUpdate struct {
	Cursor     *Point
	SetCursor  bool
	Message    string
	SetMessage bool
}

func CursorUpdate(p *Point) PresenceUpdate {
	return PresenceUpdate{Cursor: p, SetCursor: true}
}

func MessageUpdate(msg string) PresenceUpdate {
	return PresenceUpdate{Message: msg, SetMessage: true}
}

// Empty reports whether the update would change nothing.
func (u PresenceUpdate) Empty() bool {
	return !u.SetCursor && !u.SetMessage
}

// Apply returns p with the update's fields written over it.
func (u PresenceUpdate) Apply(p Presence) Presence {
	p = p.Clone()
	if u.SetCursor {
		if u.Cursor == nil {
			p.Cursor = nil
		} else {
			c := *u.Cursor
			p.Cursor = &c
		}
	}
	if u.SetMessage {
		p.Message = u.Message
	}
	return p
}

// Other is a peer as seen from the local member. Presence is nil until the
// peer has published one.
type Other struct {
	ConnectionID int       `json:"connectionId"`
	Presence     *Presence `json:"presence"`
}

// BroadcastEvent is a reaction emission fanned out to the rest of the room.
type BroadcastEvent struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Value string `json:"value"`
}

// Channel is the presence/broadcast collaborator a session is bound to.
// Writes are fire-and-forget; delivery to peers is best effort.
type Channel interface {
	MyPresence() Presence
	UpdateMyPresence(u PresenceUpdate)
	Others() []Other
	Broadcast(e BroadcastEvent)
	Subscribe(handler func(BroadcastEvent)) (unsubscribe func())
}
