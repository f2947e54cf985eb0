/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cursors

import (
	"time"

	"github.com/samber/lo"
)

const (
	DefaultTTL           = 4000 * time.Millisecond
	DefaultEmitInterval  = 100 * time.Millisecond
	DefaultSweepInterval = 1000 * time.Millisecond
)

// Reaction is one glyph on screen. CreatedAt is local time: emission time for
// our own reactions, receipt time for a peer's.
type Reaction struct {
	Glyph     string    `json:"value"`
	Origin    Point     `json:"point"`
	CreatedAt time.Time `json:"timestamp"`
}

// Reactions keeps the glyphs currently on screen, oldest first.
// It is not safe for concurrent use; a Session owns it.
type Reactions struct {
	ttl  time.Duration
	list []Reaction
}

func NewReactions(ttl time.Duration) *Reactions {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Reactions{ttl: ttl}
}

// Emit adds a reaction at the cursor and broadcasts it, but only while a
// glyph is being held down over a known cursor position.
func (r *Reactions) Emit(ch Channel, mode Mode, cursor *Point, now time.Time) bool {
	reacting, ok := mode.(Reacting)
	if !ok || !reacting.IsEmitting || cursor == nil {
		return false
	}

	r.list = append(r.list, Reaction{
		Glyph:     reacting.Glyph,
		Origin:    *cursor,
		CreatedAt: now,
	})

	ch.Broadcast(BroadcastEvent{X: cursor.X, Y: cursor.Y, Value: reacting.Glyph})

	return true
}

// Receive adds a peer's reaction, stamped with the local receipt time.
func (r *Reactions) Receive(e BroadcastEvent, now time.Time) {
	r.list = append(r.list, Reaction{
		Glyph:     e.Value,
		Origin:    Point{X: e.X, Y: e.Y},
		CreatedAt: now,
	})
}

// Sweep drops every reaction older than the TTL and returns how many went.
func (r *Reactions) Sweep(now time.Time) int {
	before := len(r.list)
	r.list = lo.Filter(r.list, func(x Reaction, _ int) bool {
		return now.Sub(x.CreatedAt) <= r.ttl
	})
	return before - len(r.list)
}

func (r *Reactions) Visible() []Reaction {
	out := make([]Reaction, len(r.list))
	copy(out, r.list)
	return out
}

func (r *Reactions) Len() int {
	return len(r.list)
}
