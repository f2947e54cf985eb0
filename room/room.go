/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package room is an in-process presence/broadcast channel. Every member of a
// Room sees the others' presence and receives their broadcast events; nothing
// leaves the process and nothing is persisted.
package room

import (
	"sort"
	"sync"
	"time"

	"github.com/Seednode/cursorparty/cursors"
)

type Room struct {
	id string

	mu         sync.RWMutex
	nextID     int
	nextHandle int
	members    map[int]*Member
	lastActive time.Time
}

// Member is one connection's view of a room. It implements cursors.Channel.
type Member struct {
	room *Room
	id   int

	// guarded by room.mu
	presence cursors.Presence
	subs     map[int]func(cursors.BroadcastEvent)
	watchers map[int]func()
	left     bool
}

var _ cursors.Channel = (*Member)(nil)
var _ cursors.Watcher = (*Member)(nil)

func New(id string) *Room {
	return &Room{
		id:         id,
		members:    make(map[int]*Member),
		lastActive: time.Now(),
	}
}

func (r *Room) ID() string {
	return r.id
}

// Join adds a member with the initial presence. Connection ids start at zero
// and are never reused within a room.
func (r *Room) Join() *Member {
	r.mu.Lock()

	m := &Member{
		room:     r,
		id:       r.nextID,
		presence: cursors.InitialPresence(),
		subs:     make(map[int]func(cursors.BroadcastEvent)),
		watchers: make(map[int]func()),
	}
	r.nextID++
	r.members[m.id] = m
	r.lastActive = time.Now()

	notify := r.watchersLocked(m.id)
	r.mu.Unlock()

	run(notify)

	return m
}

func (r *Room) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members)
}

func (r *Room) LastActive() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastActive
}

// watchersLocked collects the watch callbacks of everyone but except.
func (r *Room) watchersLocked(except int) []func() {
	var fns []func()
	for id, m := range r.members {
		if id == except {
			continue
		}
		for _, fn := range m.watchers {
			fns = append(fns, fn)
		}
	}
	return fns
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func (m *Member) ID() int {
	return m.id
}

func (m *Member) MyPresence() cursors.Presence {
	m.room.mu.RLock()
	defer m.room.mu.RUnlock()

	return m.presence.Clone()
}

func (m *Member) UpdateMyPresence(u cursors.PresenceUpdate) {
	if u.Empty() {
		return
	}

	r := m.room
	r.mu.Lock()
	if m.left {
		r.mu.Unlock()
		return
	}
	m.presence = u.Apply(m.presence)
	r.lastActive = time.Now()
	notify := r.watchersLocked(m.id)
	r.mu.Unlock()

	run(notify)
}

// Others lists every other member in connection id order.
func (m *Member) Others() []cursors.Other {
	r := m.room
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]cursors.Other, 0, len(r.members))
	for id, o := range r.members {
		if id == m.id {
			continue
		}
		p := o.presence.Clone()
		out = append(out, cursors.Other{ConnectionID: id, Presence: &p})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectionID < out[j].ConnectionID
	})

	return out
}

// Broadcast hands e to every other member's subscribers. The sender never
// receives its own events.
func (m *Member) Broadcast(e cursors.BroadcastEvent) {
	r := m.room
	r.mu.Lock()
	if m.left {
		r.mu.Unlock()
		return
	}
	r.lastActive = time.Now()

	var handlers []func(cursors.BroadcastEvent)
	for id, o := range r.members {
		if id == m.id {
			continue
		}
		for _, h := range o.subs {
			handlers = append(handlers, h)
		}
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

func (m *Member) Subscribe(handler func(cursors.BroadcastEvent)) func() {
	r := m.room
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.nextHandle
	r.nextHandle++
	m.subs[key] = handler

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(m.subs, key)
	}
}

// Watch registers fn to be called whenever another member joins, leaves or
// changes their presence.
func (m *Member) Watch(fn func()) func() {
	r := m.room
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.nextHandle
	r.nextHandle++
	m.watchers[key] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(m.watchers, key)
	}
}

// Leave removes the member from the room along with its subscriptions.
func (m *Member) Leave() {
	r := m.room
	r.mu.Lock()
	if m.left {
		r.mu.Unlock()
		return
	}
	m.left = true
	delete(r.members, m.id)
	clear(m.subs)
	clear(m.watchers)
	r.lastActive = time.Now()
	notify := r.watchersLocked(m.id)
	r.mu.Unlock()

	run(notify)
}
