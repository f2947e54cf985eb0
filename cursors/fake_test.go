/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cursors

import (
	"sync"
	"time"
)

// fakeChannel records presence writes and broadcasts, and lets tests inject
// inbound events.
type fakeChannel struct {
	mu         sync.Mutex
	presence   Presence
	updates    []PresenceUpdate
	broadcasts []BroadcastEvent
	others     []Other
	handlers   map[int]func(BroadcastEvent)
	next       int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		presence: InitialPresence(),
		handlers: make(map[int]func(BroadcastEvent)),
	}
}

func (f *fakeChannel) MyPresence() Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presence.Clone()
}

func (f *fakeChannel) UpdateMyPresence(u PresenceUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	f.presence = u.Apply(f.presence)
}

func (f *fakeChannel) Others() []Other {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Other(nil), f.others...)
}

func (f *fakeChannel) Broadcast(e BroadcastEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, e)
}

func (f *fakeChannel) Subscribe(h func(BroadcastEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.next
	f.next++
	f.handlers[key] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, key)
	}
}

func (f *fakeChannel) inject(e BroadcastEvent) {
	f.mu.Lock()
	hs := make([]func(BroadcastEvent), 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(e)
	}
}

func (f *fakeChannel) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeChannel) broadcastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.broadcasts)
}

func (f *fakeChannel) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
