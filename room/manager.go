/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"context"
	"crypto/rand"
	"sync"
	"time"
)

// Manager holds a set of rooms keyed by id, so each /room/:roomid is its own
// isolated session.
type Manager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration

	// OnCreate and OnRemove are called without the manager lock held.
	OnCreate func(id string)
	OnRemove func(id string)
}

func NewManager(idleTimeout time.Duration) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
}

// Join adds a member to the room with the given id, creating the room if
// needed. Holding the manager lock across both steps keeps a concurrent Reap
// from dropping the room in between.
func (m *Manager) Join(id string) *Member {
	m.mu.Lock()

	r, ok := m.rooms[id]
	if !ok {
		r = New(id)
		m.rooms[id] = r
	}
	member := r.Join()
	m.mu.Unlock()

	if !ok && m.OnCreate != nil {
		m.OnCreate(id)
	}

	return member
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.rooms)
}

// NewRoomID generates a crypto-random room id that doesn't collide with an
// existing room.
func (m *Manager) NewRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		m.mu.Lock()
		_, exists := m.rooms[id]
		m.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// Reap removes every empty room that has been idle since before cutoff and
// returns the removed ids.
func (m *Manager) Reap(cutoff time.Time) []string {
	var removed []string

	m.mu.Lock()
	for id, r := range m.rooms {
		if r.Count() == 0 && r.LastActive().Before(cutoff) {
			delete(m.rooms, id)
			removed = append(removed, id)
		}
	}
	m.mu.Unlock()

	if m.OnRemove != nil {
		for _, id := range removed {
			m.OnRemove(id)
		}
	}

	return removed
}

// ReapLoop periodically removes rooms idle longer than the idle timeout,
// until ctx is cancelled. It returns immediately if the timeout is zero.
func (m *Manager) ReapLoop(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(m.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Reap(now.Add(-m.idleTimeout))
		}
	}
}
