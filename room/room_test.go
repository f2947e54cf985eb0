/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Seednode/cursorparty/cursors"
	"github.com/stretchr/testify/require"
)

func TestRoom_JoinAssignsSequentialIDs(t *testing.T) {
	r := New("test")

	a := r.Join()
	b := r.Join()
	a.Leave()
	c := r.Join()

	require.Equal(t, 0, a.ID())
	require.Equal(t, 1, b.ID())
	require.Equal(t, 2, c.ID())
	require.Equal(t, 2, r.Count())
}

func TestMember_InitialPresence(t *testing.T) {
	r := New("test")
	a := r.Join()
	b := r.Join()

	require.Equal(t, cursors.InitialPresence(), a.MyPresence())

	others := b.Others()
	require.Len(t, others, 1)
	require.Equal(t, 0, others[0].ConnectionID)
	require.Equal(t, cursors.InitialPresence(), *others[0].Presence)
}

func TestMember_PartialUpdates(t *testing.T) {
	r := New("test")
	a := r.Join()

	a.UpdateMyPresence(cursors.CursorUpdate(&cursors.Point{X: 1, Y: 2}))
	a.UpdateMyPresence(cursors.MessageUpdate("hello"))

	require.Equal(t, cursors.Presence{Cursor: &cursors.Point{X: 1, Y: 2}, Message: "hello"}, a.MyPresence())

	a.UpdateMyPresence(cursors.CursorUpdate(nil))
	require.Equal(t, cursors.Presence{Message: "hello"}, a.MyPresence())
}

func TestMember_PresenceIsCopied(t *testing.T) {
	r := New("test")
	a := r.Join()
	b := r.Join()

	p := &cursors.Point{X: 1, Y: 1}
	a.UpdateMyPresence(cursors.CursorUpdate(p))
	p.X = 99

	seen := b.Others()[0].Presence
	require.Equal(t, 1, seen.Cursor.X)

	seen.Cursor.X = 42
	require.Equal(t, 1, a.MyPresence().Cursor.X)
}

func TestMember_OthersOrderedAndExcludeSelf(t *testing.T) {
	r := New("test")
	members := make([]*Member, 5)
	for i := range members {
		members[i] = r.Join()
	}

	others := members[2].Others()
	ids := make([]int, 0, len(others))
	for _, o := range others {
		ids = append(ids, o.ConnectionID)
	}

	require.Equal(t, []int{0, 1, 3, 4}, ids)
}

func TestMember_BroadcastSkipsSender(t *testing.T) {
	r := New("test")
	a := r.Join()
	b := r.Join()
	c := r.Join()

	var fromA, atB, atC atomic.Int32
	a.Subscribe(func(cursors.BroadcastEvent) { fromA.Add(1) })
	b.Subscribe(func(cursors.BroadcastEvent) { atB.Add(1) })
	unsubscribe := c.Subscribe(func(e cursors.BroadcastEvent) {
		require.Equal(t, cursors.BroadcastEvent{X: 1, Y: 2, Value: "🎉"}, e)
		atC.Add(1)
	})

	a.Broadcast(cursors.BroadcastEvent{X: 1, Y: 2, Value: "🎉"})

	require.Equal(t, int32(0), fromA.Load())
	require.Equal(t, int32(1), atB.Load())
	require.Equal(t, int32(1), atC.Load())

	unsubscribe()
	a.Broadcast(cursors.BroadcastEvent{X: 1, Y: 2, Value: "🎉"})

	require.Equal(t, int32(2), atB.Load())
	require.Equal(t, int32(1), atC.Load())
}

func TestMember_WatchSeesOthersOnly(t *testing.T) {
	r := New("test")
	a := r.Join()

	var calls atomic.Int32
	unwatch := a.Watch(func() { calls.Add(1) })

	a.UpdateMyPresence(cursors.MessageUpdate("self"))
	require.Equal(t, int32(0), calls.Load())

	b := r.Join()
	require.Equal(t, int32(1), calls.Load())

	b.UpdateMyPresence(cursors.MessageUpdate("hi"))
	require.Equal(t, int32(2), calls.Load())

	b.Leave()
	require.Equal(t, int32(3), calls.Load())

	unwatch()
	r.Join()
	require.Equal(t, int32(3), calls.Load())
}

func TestMember_LeaveStopsDelivery(t *testing.T) {
	r := New("test")
	a := r.Join()
	b := r.Join()

	var got atomic.Int32
	b.Subscribe(func(cursors.BroadcastEvent) { got.Add(1) })

	b.Leave()
	b.Leave()

	a.Broadcast(cursors.BroadcastEvent{Value: "x"})
	require.Equal(t, int32(0), got.Load())
	require.Empty(t, a.Others())

	b.UpdateMyPresence(cursors.MessageUpdate("ghost"))
	require.Equal(t, "", b.MyPresence().Message)
}

func TestMember_DrivesSession(t *testing.T) {
	r := New("test")
	a := r.Join()
	b := r.Join()

	got := make(chan cursors.Frame, 64)
	s := cursors.NewSession(b, cursors.Options{
		OnFrame: func(f cursors.Frame) {
			select {
			case got <- f:
			default:
			}
		},
	})

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	err := s.Dispatch(cursors.PointerMove{X: 0, Y: 0})
	require.NoError(t, err)

	a.UpdateMyPresence(cursors.CursorUpdate(&cursors.Point{X: 5, Y: 6}))
	a.Broadcast(cursors.BroadcastEvent{X: 5, Y: 6, Value: "🎉"})

	require.Eventually(t, func() bool {
		for {
			select {
			case f := <-got:
				if len(f.Others) == 1 && len(f.Reactions) == 1 {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, time.Millisecond)
}
