/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cursors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (l *frameLog) add(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
}

func (l *frameLog) last() Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.frames) == 0 {
		return Frame{}
	}
	return l.frames[len(l.frames)-1]
}

func startSession(t *testing.T, ch Channel, opts Options) (*Session, *frameLog, context.CancelFunc) {
	t.Helper()

	log := &frameLog{}
	opts.OnFrame = log.add

	s := NewSession(ch, opts)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_ = s.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})

	return s, log, cancel
}

func TestSession_DispatchUpdatesFrame(t *testing.T) {
	ch := newFakeChannel()
	s, frames, _ := startSession(t, ch, Options{})

	err := s.Dispatch(KeyDown{Key: "/"})
	require.NoError(t, err)
	require.Equal(t, ModeView{Mode: "hidden"}, frames.last().State)

	err = s.Dispatch(KeyUp{Key: "/"})
	require.NoError(t, err)
	err = s.Dispatch(TextChange{Value: "hi"})
	require.NoError(t, err)

	f := frames.last()
	require.Equal(t, "frame", f.Type)
	require.Equal(t, ModeView{Mode: "chat", Message: "hi"}, f.State)
	require.Equal(t, "hi", f.Me.Message)
}

func TestSession_ReceiveRendersReaction(t *testing.T) {
	ch := newFakeChannel()
	clock := newFakeClock()
	s, frames, _ := startSession(t, ch, Options{Now: clock.Now})

	require.Eventually(t, func() bool { return ch.subscribers() == 1 }, time.Second, time.Millisecond)

	ch.inject(BroadcastEvent{X: 10, Y: 20, Value: "🎉"})

	require.Eventually(t, func() bool {
		return len(frames.last().Reactions) == 1
	}, time.Second, time.Millisecond)

	got := frames.last().Reactions[0]
	require.Equal(t, Reaction{Glyph: "🎉", Origin: Point{X: 10, Y: 20}, CreatedAt: clock.Now()}, got)

	err := s.Dispatch(PointerMove{X: 1, Y: 1})
	require.NoError(t, err)
	require.Len(t, frames.last().Reactions, 1)
}

func TestSession_EmitsWhileHeldAndStopsOnRelease(t *testing.T) {
	ch := newFakeChannel()
	var emitted int
	var mu sync.Mutex
	s, frames, _ := startSession(t, ch, Options{
		EmitInterval: 5 * time.Millisecond,
		OnEmit: func() {
			mu.Lock()
			emitted++
			mu.Unlock()
		},
	})

	for _, in := range []Input{
		PointerMove{X: 50, Y: 60},
		KeyUp{Key: "e"},
		SelectGlyph{Glyph: "🔥"},
		PointerDown{X: 50, Y: 60},
	} {
		err := s.Dispatch(in)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return ch.broadcastCount() >= 5 }, time.Second, time.Millisecond)

	err := s.Dispatch(PointerUp{})
	require.NoError(t, err)

	f := frames.last()
	require.Equal(t, ModeView{Mode: "reacting", Glyph: "🔥"}, f.State)

	stopped := ch.broadcastCount()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, stopped, ch.broadcastCount())

	mu.Lock()
	require.Equal(t, stopped, emitted)
	mu.Unlock()

	ch.mu.Lock()
	defer ch.mu.Unlock()
	for _, e := range ch.broadcasts {
		require.Equal(t, BroadcastEvent{X: 50, Y: 60, Value: "🔥"}, e)
	}
}

func TestSession_SweepsExpiredReactions(t *testing.T) {
	ch := newFakeChannel()
	_, frames, _ := startSession(t, ch, Options{
		TTL:           40 * time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
	})

	require.Eventually(t, func() bool { return ch.subscribers() == 1 }, time.Second, time.Millisecond)
	ch.inject(BroadcastEvent{X: 1, Y: 1, Value: "👋"})

	require.Eventually(t, func() bool { return len(frames.last().Reactions) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(frames.last().Reactions) == 0 }, time.Second, time.Millisecond)
}

func TestSession_OthersInFrame(t *testing.T) {
	ch := newFakeChannel()
	ch.others = []Other{
		{ConnectionID: 1, Presence: &Presence{Cursor: &Point{X: 3, Y: 4}, Message: "yo"}},
		{ConnectionID: 2, Presence: nil},
		{ConnectionID: 3, Presence: &Presence{}},
	}

	s, frames, _ := startSession(t, ch, Options{})
	err := s.Dispatch(PointerMove{X: 0, Y: 0})
	require.NoError(t, err)

	require.Equal(t, []OtherView{
		{ConnectionID: 1, Color: ColorFor(1), Cursor: Point{X: 3, Y: 4}, Message: "yo"},
	}, frames.last().Others)
}

func TestSession_CancelReleasesEverything(t *testing.T) {
	ch := newFakeChannel()
	s, _, cancel := startSession(t, ch, Options{})

	require.Eventually(t, func() bool { return ch.subscribers() == 1 }, time.Second, time.Millisecond)

	cancel()
	<-s.Done()

	require.Zero(t, ch.subscribers())

	err := s.Dispatch(KeyUp{Key: "e"})
	require.True(t, errors.Is(err, ErrSessionClosed))
}
