/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cursors

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
)

var ErrSessionClosed = errors.New("session closed")

// Watcher is implemented by channels that can announce changes to the
// other members' presence.
type Watcher interface {
	Watch(fn func()) (unwatch func())
}

// OtherView is a peer cursor ready to draw.
type OtherView struct {
	ConnectionID int    `json:"connection_id"`
	Color        string `json:"color"`
	Cursor       Point  `json:"cursor"`
	Message      string `json:"message,omitempty"`
}

// Frame is everything the page needs to render one update.
type Frame struct {
	Type      string      `json:"type"` // "frame"
	State     ModeView    `json:"state"`
	Me        Presence    `json:"me"`
	Reactions []Reaction  `json:"reactions"`
	Others    []OtherView `json:"others"`
}

type Options struct {
	TTL           time.Duration
	EmitInterval  time.Duration
	SweepInterval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	// OnFrame is called from the session goroutine after every change.
	OnFrame func(Frame)

	OnEmit    func()
	OnReceive func()
}

type inputRequest struct {
	in    Input
	reply chan struct{}
}

// Session runs one participant's interaction state machine and reaction
// list on a single goroutine. Inputs, inbound broadcasts and both timers are
// serialized through Run.
type Session struct {
	ch        Channel
	machine   *Machine
	reactions *Reactions
	opts      Options

	inputs chan inputRequest
	events chan BroadcastEvent
	others chan struct{}
	done   chan struct{}
}

func NewSession(ch Channel, opts Options) *Session {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.EmitInterval <= 0 {
		opts.EmitInterval = DefaultEmitInterval
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		ch:        ch,
		machine:   NewMachine(ch),
		reactions: NewReactions(opts.TTL),
		opts:      opts,
		inputs:    make(chan inputRequest),
		events:    make(chan BroadcastEvent, 64),
		others:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Dispatch hands an input to the session loop and waits until it has been
// applied and the resulting frame published.
func (s *Session) Dispatch(in Input) error {
	req := inputRequest{in: in, reply: make(chan struct{})}

	select {
	case s.inputs <- req:
	case <-s.done:
		return ErrSessionClosed
	}

	select {
	case <-req.reply:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Done is closed once Run has returned and every timer and subscription has
// been released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run blocks until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	unsubscribe := s.ch.Subscribe(func(e BroadcastEvent) {
		select {
		case s.events <- e:
		default:
			// a slow session misses reactions rather than stalling the sender
		}
	})
	defer unsubscribe()

	if w, ok := s.ch.(Watcher); ok {
		unwatch := w.Watch(func() {
			select {
			case s.others <- struct{}{}:
			default:
			}
		})
		defer unwatch()
	}

	emit := time.NewTicker(s.opts.EmitInterval)
	defer emit.Stop()

	sweep := time.NewTicker(s.opts.SweepInterval)
	defer sweep.Stop()

	s.publish()

	for {
		select {
		case <-ctx.Done():
			return nil

		case req := <-s.inputs:
			s.machine.Handle(req.in)
			s.publish()
			close(req.reply)

		case e := <-s.events:
			s.reactions.Receive(e, s.opts.Now())
			if s.opts.OnReceive != nil {
				s.opts.OnReceive()
			}
			s.publish()

		case <-s.others:
			s.publish()

		case <-emit.C:
			if s.reactions.Emit(s.ch, s.machine.Mode(), s.ch.MyPresence().Cursor, s.opts.Now()) {
				if s.opts.OnEmit != nil {
					s.opts.OnEmit()
				}
				s.publish()
			}

		case <-sweep.C:
			if s.reactions.Sweep(s.opts.Now()) > 0 {
				s.publish()
			}
		}
	}
}

func (s *Session) frame() Frame {
	others := lo.FilterMap(s.ch.Others(), func(o Other, _ int) (OtherView, bool) {
		if o.Presence == nil || o.Presence.Cursor == nil {
			return OtherView{}, false
		}
		return OtherView{
			ConnectionID: o.ConnectionID,
			Color:        ColorFor(o.ConnectionID),
			Cursor:       *o.Presence.Cursor,
			Message:      o.Presence.Message,
		}, true
	})

	return Frame{
		Type:      "frame",
		State:     ViewOf(s.machine.Mode()),
		Me:        s.ch.MyPresence(),
		Reactions: s.reactions.Visible(),
		Others:    others,
	}
}

func (s *Session) publish() {
	if s.opts.OnFrame == nil {
		return
	}
	s.opts.OnFrame(s.frame())
}
