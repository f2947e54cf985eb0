// Cursorparty room transport
//
// Each browser tab connects to /room/:roomid/ws and gets one cursors.Session.
// The page forwards raw key, text and pointer events; the session runs the
// interaction state machine and reaction list and pushes back a frame after
// every change. Presence and reactions are shared through an in-memory room.
//
// Features:
// - Rooms per id: /room/:roomid and /room/:roomid/ws
// - /room redirects to a fresh random 8-char room id
// - Connection ids pick a stable cursor color
// - Visitors identified by cookie, for logs only
// - Per-connection rate limit on inbound messages
// - Empty rooms auto-reaped after a configurable idle timeout
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/cursorparty/cursors"
	"github.com/Seednode/cursorparty/room"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

// Messages coming from clients
type ClientMessage struct {
	Type  string  `json:"type"`            // "key_down", "key_up", "text", "select", "pointer_move", "pointer_leave", "pointer_down", "pointer_up"
	Key   string  `json:"key,omitempty"`   // key_down / key_up
	Value string  `json:"value,omitempty"` // text / select
	X     float64 `json:"x,omitempty"`     // pointer_move / pointer_down
	Y     float64 `json:"y,omitempty"`     // pointer_move / pointer_down
}

// input converts a client message into a session input. Unknown types are
// reported as not ok and ignored.
func (m ClientMessage) input() (cursors.Input, bool) {
	switch m.Type {
	case "key_down":
		return cursors.KeyDown{Key: m.Key}, true
	case "key_up":
		return cursors.KeyUp{Key: m.Key}, true
	case "text":
		return cursors.TextChange{Value: m.Value}, true
	case "select":
		return cursors.SelectGlyph{Glyph: m.Value}, true
	case "pointer_move":
		return cursors.PointerMove{X: m.X, Y: m.Y}, true
	case "pointer_leave":
		return cursors.PointerLeave{}, true
	case "pointer_down":
		return cursors.PointerDown{X: m.X, Y: m.Y}, true
	case "pointer_up":
		return cursors.PointerUp{}, true
	default:
		return nil, false
	}
}

// SessionInfoMessage is sent immediately on connect.
type SessionInfoMessage struct {
	Type         string   `json:"type"` // "session_info"
	RoomID       string   `json:"room_id"`
	ConnectionID int      `json:"connection_id"`
	Color        string   `json:"color"`
	Reactions    []string `json:"reactions"`
	TTL          int64    `json:"ttl_ms"`
}

// Glyphs offered by the picker.
var reactionGlyphs = []string{"🔥", "👍", "👀", "😍", "🎉", "👋", "😂", "🤯"}

type Client struct {
	conn      *websocket.Conn
	send      chan any
	frames    chan cursors.Frame
	visitorID string
	limiter   *rate.Limiter
}

func newClient(cfg *Config, conn *websocket.Conn, visitorID string) *Client {
	return &Client{
		conn:      conn,
		send:      make(chan any, 8),
		frames:    make(chan cursors.Frame, 1),
		visitorID: visitorID,
		limiter:   rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst),
	}
}

// pushFrame replaces any frame still waiting to be written, so a slow
// browser only ever sees the latest state.
func (c *Client) pushFrame(f cursors.Frame) {
	for {
		select {
		case c.frames <- f:
			return
		default:
		}

		select {
		case <-c.frames:
		default:
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const visitorCookieName = "cursorparty_id"

func getOrSetVisitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(visitorCookieName); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// WebSocket handler that joins the room named by :roomid
func serveWSForManager(cfg *Config, rooms *room.Manager, metrics *Metrics) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if !roomIDPattern.MatchString(roomID) {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		visitorID := getOrSetVisitorID(w, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: upgrade failed for %s: %v", realIP(r), err)
			return
		}
		conn.SetReadLimit(maxMessageSize)

		member := rooms.Join(roomID)
		client := newClient(cfg, conn, visitorID)

		opts := cfg.sessionOptions()
		opts.OnFrame = client.pushFrame
		opts.OnEmit = metrics.reactionsEmitted.Inc
		opts.OnReceive = metrics.reactionsRecv.Inc
		session := cursors.NewSession(member, opts)

		ctx, cancel := context.WithCancel(context.Background())

		// session_info must reach the page before the first frame.
		client.send <- SessionInfoMessage{
			Type:         "session_info",
			RoomID:       roomID,
			ConnectionID: member.ID(),
			Color:        cursors.ColorFor(member.ID()),
			Reactions:    reactionGlyphs,
			TTL:          cfg.reactionTTL.Milliseconds(),
		}

		go func() {
			_ = session.Run(ctx)
		}()

		metrics.sessions.Inc()
		logf(cfg, "ROOMS: Connection %d (%s) joined %s from %s", member.ID(), visitorID, roomID, realIP(r))

		go client.writePump(ctx)
		client.readPump(session, metrics)

		cancel()
		<-session.Done()
		member.Leave()
		_ = conn.Close()

		metrics.sessions.Dec()
		logf(cfg, "ROOMS: Connection %d (%s) left %s", member.ID(), visitorID, roomID)
	}
}

// readPump feeds client messages to the session. Only pointer moves are
// rate limited: a move over the limit is held and replaced by newer ones, and
// the held move is applied before the next message that gets through or once
// the limiter has room again. Every other message is always delivered.
func (c *Client) readPump(s *cursors.Session, metrics *Metrics) {
	var (
		mu      sync.Mutex
		pending cursors.Input
		flush   *time.Timer
		closed  bool
	)

	dispatch := func(in cursors.Input) {
		if errors.Is(s.Dispatch(in), cursors.ErrSessionClosed) {
			closed = true
		}
	}

	flushPending := func() {
		if pending != nil {
			dispatch(pending)
			pending = nil
		}
	}

	defer func() {
		mu.Lock()
		if flush != nil {
			flush.Stop()
		}
		mu.Unlock()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		in, ok := msg.input()
		if !ok {
			// ignore unknown types
			continue
		}

		mu.Lock()

		if _, move := in.(cursors.PointerMove); move && !c.limiter.Allow() {
			if pending != nil {
				metrics.droppedMessages.Inc()
			}
			pending = in

			if flush == nil {
				flush = time.AfterFunc(c.moveDelay(), func() {
					mu.Lock()
					defer mu.Unlock()

					flush = nil
					flushPending()
				})
			}

			mu.Unlock()
			continue
		}

		flushPending()
		dispatch(in)
		done := closed

		mu.Unlock()

		if done {
			return
		}
	}
}

// moveDelay is how long until the limiter admits another pointer move.
func (c *Client) moveDelay() time.Duration {
	return time.Duration(float64(time.Second) / float64(c.limiter.Limit()))
}

func (c *Client) writePump(ctx context.Context) {
	defer c.conn.Close()

	for {
		var msg any

		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case m := <-c.send:
			msg = m
		case f := <-c.frames:
			msg = f
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if !roomIDPattern.MatchString(roomID) {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:roomid/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed assets/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !roomIDPattern.MatchString(ps.ByName("roomid")) {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetVisitorID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewRoom handles GET /room by generating a new random room ID
// (with server-side collision detection) and redirecting to /room/:roomid.
func redirectNewRoom(cfg *Config, path string, rooms *room.Manager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := rooms.NewRoomID()
		logf(cfg, "ROOMS: Allocated room id %s", roomID)
		http.Redirect(w, r, cfg.prefix+path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerRooms sets up routes so that:
//   - $path                  → redirects to a new random room (8-char ID)
//   - $path/:roomid          → HTML client
//   - $path/:roomid/ws       → WebSocket for that room
//   - $path/:roomid/qr       → PNG QR code for that room URL
func registerRooms(cfg *Config, path string, rooms *room.Manager, metrics *Metrics, mux *httprouter.Router) {
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rooms))

	mux.GET(cfg.prefix+path+"/:roomid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:roomid/ws", serveWSForManager(cfg, rooms, metrics))

	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler)
}
