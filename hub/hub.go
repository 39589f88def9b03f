/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package hub relays named events to every connected display screen.
//
// Every emit is stamped with a sequence number and queued on each session
// under a single lock, so all sessions observe events in the same order.
// Emitting never waits on a client: a session whose queue is full is
// disconnected and has to reconnect and fetch a fresh baseline.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

const (
	EventSession      = "session"
	EventStateSet     = "state_set"
	EventStateUpdated = "state_updated"
)

const defaultBuffer = 64

// Frame is the unit written to a session.
type Frame struct {
	Seq   uint64          `json:"seq,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Greeting is the first frame every session receives. Seq is the last
// sequence number emitted before the session joined.
type Greeting struct {
	ID  string `json:"id"`
	Seq uint64 `json:"seq"`
}

type Session struct {
	id   string
	send chan []byte
}

func (s *Session) ID() string {
	return s.id
}

// Frames yields encoded frames for this session. The channel is closed
// when the session is disconnected.
func (s *Session) Frames() <-chan []byte {
	return s.send
}

type Option func(*Hub)

// WithBuffer sets how many frames may be queued per session before it is
// considered stalled.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogf sets the function used for diagnostic output.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(h *Hub) {
		if logf != nil {
			h.logf = logf
		}
	}
}

type Hub struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	seq      uint64
	closed   bool

	buffer int
	logf   func(format string, args ...any)
}

func New(opts ...Option) *Hub {
	h := &Hub{
		sessions: make(map[*Session]struct{}),
		buffer:   defaultBuffer,
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers a new session. Nothing emitted earlier is replayed.
func (h *Hub) Connect() *Session {
	s := &Session{
		id:   uuid.NewString(),
		send: make(chan []byte, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(s.send)
		return s
	}

	greeting, _ := json.Marshal(Greeting{ID: s.id, Seq: h.seq})
	frame, _ := json.Marshal(Frame{Event: EventSession, Data: greeting})
	s.send <- frame

	h.sessions[s] = struct{}{}

	h.logf("HUB: Session %s connected (%d connected)", s.id, len(h.sessions))

	return s
}

// Disconnect removes s. It is safe to call more than once.
func (h *Hub) Disconnect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(s) {
		h.logf("HUB: Session %s disconnected (%d connected)", s.id, len(h.sessions))
	}
}

func (h *Hub) removeLocked(s *Session) bool {
	if _, ok := h.sessions[s]; !ok {
		return false
	}
	delete(h.sessions, s)
	close(s.send)
	return true
}

// Emit delivers data as event to every connected session. The only error
// is a failure to encode data.
func (h *Hub) Emit(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++

	frame, err := json.Marshal(Frame{Seq: h.seq, Event: event, Data: payload})
	if err != nil {
		return err
	}

	for s := range h.sessions {
		select {
		case s.send <- frame:
		default:
			h.removeLocked(s)
			h.logf("HUB: Session %s stalled, disconnected (%d connected)", s.id, len(h.sessions))
		}
	}

	return nil
}

// Relay re-emits a client snapshot verbatim as state_updated, back to the
// sender included.
func (h *Hub) Relay(snapshot json.RawMessage) error {
	if len(snapshot) == 0 {
		snapshot = json.RawMessage("null")
	}
	return h.Emit(EventStateUpdated, snapshot)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.sessions)
}

// Close disconnects every session and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for s := range h.sessions {
		h.removeLocked(s)
	}
}
