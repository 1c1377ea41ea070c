package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// session is one connected client. Its own mutex guards subscriptions so
// broadcasts to different sessions never contend.
type session struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	createdAt time.Time

	mu     sync.Mutex
	subs   map[string]bool
	closed bool
}

// subscribed reports whether the session wants messages from channel.
func (s *session) subscribed(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[channel]
}

func (s *session) setSubs(channels []string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		if on {
			s.subs[ch] = true
		} else {
			delete(s.subs, ch)
		}
	}
}

// enqueue queues data for the write pump. It reports false when the session
// is closed or its buffer is full.
func (s *session) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// Registry tracks live sessions by id. Sessions are created when a client
// connects and deleted when its connection closes.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// create registers a new session subscribed to channels.
func (r *Registry) create(conn *websocket.Conn, channels []string) *session {
	s := &session{
		id:        uuid.NewString(),
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		createdAt: time.Now().UTC(),
		subs:      make(map[string]bool, len(channels)),
	}
	for _, ch := range channels {
		s.subs[ch] = true
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

// delete removes and closes the session. Unknown ids are ignored.
func (r *Registry) delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

func (r *Registry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// snapshot returns the current sessions so callers can iterate without
// holding the registry lock.
func (r *Registry) snapshot() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// closeAll deletes every session.
func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}
