package session

import (
	"sync"
	"time"

	"github.com/parkhub/parking-service/internal/models"
)

// Session tracks one live connection. Username is empty until the connection
// authenticates.
type Session struct {
	ConnID       string
	Username     string
	Role         models.UserRole
	LastActivity time.Time
}

func (s Session) Authenticated() bool {
	return s.Username != ""
}

// Registry is the single source of truth for who is logged in. Values are
// copied in and out under the lock so callers never observe a torn session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

func (r *Registry) OnConnect(connID string) Session {
	s := Session{ConnID: connID, LastActivity: time.Now()}

	r.mu.Lock()
	r.sessions[connID] = s
	r.mu.Unlock()

	return s
}

// OnDisconnect removes the session and returns it so the caller can run
// logout side effects for authenticated connections.
func (r *Registry) OnDisconnect(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if ok {
		delete(r.sessions, connID)
	}
	return s, ok
}

func (r *Registry) Get(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	return s, ok
}

func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[connID]; ok {
		s.LastActivity = time.Now()
		r.sessions[connID] = s
	}
}

// Bind attaches an authenticated identity to the connection.
func (r *Registry) Bind(connID, username string, role models.UserRole) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[connID]; ok {
		s.Username = username
		s.Role = role
		s.LastActivity = time.Now()
		r.sessions[connID] = s
	}
}

// UsernameActive reports whether any live connection is bound to username.
func (r *Registry) UsernameActive(username string) bool {
	if username == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.Username == username {
			return true
		}
	}
	return false
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
