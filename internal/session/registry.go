// Package session tracks logged-in sessions for the lifetime of the process.
// Records exist only to validate refresh and logout requests; a restart drops
// them all, which simply forces a fresh login.
package session

import (
	"sync"

	"github.com/google/uuid"
)

type Session struct {
	ID           string
	Email        string
	RefreshToken string
}

// Registry maps refresh tokens to login sessions. Add never deduplicates:
// repeated logins for the same user accumulate records, matching the
// documented behavior of the service.
type Registry interface {
	Add(email, refreshToken string) Session
	Find(refreshToken string) (Session, bool)
	Invalidate(refreshToken string) bool
	Len() int
}

type MemoryRegistry struct {
	mu       sync.Mutex
	sessions []Session
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

func (r *MemoryRegistry) Add(email, refreshToken string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := Session{
		ID:           uuid.NewString(),
		Email:        email,
		RefreshToken: refreshToken,
	}
	r.sessions = append(r.sessions, record)
	return record
}

func (r *MemoryRegistry) Find(refreshToken string) (Session, bool) {
	if refreshToken == "" {
		return Session{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.sessions {
		if record.RefreshToken == refreshToken {
			return record, true
		}
	}
	return Session{}, false
}

// Invalidate clears the token on the matching record but keeps the record
// itself; deletion is logical, not physical.
func (r *MemoryRegistry) Invalidate(refreshToken string) bool {
	if refreshToken == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].RefreshToken == refreshToken {
			r.sessions[i].RefreshToken = ""
			return true
		}
	}
	return false
}

func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
