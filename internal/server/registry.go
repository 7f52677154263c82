package server

import (
	"strings"
	"sync"
)

// Registry tracks which users are online. Usernames are case-insensitive,
// matching the store's uniqueness rule. One session per user: a second login
// is rejected while the first is alive.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Add claims the username for c. It fails when the user is already online.
func (r *Registry) Add(username string, c *Conn) bool {
	key := strings.ToLower(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, online := r.conns[key]; online {
		return false
	}
	r.conns[key] = c
	return true
}

// Remove releases the username, but only if it is still held by c; a racing
// reconnect keeps its claim.
func (r *Registry) Remove(username string, c *Conn) {
	key := strings.ToLower(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[key] == c {
		delete(r.conns, key)
	}
}

// Get returns the live connection of an online user.
func (r *Registry) Get(username string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[strings.ToLower(username)]
	return c, ok
}

// Online reports whether the user has a live session.
func (r *Registry) Online(username string) bool {
	_, ok := r.Get(username)
	return ok
}

// Count reports online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
