package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Registry is the single source of truth for who is online.
// It keeps a forward index (user -> connection) and a reverse index
// (connection ID -> user) that are always mutated together under one lock,
// so a closing connection is resolved in O(1) without knowing its own user.
type Registry struct {
	mu      sync.RWMutex
	byUser  map[domain.UserID]contract.Connection
	byConn  map[string]domain.UserID
	changes chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:  make(map[domain.UserID]contract.Connection),
		byConn:  make(map[string]domain.UserID),
		changes: make(chan struct{}, 1),
	}
}

// Register binds a user to a connection, last register wins.
// A previous connection for the same user is dropped from both indexes but
// not closed: the transport still owns it and will report its close later.
// A connection registering under a new identity releases the old one.
func (r *Registry) Register(userID domain.UserID, conn contract.Connection) {
	r.mu.Lock()
	if prev, ok := r.byUser[userID]; ok && prev.ID() != conn.ID() {
		delete(r.byConn, prev.ID())
	}
	if prevUser, ok := r.byConn[conn.ID()]; ok && prevUser != userID {
		delete(r.byUser, prevUser)
	}
	r.byUser[userID] = conn
	r.byConn[conn.ID()] = userID
	r.mu.Unlock()

	r.notify()
}

func (r *Registry) Lookup(userID domain.UserID) (contract.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byUser[userID]
	return conn, ok
}

// Unregister removes the entry bound to this exact connection.
// A superseded connection no longer appears in the reverse index, so its
// late close never evicts the newer connection of the same user.
func (r *Registry) Unregister(conn contract.Connection) (domain.UserID, bool) {
	r.mu.Lock()
	userID, ok := r.byConn[conn.ID()]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	delete(r.byConn, conn.ID())
	if current, exists := r.byUser[userID]; exists && current.ID() == conn.ID() {
		delete(r.byUser, userID)
	}
	r.mu.Unlock()

	r.notify()
	return userID, true
}

// Snapshot returns the online users at a single point in time, sorted.
func (r *Registry) Snapshot() []domain.UserID {
	r.mu.RLock()
	users := lo.Keys(r.byUser)
	r.mu.RUnlock()

	slices.Sort(users)
	return users
}

// View returns the sorted online users and their connections, both read
// under the same lock so every connection belongs to a listed user.
func (r *Registry) View() ([]domain.UserID, []contract.Connection) {
	r.mu.RLock()
	users := lo.Keys(r.byUser)
	conns := make([]contract.Connection, 0, len(users))
	for _, userID := range users {
		conns = append(conns, r.byUser[userID])
	}
	r.mu.RUnlock()

	slices.Sort(users)
	return users, conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Changes signals registry mutations. Signals coalesce: a pending signal
// already stands for every mutation made before it is received.
func (r *Registry) Changes() <-chan struct{} {
	return r.changes
}

func (r *Registry) notify() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}
