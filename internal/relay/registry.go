// Package relay tracks which logical users currently hold a live connection
// via the lock-guarded Registry type.
package relay

import "sync"

// Registry maps a user identifier to its single live connection. It keeps a
// reverse index from connection to the user identifier captured at
// registration time so that a superseded connection can never evict the
// binding of a newer one.
//
// Construct one Registry at process start and inject it wherever connections
// are handled; there is no package-level instance.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
	byConn map[*Client]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byConn: make(map[*Client]string),
	}
}

// Register binds userID to c, silently replacing any prior binding for that
// identifier. The prior connection is not closed; its own eventual close event
// cleans it up. Register never fails.
func (r *Registry) Register(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[userID] = c
	r.byConn[c] = userID
}

// Unregister removes the binding that was captured when c registered. It is a
// no-op when c was never registered, and it leaves the forward entry alone
// when a later Register for the same identifier has already replaced c.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[c]
	if !ok {
		return
	}
	delete(r.byConn, c)
	if current, ok := r.byUser[userID]; ok && current == c {
		delete(r.byUser, userID)
	}
}

// Lookup returns the live connection for userID. Absence is an expected
// routing outcome, not an error: it means the user is not currently reachable
// for push delivery.
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUser[userID]
	return c, ok
}

// ForEachExcept applies fn to every registered connection other than the one
// bound to userID. The iteration works over a snapshot taken under the read
// lock, so fn runs without the registry lock held and concurrent registration
// changes cannot tear the walk. Order is unspecified.
func (r *Registry) ForEachExcept(userID string, fn func(*Client)) {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.byUser))
	for id, c := range r.byUser {
		if id == userID {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		fn(c)
	}
}

// Count reports the number of currently registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}
