// Package session is the Session Layer & Notification Fan-out: tracks
// which account each live connection is authenticated as, and fans new
// messages out to whichever connections are currently subscribed for a
// recipient. Each subscriber gets a bounded channel; a slow consumer
// drops its oldest queued notification rather than blocking the sender.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Notification is one message delivered to a subscribed connection.
type Notification struct {
	MessageID uint64
	Sender    string
	Body      string
}

// mailbox is one connection's bounded notification queue. When full, the
// oldest pending notification is dropped to make room for the new one —
// a subscriber that stops reading falls behind rather than blocking the
// leader's apply loop.
type mailbox struct {
	ch      chan Notification
	dropped uint64 // atomic: Notify can run concurrently for one recipient
}

// Registry is the process-wide table of online connections and their
// subscriptions. One Registry per node; it holds no replicated state and
// is rebuilt from nothing on every restart, since "who is online right
// now" is inherently process-local and not a durable fact.
type Registry struct {
	mu            sync.RWMutex
	connUsername  map[string]string             // connectionID -> account
	subscriptions map[string]map[string]*mailbox // account -> connectionID -> mailbox
	capacity      int
}

// NewRegistry builds a Registry whose per-connection mailboxes hold up to
// capacity pending notifications before oldest-drop kicks in.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 32
	}
	return &Registry{
		connUsername:  make(map[string]string),
		subscriptions: make(map[string]map[string]*mailbox),
		capacity:      capacity,
	}
}

// NewConnectionID mints an opaque per-connection identifier.
func NewConnectionID() string { return uuid.NewString() }

// Authenticate records that connID is logged in as username, for
// Username and IsOnline lookups.
func (r *Registry) Authenticate(connID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connUsername[connID] = username
}

// Username reports which account connID is currently authenticated as.
func (r *Registry) Username(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.connUsername[connID]
	return username, ok
}

// Logout forgets connID's association and removes any subscription it held.
func (r *Registry) Logout(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.connUsername[connID]
	delete(r.connUsername, connID)
	if !ok {
		return
	}
	if subs, ok := r.subscriptions[username]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.subscriptions, username)
		}
	}
}

// IsOnline reports whether any connection is currently authenticated as
// username, whether or not it has subscribed. SendMessage's RecipientOnline
// hint is computed from SubscriberCount, not from this.
func (r *Registry) IsOnline(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.connUsername {
		if u == username {
			return true
		}
	}
	return false
}

// Subscribe registers connID to receive notifications for username and
// returns the channel to range over plus an unsubscribe func the caller
// must defer.
func (r *Registry) Subscribe(connID, username string) (<-chan Notification, func()) {
	r.mu.Lock()
	mb := &mailbox{ch: make(chan Notification, r.capacity)}
	subs, ok := r.subscriptions[username]
	if !ok {
		subs = make(map[string]*mailbox)
		r.subscriptions[username] = subs
	}
	subs[connID] = mb
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if subs, ok := r.subscriptions[username]; ok {
			delete(subs, connID)
			if len(subs) == 0 {
				delete(r.subscriptions, username)
			}
		}
	}
	return mb.ch, unsubscribe
}

// Notify delivers n to every connection currently subscribed for
// username, dropping the oldest queued notification on any mailbox that
// is full rather than blocking the apply pipeline.
func (r *Registry) Notify(username string, n Notification) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, mb := range r.subscriptions[username] {
		select {
		case mb.ch <- n:
		default:
			select {
			case <-mb.ch:
				atomic.AddUint64(&mb.dropped, 1)
			default:
			}
			select {
			case mb.ch <- n:
			default:
			}
		}
	}
}

// SubscriberCount reports how many live subscriptions username currently
// has. The leader calls this at SendMessage submission time to compute
// RecipientOnline before proposing — the routing hint is baked into the
// command, never recomputed when followers apply it, since only the
// leader's view of "who dialed into me" is meaningful.
func (r *Registry) SubscriberCount(username string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscriptions[username])
}
