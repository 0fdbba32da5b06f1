package bridge

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// Errors returned by handshake completion.
var (
	ErrNotPending       = errors.New("bridge: no pending link for that username")
	ErrIdentityMismatch = errors.New("bridge: pending link belongs to another user")
)

// Pending is an in-flight identity-link handshake.
type Pending struct {
	MeowerUsername string
	RevoltUserID   string
	OriginChannel  string
	CreatedAt      time.Time
}

// PendingRegistry tracks handshakes keyed by the claimed Meower username.
// It is purely in-memory: a restart discards all in-flight handshakes and
// users must start over. Entries expire after the configured TTL so
// abandoned handshakes do not accumulate.
type PendingRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]Pending
	now     func() time.Time
}

// NewPendingRegistry creates a registry with the given entry TTL.
func NewPendingRegistry(ttl time.Duration) *PendingRegistry {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PendingRegistry{
		ttl:     ttl,
		entries: map[string]Pending{},
		now:     time.Now,
	}
}

// Begin registers a handshake for the claimed username, overwriting any
// prior entry for the same username (last writer wins).
func (r *PendingRegistry) Begin(username, revoltUserID, originChannel string) {
	username = strings.TrimSpace(username)
	if username == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.entries[username] = Pending{
		MeowerUsername: username,
		RevoltUserID:   revoltUserID,
		OriginChannel:  originChannel,
		CreatedAt:      r.now(),
	}
}

// Complete consumes the handshake for username. It fails with
// ErrNotPending when no live entry exists and with ErrIdentityMismatch
// when actingUsername is not the claimed user. On success the entry is
// removed; a fresh Begin is required to retry.
func (r *PendingRegistry) Complete(username, actingUsername string) (Pending, error) {
	username = strings.TrimSpace(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	entry, ok := r.entries[username]
	if !ok {
		return Pending{}, ErrNotPending
	}
	if actingUsername != entry.MeowerUsername {
		return Pending{}, ErrIdentityMismatch
	}
	delete(r.entries, username)
	return entry, nil
}

// Len returns the number of live handshakes.
func (r *PendingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.entries)
}

func (r *PendingRegistry) sweepLocked() {
	cutoff := r.now().Add(-r.ttl)
	for key, entry := range r.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(r.entries, key)
		}
	}
}
