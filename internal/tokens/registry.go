// Package tokens issues the single-use tokens that authorize RPC sessions.
package tokens

import (
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/webterm/internal/shared/id"
)

const DefaultTTL = 5 * time.Minute

var (
	ErrUnknown = errors.New("unknown session token")
	ErrExpired = errors.New("session token expired")
)

// Registry tracks issued tokens until they are consumed or expire.
type Registry struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	issued map[id.Token]time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry whose tokens live for ttl.
func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{
		ttl:    ttl,
		now:    time.Now,
		issued: make(map[id.Token]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue returns a fresh token and its expiry.
func (r *Registry) Issue() (id.Token, time.Time) {
	token := id.NewToken()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	expires := r.now().Add(r.ttl)
	r.issued[token] = expires
	return token, expires
}

// Consume redeems a token. A token can be consumed once.
func (r *Registry) Consume(token id.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	expires, ok := r.issued[token]
	if !ok {
		return ErrUnknown
	}
	delete(r.issued, token)
	if !r.now().Before(expires) {
		return ErrExpired
	}
	return nil
}

// Pending returns the number of outstanding tokens, expired ones excluded.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	return len(r.issued)
}

func (r *Registry) pruneLocked() {
	now := r.now()
	for token, expires := range r.issued {
		if !now.Before(expires) {
			delete(r.issued, token)
		}
	}
}
