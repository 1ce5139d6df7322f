package transport

import (
	"context"
	"encoding/json"
	"sync"
)

// Future is the pending reply of a correlated call. It settles exactly once.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	reply     json.RawMessage
	err       error
	callbacks []func(json.RawMessage, error)
}

// NewFuture returns an unsettled future. Transports settle it with Resolve or
// Reject.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled reply, or ErrPending if it has not arrived.
func (f *Future) Result() (json.RawMessage, error) {
	select {
	case <-f.done:
	default:
		return nil, ErrPending
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reply, f.err
}

// Await blocks until the future settles or ctx ends.
func (f *Future) Await(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Then registers fn to run on settlement. fn runs immediately if the future
// already settled, otherwise on the goroutine that settles it.
func (f *Future) Then(fn func(json.RawMessage, error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	reply, err := f.reply, f.err
	f.mu.Unlock()

	fn(reply, err)
}

// Resolve settles the future with reply. It reports false if the future had
// already settled.
func (f *Future) Resolve(reply json.RawMessage) bool {
	return f.settle(reply, nil)
}

// Reject settles the future with err. It reports false if the future had
// already settled.
func (f *Future) Reject(err error) bool {
	return f.settle(nil, err)
}

func (f *Future) settle(reply json.RawMessage, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.reply = reply
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(reply, err)
	}
	return true
}
