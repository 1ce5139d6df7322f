package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type pendingCall struct {
	event  string
	future *Future
}

// RPC is the request/response transport with named events.
type RPC struct {
	channel

	nextMarker uint64
	pending    map[uint64]pendingCall
	handlers   map[string][]func(json.RawMessage)
	onReady    func()
	ready      bool
}

// NewRPC creates an unconnected RPC transport for endpoint.
func NewRPC(endpoint string, opts ...Option) *RPC {
	return &RPC{
		channel:  newChannel(endpoint, "rpc", opts),
		pending:  make(map[uint64]pendingCall),
		handlers: make(map[string][]func(json.RawMessage)),
	}
}

// OnReady registers the one-shot callback fired when the remote confirms the
// session. Registering after ready already fired runs fn immediately.
func (r *RPC) OnReady(fn func()) {
	r.mu.Lock()
	if !r.ready {
		r.onReady = fn
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	fn()
}

// On registers a handler for every later unsolicited event named event.
func (r *RPC) On(event string, fn func(json.RawMessage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], fn)
}

// Connect opens the channel. Readiness is reported separately via OnReady.
func (r *RPC) Connect(ctx context.Context) error {
	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}
	go r.readLoop(conn)
	return nil
}

// Emit sends a fire-and-forget event. Emits are written in call order.
func (r *RPC) Emit(event string, payload any) error {
	conn, err := r.current()
	if err != nil {
		return err
	}

	raw, err := MarshalPayload(payload)
	if err != nil {
		return err
	}
	data, err := Encode(Envelope{Type: TypeEvent, Event: event, Payload: raw})
	if err != nil {
		return err
	}
	return r.write(conn, websocket.TextMessage, data)
}

// EmitForce sends a correlated call and returns the future of its reply. The
// future is rejected if the call cannot be sent, if ctx ends first, or if the
// channel closes before the reply arrives.
func (r *RPC) EmitForce(ctx context.Context, event string, payload any) *Future {
	f := NewFuture()

	raw, err := MarshalPayload(payload)
	if err != nil {
		f.Reject(err)
		return f
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		f.Reject(ErrClosed)
		return f
	}
	if r.conn == nil {
		r.mu.Unlock()
		f.Reject(ErrNotConnected)
		return f
	}
	r.nextMarker++
	marker := r.nextMarker
	r.pending[marker] = pendingCall{event: event, future: f}
	conn := r.conn
	r.mu.Unlock()

	data, err := Encode(Envelope{Type: TypeCall, Event: event, Marker: marker, Payload: raw})
	if err == nil {
		err = r.write(conn, websocket.TextMessage, data)
	}
	if err != nil {
		if r.forget(marker) {
			f.Reject(fmt.Errorf("call %s: %w", event, err))
		}
		return f
	}

	r.log.Debug("Call sent", zap.String("event", event), zap.Uint64("marker", marker))

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				if r.forget(marker) {
					f.Reject(fmt.Errorf("call %s: %w", event, ctx.Err()))
				}
			case <-f.Done():
			}
		}()
	}
	return f
}

// Close closes the channel. The first call rejects every pending future before
// returning; a Close made from a close or rejection callback returns at once.
func (r *RPC) Close() error {
	r.shutdown(nil, r.rejectPending)
	return nil
}

// forget drops a pending marker. It reports whether the marker was pending.
func (r *RPC) forget(marker uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[marker]; !ok {
		return false
	}
	delete(r.pending, marker)
	return true
}

func (r *RPC) rejectPending(cause error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[uint64]pendingCall)
	r.mu.Unlock()

	err := ErrClosed
	if cause != nil {
		err = cause
	}
	for _, marker := range slices.Sorted(maps.Keys(pending)) {
		call := pending[marker]
		call.future.Reject(fmt.Errorf("call %s: %w", call.event, err))
	}
}

func (r *RPC) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.shutdown(closeCause(err), r.rejectPending)
			return
		}

		env, err := Decode(data)
		if err != nil {
			r.log.Warn("Dropping malformed frame", zap.Error(err))
			continue
		}
		r.dispatch(env)
	}
}

func (r *RPC) dispatch(env Envelope) {
	switch env.Type {
	case TypeReply:
		r.mu.Lock()
		call, ok := r.pending[env.Marker]
		delete(r.pending, env.Marker)
		r.mu.Unlock()

		if !ok {
			r.log.Warn("Dropping reply for unknown marker", zap.Uint64("marker", env.Marker))
			return
		}
		if env.Error != "" {
			call.future.Reject(&RemoteError{Event: call.event, Message: env.Error})
			return
		}
		call.future.Resolve(env.Payload)

	case TypeEvent:
		if env.Event == EventReady {
			r.fireReady()
		}

		r.mu.Lock()
		handlers := slices.Clone(r.handlers[env.Event])
		r.mu.Unlock()

		for _, h := range handlers {
			h(env.Payload)
		}

	default:
		r.log.Warn("Dropping unexpected frame", zap.String("type", env.Type))
	}
}

func (r *RPC) fireReady() {
	r.mu.Lock()
	if r.ready {
		r.mu.Unlock()
		r.log.Debug("Ignoring repeated ready")
		return
	}
	r.ready = true
	fn := r.onReady
	r.onReady = nil
	r.mu.Unlock()

	r.log.Info("Remote session ready")
	if fn != nil {
		fn()
	}
}
