package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/transport"
)

type fakeTarget struct{ name string }

type fakeScreen struct {
	target *fakeTarget

	mu    sync.Mutex
	sizes []geometry.PixelSize
}

func (s *fakeScreen) Target() Target { return s.target }

func (s *fakeScreen) Resize(size geometry.PixelSize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, size)
}

func (s *fakeScreen) resizes() []geometry.PixelSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geometry.PixelSize(nil), s.sizes...)
}

type fakeDisplay struct {
	target  Target
	grid    geometry.Grid
	metrics geometry.CellMetrics

	mu      sync.Mutex
	onReady func()
	paints  []string
}

func (d *fakeDisplay) OnReady(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReady = fn
}

func (d *fakeDisplay) CellMetrics() geometry.CellMetrics { return d.metrics }

func (d *fakeDisplay) Paint(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paints = append(d.paints, content)
}

func (d *fakeDisplay) fireReady() {
	d.mu.Lock()
	fn := d.onReady
	d.mu.Unlock()
	fn()
}

func (d *fakeDisplay) painted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paints...)
}

type fakeInput struct {
	target Target

	mu         sync.Mutex
	onProduced func([]byte)
}

func (i *fakeInput) OnProduced(fn func([]byte)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onProduced = fn
}

func (i *fakeInput) produce(data string) {
	i.mu.Lock()
	fn := i.onProduced
	i.mu.Unlock()
	fn([]byte(data))
}

type fakeHost struct {
	metrics geometry.CellMetrics

	screen  *fakeScreen
	display *fakeDisplay
	input   *fakeInput
}

func newFakeHost(metrics geometry.CellMetrics) *fakeHost {
	return &fakeHost{metrics: metrics}
}

func (h *fakeHost) NewScreen() Screen {
	h.screen = &fakeScreen{target: &fakeTarget{name: "container"}}
	return h.screen
}

func (h *fakeHost) NewDisplay(target Target, grid geometry.Grid) Display {
	h.display = &fakeDisplay{target: target, grid: grid, metrics: h.metrics}
	return h.display
}

func (h *fakeHost) NewInput(target Target) Input {
	h.input = &fakeInput{target: target}
	return h.input
}

// fakeStream records sends and lets the test inject frames and drops.
type fakeStream struct {
	connectErr error

	mu        sync.Mutex
	connected bool
	closed    bool
	sent      [][]byte
	onMessage func([]byte)
	onClose   func(error)
}

func (s *fakeStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return s.connectErr
	}
	if s.closed {
		return transport.ErrClosed
	}
	s.connected = true
	return nil
}

func (s *fakeStream) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	if !s.connected {
		return transport.ErrNotConnected
	}
	s.sent = append(s.sent, append([]byte(nil), payload...))
	return nil
}

func (s *fakeStream) OnMessage(fn func([]byte)) { s.onMessage = fn }
func (s *fakeStream) OnClose(fn func(error))    { s.onClose = fn }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	fn := s.onClose
	s.mu.Unlock()
	if fn != nil {
		fn(nil)
	}
	return nil
}

func (s *fakeStream) deliver(frame string) { s.onMessage([]byte(frame)) }

func (s *fakeStream) drop(cause error) {
	s.mu.Lock()
	s.closed = true
	fn := s.onClose
	s.mu.Unlock()
	fn(cause)
}

func (s *fakeStream) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) sends() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, p := range s.sent {
		out[i] = string(p)
	}
	return out
}

type emitted struct {
	event   string
	payload any
}

type forced struct {
	ctx    context.Context
	event  string
	future *transport.Future
}

// fakeRPC records emits and calls; the test settles call futures directly.
type fakeRPC struct {
	connectErr error

	mu        sync.Mutex
	connected bool
	closed    bool
	emits     []emitted
	calls     []forced
	onReady   func()
	handlers  map[string][]func(json.RawMessage)
	onClose   func(error)
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{handlers: make(map[string][]func(json.RawMessage))}
}

func (r *fakeRPC) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connectErr != nil {
		return r.connectErr
	}
	if r.closed {
		return transport.ErrClosed
	}
	r.connected = true
	return nil
}

func (r *fakeRPC) OnReady(fn func()) { r.onReady = fn }

func (r *fakeRPC) On(event string, fn func(json.RawMessage)) {
	r.handlers[event] = append(r.handlers[event], fn)
}

func (r *fakeRPC) OnClose(fn func(error)) { r.onClose = fn }

func (r *fakeRPC) Emit(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return transport.ErrClosed
	}
	r.emits = append(r.emits, emitted{event: event, payload: payload})
	return nil
}

func (r *fakeRPC) EmitForce(ctx context.Context, event string, payload any) *transport.Future {
	f := transport.NewFuture()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		f.Reject(transport.ErrClosed)
		return f
	}
	r.calls = append(r.calls, forced{ctx: ctx, event: event, future: f})
	r.mu.Unlock()
	return f
}

func (r *fakeRPC) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	r.shutdown(nil)
	return nil
}

// shutdown mirrors the real transport: pending calls are rejected before
// the close callback runs.
func (r *fakeRPC) shutdown(cause error) {
	r.mu.Lock()
	r.closed = true
	calls := r.calls
	fn := r.onClose
	r.mu.Unlock()

	for _, call := range calls {
		call.future.Reject(fmt.Errorf("call %s: %w", call.event, transport.ErrClosed))
	}
	if fn != nil {
		fn(cause)
	}
}

func (r *fakeRPC) fireReady() { r.onReady() }

func (r *fakeRPC) fireEvent(event string, payload string) {
	raw, _ := json.Marshal(payload)
	for _, h := range r.handlers[event] {
		h(raw)
	}
}

func (r *fakeRPC) isConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *fakeRPC) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *fakeRPC) forcedCalls() []forced {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]forced(nil), r.calls...)
}

func (r *fakeRPC) enters() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.emits {
		if e.event == transport.EventEnter {
			out = append(out, e.payload.(string))
		}
	}
	return out
}
