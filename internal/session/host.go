package session

import (
	"context"
	"encoding/json"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/transport"
)

// Target is the host's render target handle. The controller hands it from the
// Screen to the Display and Input without looking inside.
type Target any

// Screen owns the outer container.
type Screen interface {
	Target() Target
	Resize(size geometry.PixelSize)
}

// Display owns the character surface.
type Display interface {
	// OnReady registers the callback fired once the cell metrics are
	// measurable.
	OnReady(fn func())
	CellMetrics() geometry.CellMetrics
	// Paint replaces the visible content wholesale.
	Paint(content string)
}

// Input owns keyboard and paste capture.
type Input interface {
	// OnProduced registers the callback fired once per captured input unit.
	OnProduced(fn func(data []byte))
}

// Host creates the collaborators, bound to its container.
type Host interface {
	NewScreen() Screen
	NewDisplay(target Target, grid geometry.Grid) Display
	NewInput(target Target) Input
}

// StreamTransport is the raw byte-stream protocol.
type StreamTransport interface {
	Connect(ctx context.Context) error
	Send(payload []byte) error
	OnMessage(fn func([]byte))
	OnClose(fn func(error))
	Close() error
}

// RPCTransport is the request/response protocol with named events.
type RPCTransport interface {
	Connect(ctx context.Context) error
	OnReady(fn func())
	Emit(event string, payload any) error
	EmitForce(ctx context.Context, event string, payload any) *transport.Future
	On(event string, fn func(json.RawMessage))
	OnClose(fn func(error))
	Close() error
}

// Mode identifies the transport variant.
type Mode int

const (
	ModeStream Mode = iota + 1
	ModeRPC
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRPC:
		return "rpc"
	default:
		return "unknown"
	}
}

// Binding selects the transport a controller uses. Build one with Stream or
// RPC.
type Binding struct {
	mode   Mode
	stream StreamTransport
	rpc    RPCTransport
}

// Stream binds a raw byte-stream transport.
func Stream(t StreamTransport) Binding {
	return Binding{mode: ModeStream, stream: t}
}

// RPC binds a request/response transport.
func RPC(t RPCTransport) Binding {
	return Binding{mode: ModeRPC, rpc: t}
}

// Mode returns the bound variant, zero if unbound.
func (b Binding) Mode() Mode {
	return b.mode
}

func (b Binding) valid() bool {
	switch b.mode {
	case ModeStream:
		return b.stream != nil
	case ModeRPC:
		return b.rpc != nil
	default:
		return false
	}
}
