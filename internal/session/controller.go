package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/webterm/internal/content"
	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/transport"
	"go.uber.org/zap"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultInputQueueLimit  = 1024
)

// Config is the constructor-time configuration of a controller.
type Config struct {
	// Grid defaults to 24x80 when left zero.
	Grid      geometry.Grid
	Transport Binding
	// Content defaults to content.Trusted.
	Content content.Policy
	// HandshakeTimeout bounds the start call of the RPC variant.
	HandshakeTimeout time.Duration
	// InputQueueLimit caps the input chunks held before the session is
	// interactive.
	InputQueueLimit int
	Logger          *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Grid.IsZero() {
		c.Grid = geometry.DefaultGrid
	}
	if c.Content == nil {
		c.Content = content.Trusted()
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.InputQueueLimit <= 0 {
		c.InputQueueLimit = DefaultInputQueueLimit
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Controller orchestrates one terminal session.
type Controller struct {
	cfg    Config
	log    *zap.Logger
	mode   Mode
	stream StreamTransport
	rpc    RPCTransport

	screen  Screen
	display Display
	input   Input

	lifetime context.Context
	stop     context.CancelFunc
	done     chan struct{}

	// mu serializes every callback. Transports must not call back into the
	// controller synchronously from Send, Emit or EmitForce.
	mu          sync.Mutex
	state       State
	fitted      bool
	remoteReady bool
	startIssued bool
	queue       [][]byte
	err         error
}

// New builds the collaborators from host, wires them to the configured
// transport and starts connecting. ctx bounds the controller's lifetime;
// cancelling it is equivalent to Close.
func New(ctx context.Context, host Host, cfg Config) (*Controller, error) {
	if host == nil {
		return nil, ErrNoHost
	}
	if !cfg.Transport.valid() {
		return nil, ErrNoTransport
	}
	cfg = cfg.withDefaults()
	if err := cfg.Grid.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:    cfg,
		mode:   cfg.Transport.mode,
		stream: cfg.Transport.stream,
		rpc:    cfg.Transport.rpc,
		done:   make(chan struct{}),
		state:  StateDisconnected,
	}
	c.log = cfg.Logger.Named("session").With(
		zap.Stringer("mode", c.mode),
		zap.Stringer("grid", cfg.Grid),
	)
	c.lifetime, c.stop = context.WithCancel(ctx)

	c.screen = host.NewScreen()
	c.display = host.NewDisplay(c.screen.Target(), cfg.Grid)
	c.display.OnReady(c.handleDisplayReady)
	c.input = host.NewInput(c.screen.Target())

	switch c.mode {
	case ModeStream:
		c.stream.OnMessage(c.handleStreamMessage)
		c.stream.OnClose(c.handleTransportClose)
	case ModeRPC:
		c.rpc.OnReady(c.handleRemoteReady)
		c.rpc.On(transport.EventOutput, c.handleOutputEvent)
		c.rpc.OnClose(c.handleTransportClose)
	}
	c.input.OnProduced(c.handleInput)

	c.mu.Lock()
	if c.state == StateDisconnected {
		c.state = StateConnecting
	}
	c.mu.Unlock()

	context.AfterFunc(c.lifetime, func() { c.Close() })
	go c.connect()

	c.log.Debug("Session created")
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the transport variant.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Grid returns the configured grid.
func (c *Controller) Grid() geometry.Grid {
	return c.cfg.Grid
}

// Done is closed once the controller reaches StateClosed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal error. It is nil while the session runs and after
// a caller-initiated Close.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the session down. It is safe to call more than once.
func (c *Controller) Close() error {
	c.finish(nil)
	return nil
}

func (c *Controller) connect() {
	var err error
	switch c.mode {
	case ModeStream:
		err = c.stream.Connect(c.lifetime)
	case ModeRPC:
		err = c.rpc.Connect(c.lifetime)
	}
	if err != nil {
		c.finish(fmt.Errorf("%w: %w", ErrConnection, err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}
	c.log.Info("Channel open")

	// The RPC variant stays in Connecting until the remote reports ready.
	if c.mode == ModeStream {
		c.becomeInteractiveLocked()
	}
}

func (c *Controller) handleDisplayReady() {
	c.mu.Lock()
	if c.fitted || c.state == StateClosed {
		c.mu.Unlock()
		return
	}

	metrics := c.display.CellMetrics()
	if err := metrics.Validate(); err != nil {
		c.mu.Unlock()
		c.finish(fmt.Errorf("fit screen: %w", err))
		return
	}

	size := geometry.Fit(c.cfg.Grid, metrics)
	c.screen.Resize(size)
	c.fitted = true
	c.log.Debug("Screen fitted", zap.Stringer("size", size))

	start := c.claimStartLocked()
	c.mu.Unlock()

	if start {
		c.issueStart()
	}
}

func (c *Controller) handleRemoteReady() {
	c.mu.Lock()
	if c.state == StateClosed || c.remoteReady {
		c.mu.Unlock()
		return
	}
	c.remoteReady = true
	c.state = StateAwaitingStart
	c.log.Debug("Remote ready")

	start := c.claimStartLocked()
	c.mu.Unlock()

	if start {
		c.issueStart()
	}
}

// claimStartLocked reports whether the caller must issue the start call: the
// remote is ready, the screen is fitted and no start was issued yet.
func (c *Controller) claimStartLocked() bool {
	if c.mode != ModeRPC || !c.fitted || !c.remoteReady || c.startIssued {
		return false
	}
	if c.state == StateClosed {
		return false
	}
	c.startIssued = true
	return true
}

func (c *Controller) issueStart() {
	ctx, cancel := context.WithTimeout(c.lifetime, c.cfg.HandshakeTimeout)
	started := time.Now()

	c.log.Debug("Issuing start")
	c.rpc.EmitForce(ctx, transport.EventStart, nil).Then(func(reply json.RawMessage, err error) {
		cancel()
		c.handleStartReply(reply, err, time.Since(started))
	})
}

func (c *Controller) handleStartReply(reply json.RawMessage, err error, elapsed time.Duration) {
	if err != nil {
		c.finish(fmt.Errorf("%w: %w", ErrHandshake, err))
		return
	}

	initial, err := transport.DecodeString(reply)
	if err != nil {
		c.finish(fmt.Errorf("%w: start reply: %w", ErrHandshake, err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}
	c.paintLocked(initial)
	c.log.Info("Session started", zap.Duration("elapsed", elapsed))
	c.becomeInteractiveLocked()
}

func (c *Controller) becomeInteractiveLocked() {
	c.state = StateInteractive

	queued := c.queue
	c.queue = nil
	if len(queued) > 0 {
		c.log.Debug("Flushing queued input", zap.Int("chunks", len(queued)))
	}
	for _, data := range queued {
		c.sendLocked(data)
	}
}

func (c *Controller) handleInput(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateInteractive:
		c.sendLocked(data)
	case StateClosed:
		c.log.Debug("Dropping input after close", zap.Int("bytes", len(data)))
	default:
		if len(c.queue) >= c.cfg.InputQueueLimit {
			c.log.Warn("Input queue full, dropping input",
				zap.Int("limit", c.cfg.InputQueueLimit),
				zap.Int("bytes", len(data)),
			)
			return
		}
		c.queue = append(c.queue, append([]byte(nil), data...))
	}
}

func (c *Controller) sendLocked(data []byte) {
	var err error
	switch c.mode {
	case ModeStream:
		err = c.stream.Send(data)
	case ModeRPC:
		err = c.rpc.Emit(transport.EventEnter, string(data))
	}
	if err != nil {
		// A failing channel reports itself through OnClose.
		c.log.Warn("Sending input failed", zap.Error(err))
	}
}

func (c *Controller) handleStreamMessage(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}
	c.paintLocked(string(payload))
}

func (c *Controller) handleOutputEvent(payload json.RawMessage) {
	output, err := transport.DecodeString(payload)
	if err != nil {
		c.log.Warn("Dropping malformed output event", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInteractive {
		c.log.Debug("Dropping output before start completed", zap.Stringer("state", c.state))
		return
	}
	c.paintLocked(output)
}

func (c *Controller) paintLocked(raw string) {
	c.display.Paint(c.cfg.Content.Prepare(raw))
}

func (c *Controller) handleTransportClose(cause error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state == StateClosed {
		return
	}
	if cause == nil {
		cause = transport.ErrClosed
	}

	switch state {
	case StateInteractive:
		c.finish(fmt.Errorf("%w: %w", ErrChannelClosed, cause))
	case StateAwaitingStart:
		c.finish(fmt.Errorf("%w: %w", ErrHandshake, cause))
	default:
		c.finish(fmt.Errorf("%w: %w", ErrConnection, cause))
	}
}

// finish moves the controller to StateClosed once, records err and releases
// the transport.
func (c *Controller) finish(err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = StateClosed
	c.err = err
	dropped := len(c.queue)
	c.queue = nil
	c.mu.Unlock()

	if err != nil {
		c.log.Error("Session failed",
			zap.Stringer("state", prev),
			zap.Int("dropped_input", dropped),
			zap.Error(err),
		)
	} else {
		c.log.Info("Session closed", zap.Stringer("state", prev))
	}

	var closeErr error
	switch c.mode {
	case ModeStream:
		closeErr = c.stream.Close()
	case ModeRPC:
		closeErr = c.rpc.Close()
	}
	if closeErr != nil {
		c.log.Debug("Closing transport", zap.Error(closeErr))
	}

	c.stop()
	close(c.done)
}
