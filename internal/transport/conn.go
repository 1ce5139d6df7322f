package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrClosed           = errors.New("transport channel closed")
	ErrNotConnected     = errors.New("transport not connected")
	ErrAlreadyConnected = errors.New("transport already connected")
	ErrPending          = errors.New("reply still pending")
)

const (
	// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second
)

// Conn is the subset of *websocket.Conn the transports rely on.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a channel to endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Conn, error)

// Dial opens a WebSocket connection to endpoint.
func Dial(ctx context.Context, endpoint string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return conn, nil
}

// Option configures a transport.
type Option func(*options)

type options struct {
	dial         DialFunc
	logger       *zap.Logger
	writeTimeout time.Duration
}

func buildOptions(opts []Option) options {
	o := options{
		dial:         Dial,
		logger:       zap.NewNop(),
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDialer replaces the WebSocket dialer, mostly for tests.
func WithDialer(dial DialFunc) Option {
	return func(o *options) {
		if dial != nil {
			o.dial = dial
		}
	}
}

// WithWriteTimeout bounds each frame write. A peer that stops reading fails
// the write instead of blocking the caller.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// closeCause maps a read error to the error reported on close.
// A clean close frame from the remote still ends the session.
func closeCause(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return fmt.Errorf("%w: remote closed the channel", ErrClosed)
	}
	return fmt.Errorf("%w: %v", ErrClosed, err)
}
