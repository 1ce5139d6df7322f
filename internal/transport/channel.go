package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// channel holds the connection lifecycle shared by both transports.
type channel struct {
	endpoint string
	opts     options
	log      *zap.Logger

	mu      sync.Mutex
	conn    Conn
	closed  bool
	err     error
	onClose func(error)

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newChannel(endpoint, name string, opts []Option) channel {
	o := buildOptions(opts)
	return channel{
		endpoint: endpoint,
		opts:     o,
		log:      o.logger.Named(name).With(zap.String("endpoint", endpoint)),
		done:     make(chan struct{}),
	}
}

// OnClose registers the callback invoked once when the channel closes. The
// cause is nil for a local Close.
func (c *channel) OnClose(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// Done is closed once the channel is closed.
func (c *channel) Done() <-chan struct{} {
	return c.done
}

// Err returns the close cause, nil while open or after a local Close.
func (c *channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *channel) dial(ctx context.Context) (Conn, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.conn != nil:
		c.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	c.mu.Unlock()

	c.log.Debug("Dialing")
	conn, err := c.opts.dial(ctx, c.endpoint)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info("Channel open")
	return conn, nil
}

func (c *channel) current() (Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *channel) write(conn Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// shutdown closes the channel once. settle runs after the channel is marked
// closed and before Done is closed or OnClose is called. Both run outside the
// once so they may call Close again.
func (c *channel) shutdown(cause error, settle func(error)) {
	var (
		first   bool
		conn    Conn
		onClose func(error)
	)
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		c.err = cause
		conn = c.conn
		onClose = c.onClose
		first = true
	})
	if !first {
		return
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.log.Debug("Closing connection", zap.Error(err))
		}
	}
	if settle != nil {
		settle(cause)
	}
	close(c.done)

	if cause != nil {
		c.log.Warn("Channel closed", zap.Error(cause))
	} else {
		c.log.Info("Channel closed")
	}
	if onClose != nil {
		onClose(cause)
	}
}
