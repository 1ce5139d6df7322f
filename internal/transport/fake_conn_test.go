package transport

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type frame struct {
	messageType int
	data        []byte
}

// fakeConn is an in-memory Conn. Frames pushed by the test are returned by
// ReadMessage; frames written by the transport are recorded.
type fakeConn struct {
	inbound chan frame

	mu       sync.Mutex
	written  []frame
	writeErr error
	readErr  error
	// stalled writes block until the write deadline passes.
	stalled  bool
	deadline time.Time

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan frame, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.inbound:
		return f.messageType, f.data, nil
	case <-c.closed:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.readErr != nil {
			return 0, nil, c.readErr
		}
		return 0, nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	if c.stalled {
		deadline := c.deadline
		c.mu.Unlock()
		if deadline.IsZero() {
			return errors.New("write without deadline")
		}
		time.Sleep(time.Until(deadline))
		return os.ErrDeadlineExceeded
	}
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, frame{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(messageType int, data string) {
	c.inbound <- frame{messageType: messageType, data: []byte(data)}
}

func (c *fakeConn) pushEnvelope(t *testing.T, env Envelope) {
	t.Helper()
	data, err := Encode(env)
	require.NoError(t, err)
	c.push(websocket.TextMessage, string(data))
}

// drop simulates the remote side going away.
func (c *fakeConn) drop(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
	c.Close()
}

func (c *fakeConn) frames() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.written...)
}

func (c *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	var out []Envelope
	for _, f := range c.frames() {
		env, err := Decode(f.data)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func dialerFor(conn Conn) Option {
	return WithDialer(func(ctx context.Context, endpoint string) (Conn, error) {
		return conn, nil
	})
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
