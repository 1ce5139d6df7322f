package ws

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/webterm/internal/monitoring"
	"github.com/GriffinCanCode/webterm/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// peer serializes writes to one WebSocket connection.
type peer struct {
	conn     *websocket.Conn
	protocol string
	metrics  *monitoring.Metrics

	writeMu sync.Mutex
	closed  bool
}

func newPeer(conn *websocket.Conn, protocol string, metrics *monitoring.Metrics) *peer {
	conn.SetReadLimit(maxMessageSize)
	return &peer{conn: conn, protocol: protocol, metrics: metrics}
}

func (p *peer) write(messageType int, data []byte, kind string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.closed {
		return transport.ErrClosed
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	p.metrics.RecordMessage(monitoring.DirectionOut, p.protocol, kind)
	return nil
}

func (p *peer) writeEnvelope(env transport.Envelope) error {
	data, err := transport.Encode(env)
	if err != nil {
		return err
	}
	kind := env.Type
	if env.Event != "" {
		kind = env.Event
	}
	return p.write(websocket.TextMessage, data, kind)
}

// shutdown sends a close frame and closes the connection. It is safe to call
// more than once.
func (p *peer) shutdown(code int, reason string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	msg := websocket.FormatCloseMessage(code, reason)
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = p.conn.Close()
}
