package transport

import (
	"context"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Stream is the raw bidirectional byte-stream transport.
type Stream struct {
	channel

	onMessage func([]byte)
}

// NewStream creates an unconnected stream transport for endpoint.
func NewStream(endpoint string, opts ...Option) *Stream {
	return &Stream{channel: newChannel(endpoint, "stream", opts)}
}

// OnMessage registers the handler called once per inbound frame, in arrival
// order, on the transport's read goroutine.
func (s *Stream) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = fn
}

// Connect opens the channel and starts delivering inbound frames.
func (s *Stream) Connect(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	go s.readLoop(conn)
	return nil
}

// Send writes payload as exactly one frame. Payloads that are not valid
// UTF-8 go out as binary frames so the bytes arrive unchanged.
func (s *Stream) Send(payload []byte) error {
	conn, err := s.current()
	if err != nil {
		return err
	}

	messageType := websocket.TextMessage
	if !utf8.Valid(payload) {
		messageType = websocket.BinaryMessage
	}
	return s.write(conn, messageType, payload)
}

// Close closes the channel. It is safe to call more than once.
func (s *Stream) Close() error {
	s.shutdown(nil, nil)
	return nil
}

func (s *Stream) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.shutdown(closeCause(err), nil)
			return
		}

		s.mu.Lock()
		handler := s.onMessage
		s.mu.Unlock()

		if handler == nil {
			s.log.Debug("Dropping frame without handler", zap.Int("bytes", len(data)))
			continue
		}
		handler(data)
	}
}
