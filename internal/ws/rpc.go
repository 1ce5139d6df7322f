package ws

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/middleware"
	"github.com/GriffinCanCode/webterm/internal/monitoring"
	"github.com/GriffinCanCode/webterm/internal/pty"
	"github.com/GriffinCanCode/webterm/internal/render"
	"github.com/GriffinCanCode/webterm/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// rpcSession is the server half of one RPC connection.
type rpcSession struct {
	h    *Handler
	p    *peer
	log  *zap.Logger
	grid geometry.Grid

	mu      sync.Mutex
	session *pty.Session
}

// RPC handles GET /rpc/token/:token.
func (h *Handler) RPC(c *gin.Context) {
	if !h.consumeToken(c) {
		return
	}
	grid, err := gridFromQuery(c)
	if err != nil {
		badGrid(c, err)
		return
	}

	p, ok := h.upgrade(c, monitoring.ProtocolRPC)
	if !ok {
		return
	}
	h.metrics.ConnectionOpened(monitoring.ProtocolRPC)
	defer h.metrics.ConnectionClosed(monitoring.ProtocolRPC)

	s := &rpcSession{
		h:    h,
		p:    p,
		log:  middleware.GetLogger(c).Named("rpc"),
		grid: grid,
	}
	s.serve()
}

func (s *rpcSession) serve() {
	defer s.teardown()

	if err := s.p.writeEnvelope(transport.Envelope{Type: transport.TypeEvent, Event: transport.EventReady}); err != nil {
		s.log.Debug("Sending ready failed", zap.Error(err))
		return
	}

	for {
		_, data, err := s.p.conn.ReadMessage()
		if err != nil {
			s.log.Debug("RPC session closed by peer", zap.Error(err))
			return
		}

		env, err := transport.Decode(data)
		if err != nil {
			s.log.Warn("Dropping malformed frame", zap.Error(err))
			continue
		}
		s.h.metrics.RecordMessage(monitoring.DirectionIn, monitoring.ProtocolRPC, env.Event)

		switch env.Type {
		case transport.TypeCall:
			s.handleCall(env)
		case transport.TypeEvent:
			s.handleEvent(env)
		default:
			s.log.Debug("Ignoring frame", zap.String("type", env.Type))
		}
	}
}

func (s *rpcSession) handleCall(env transport.Envelope) {
	switch env.Event {
	case transport.EventStart:
		s.start(env.Marker)
	default:
		s.replyError(env, "unknown call "+env.Event)
	}
}

func (s *rpcSession) handleEvent(env transport.Envelope) {
	switch env.Event {
	case transport.EventEnter:
		input, err := transport.DecodeString(env.Payload)
		if err != nil {
			s.log.Warn("Dropping malformed enter event", zap.Error(err))
			return
		}

		s.mu.Lock()
		sess := s.session
		s.mu.Unlock()

		if sess == nil {
			s.log.Warn("Dropping input before start")
			return
		}
		if err := sess.Write([]byte(input)); err != nil {
			s.log.Debug("Writing input failed", zap.Error(err))
		}
	default:
		s.log.Debug("Ignoring event", zap.String("event", env.Event))
	}
}

// start spawns the shell and replies with the first screen. Output events are
// held back until that reply is on the wire.
func (s *rpcSession) start(marker uint64) {
	began := time.Now()

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		s.replyError(transport.Envelope{Event: transport.EventStart, Marker: marker}, "session already started")
		return
	}

	screen, _ := render.NewScreen(s.grid)
	replied := make(chan struct{})
	sess, err := s.h.manager.Start(pty.StartOptions{
		Grid: s.grid,
		Output: func(chunk []byte) {
			_, _ = screen.Write(chunk)
			<-replied
			s.emitOutput(screen.HTML())
		},
		Exit: func(error) {
			s.p.shutdown(websocket.CloseNormalClosure, "shell exited")
		},
	})
	if err != nil {
		s.mu.Unlock()
		close(replied)
		s.log.Error("Starting shell failed", zap.Error(err))
		s.replyError(transport.Envelope{Event: transport.EventStart, Marker: marker}, "shell failed to start")
		return
	}
	s.session = sess
	s.mu.Unlock()

	s.log = s.log.With(zap.Stringer("session", sess.ID))
	defer close(replied)

	payload, err := transport.MarshalPayload(screen.HTML())
	if err != nil {
		s.log.Error("Encoding start reply failed", zap.Error(err))
		return
	}
	if err := s.p.writeEnvelope(transport.Envelope{Type: transport.TypeReply, Marker: marker, Payload: payload}); err != nil {
		s.log.Debug("Sending start reply failed", zap.Error(err))
		return
	}

	s.h.metrics.ObserveStart(time.Since(began))
	s.log.Info("RPC session started", zap.Stringer("grid", s.grid), zap.Duration("elapsed", time.Since(began)))
}

func (s *rpcSession) emitOutput(html string) {
	payload, err := transport.MarshalPayload(html)
	if err != nil {
		s.log.Error("Encoding output failed", zap.Error(err))
		return
	}
	err = s.p.writeEnvelope(transport.Envelope{
		Type:    transport.TypeEvent,
		Event:   transport.EventOutput,
		Payload: payload,
	})
	if err != nil {
		s.log.Debug("Dropping output event", zap.Error(err))
	}
}

func (s *rpcSession) replyError(call transport.Envelope, message string) {
	if call.Marker == 0 {
		return
	}
	err := s.p.writeEnvelope(transport.Envelope{
		Type:   transport.TypeReply,
		Event:  call.Event,
		Marker: call.Marker,
		Error:  message,
	})
	if err != nil {
		s.log.Debug("Sending error reply failed", zap.Error(err))
	}
}

func (s *rpcSession) teardown() {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess != nil {
		_ = s.h.manager.Kill(sess.ID)
	}
	s.p.shutdown(websocket.CloseNormalClosure, "")
}
