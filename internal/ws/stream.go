package ws

import (
	"github.com/GriffinCanCode/webterm/internal/middleware"
	"github.com/GriffinCanCode/webterm/internal/monitoring"
	"github.com/GriffinCanCode/webterm/internal/pty"
	"github.com/GriffinCanCode/webterm/internal/render"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Stream handles GET /termsocket.
func (h *Handler) Stream(c *gin.Context) {
	grid, err := gridFromQuery(c)
	if err != nil {
		badGrid(c, err)
		return
	}

	p, ok := h.upgrade(c, monitoring.ProtocolStream)
	if !ok {
		return
	}
	h.metrics.ConnectionOpened(monitoring.ProtocolStream)
	defer h.metrics.ConnectionClosed(monitoring.ProtocolStream)

	log := middleware.GetLogger(c).Named("stream")
	screen, _ := render.NewScreen(grid)

	sess, err := h.manager.Start(pty.StartOptions{
		Grid: grid,
		Output: func(chunk []byte) {
			_, _ = screen.Write(chunk)
			if err := p.write(websocket.TextMessage, []byte(screen.HTML()), "screen"); err != nil {
				log.Debug("Dropping screen update", zap.Error(err))
			}
		},
		Exit: func(error) {
			p.shutdown(websocket.CloseNormalClosure, "shell exited")
		},
	})
	if err != nil {
		log.Error("Starting shell failed", zap.Error(err))
		p.shutdown(websocket.CloseInternalServerErr, "shell failed to start")
		return
	}
	log = log.With(zap.Stringer("session", sess.ID))
	log.Info("Stream session open", zap.Stringer("grid", grid))

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			log.Debug("Stream session closed by peer", zap.Error(err))
			break
		}
		h.metrics.RecordMessage(monitoring.DirectionIn, monitoring.ProtocolStream, "input")
		if err := sess.Write(data); err != nil {
			log.Debug("Writing input failed", zap.Error(err))
			break
		}
	}

	_ = h.manager.Kill(sess.ID)
	p.shutdown(websocket.CloseNormalClosure, "")
}
