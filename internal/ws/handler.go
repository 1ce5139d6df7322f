package ws

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/middleware"
	"github.com/GriffinCanCode/webterm/internal/monitoring"
	"github.com/GriffinCanCode/webterm/internal/pty"
	"github.com/GriffinCanCode/webterm/internal/shared/id"
	"github.com/GriffinCanCode/webterm/internal/tokens"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errBadGrid = errors.New("rows and cols must be positive integers")

// Handler serves terminal WebSocket connections.
type Handler struct {
	manager  *pty.Manager
	tokens   *tokens.Registry
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler. checkOrigin may be nil to accept
// every origin.
func NewHandler(manager *pty.Manager, registry *tokens.Registry, metrics *monitoring.Metrics, checkOrigin func(*http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		manager: manager,
		tokens:  registry,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// IssueToken handles POST /sessions.
func (h *Handler) IssueToken(c *gin.Context) {
	token, expires := h.tokens.Issue()
	h.metrics.TokenIssued()

	middleware.GetLogger(c).Debug("Token issued", zap.Time("expires", expires))
	c.JSON(http.StatusCreated, gin.H{
		"token":      token.String(),
		"path":       "/rpc/token/" + token.String(),
		"expires_at": expires,
	})
}

// ListSessions handles GET /sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions := h.manager.List()
	if sessions == nil {
		sessions = []pty.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// consumeToken redeems the :token path parameter, answering 401 itself when
// the token is refused.
func (h *Handler) consumeToken(c *gin.Context) bool {
	token, err := id.ParseToken(c.Param("token"))
	if err == nil {
		err = h.tokens.Consume(token)
	}
	if err == nil {
		return true
	}

	reason := "unknown"
	switch {
	case errors.Is(err, id.ErrMalformed):
		reason = "malformed"
	case errors.Is(err, tokens.ErrExpired):
		reason = "expired"
	}
	h.metrics.TokenRejected(reason)
	middleware.GetLogger(c).Info("Token refused", zap.String("reason", reason))

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
	return false
}

// gridFromQuery reads the optional rows and cols query values.
func gridFromQuery(c *gin.Context) (geometry.Grid, error) {
	grid := geometry.DefaultGrid

	for _, q := range []struct {
		key string
		dst *int
	}{
		{key: "rows", dst: &grid.Rows},
		{key: "cols", dst: &grid.Cols},
	} {
		raw, ok := c.GetQuery(q.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return geometry.Grid{}, fmt.Errorf("%w: %s=%q", errBadGrid, q.key, raw)
		}
		*q.dst = n
	}

	if err := grid.Validate(); err != nil {
		return geometry.Grid{}, fmt.Errorf("%w: %w", errBadGrid, err)
	}
	return grid, nil
}

func (h *Handler) upgrade(c *gin.Context, protocol string) (*peer, bool) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already answered with an HTTP error.
		middleware.GetLogger(c).Warn("WebSocket upgrade failed", zap.String("protocol", protocol), zap.Error(err))
		return nil, false
	}
	return newPeer(conn, protocol, h.metrics), true
}

func badGrid(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
