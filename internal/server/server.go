package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/GriffinCanCode/webterm/internal/config"
	"github.com/GriffinCanCode/webterm/internal/middleware"
	"github.com/GriffinCanCode/webterm/internal/monitoring"
	"github.com/GriffinCanCode/webterm/internal/pty"
	"github.com/GriffinCanCode/webterm/internal/tokens"
	"github.com/GriffinCanCode/webterm/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName     = "webterm"
	serviceVersion  = "0.3.0"
	shutdownTimeout = 10 * time.Second
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	router  *gin.Engine
	manager *pty.Manager
	tokens  *tokens.Registry
	metrics *monitoring.Metrics
}

// New creates a server from configuration.
func New(cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	manager := pty.NewManager(pty.Config{
		Shell:      cfg.Terminal.Shell,
		WorkingDir: cfg.Terminal.WorkingDir,
		Term:       cfg.Terminal.Term,
	}, logger)
	metrics := monitoring.NewMetrics()
	metrics.TrackSessions(manager.Active)

	s := &Server{
		cfg:     cfg,
		log:     logger.Named("server"),
		manager: manager,
		tokens:  tokens.NewRegistry(cfg.Terminal.TokenTTL.Std()),
		metrics: metrics,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()

	cors := middleware.DefaultCORSConfig()
	if len(s.cfg.Server.AllowOrigins) > 0 {
		cors.AllowOrigins = s.cfg.Server.AllowOrigins
	}

	router.Use(
		gin.Recovery(),
		middleware.RequestID(s.log),
		middleware.Logger(),
		monitoring.Middleware(s.metrics),
		middleware.CORS(cors),
	)

	var limited gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if s.cfg.RateLimit.Enabled {
		limited = middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.cfg.RateLimit.RequestsPerSecond,
			Burst:             s.cfg.RateLimit.Burst,
		})
	}

	wsHandler := ws.NewHandler(s.manager, s.tokens, s.metrics, originChecker(s.cfg.Server.AllowOrigins))

	router.GET("/", s.root)
	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Sessions
	router.POST("/sessions", limited, wsHandler.IssueToken)
	router.GET("/sessions", wsHandler.ListSessions)

	// WebSocket
	router.GET("/termsocket", limited, wsHandler.Stream)
	router.GET("/rpc/token/:token", limited, wsHandler.RPC)

	return router
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"sessions":       s.manager.Active(),
		"pending_tokens": s.tokens.Pending(),
		"metrics":        s.metrics.Snapshot(),
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and kills the remaining shells.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown; killing the
	// shells closes them.
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Close kills every running shell.
func (s *Server) Close() {
	s.manager.Close()
}

// originChecker returns nil (accept all) when origins contains "*".
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
