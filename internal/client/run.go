package client

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/webterm/internal/config"
	"github.com/GriffinCanCode/webterm/internal/content"
	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/session"
	"github.com/GriffinCanCode/webterm/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Host is a session host that can end the session on its own, for example
// when the user detaches.
type Host interface {
	session.Host
	Done() <-chan struct{}
}

// Run connects host to the server described by cfg and blocks until the
// session ends, the host is done or ctx is cancelled. It returns the
// session's terminal error, nil after a clean close.
func Run(ctx context.Context, cfg config.ClientConfig, host Host, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("client")

	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	grid, err := geometry.NewGrid(cfg.Rows, cfg.Cols)
	if err != nil {
		return err
	}
	policy, err := content.Parse(cfg.Content)
	if err != nil {
		return err
	}

	var token string
	if mode == session.ModeRPC {
		issued, err := RequestToken(ctx, cfg.URL)
		if err != nil {
			return err
		}
		token = issued.Token
	}
	endpoint, err := Endpoint(cfg.URL, mode, grid, token)
	if err != nil {
		return err
	}

	var binding session.Binding
	switch mode {
	case session.ModeStream:
		binding = session.Stream(transport.NewStream(endpoint, transport.WithLogger(logger)))
	case session.ModeRPC:
		binding = session.RPC(transport.NewRPC(endpoint, transport.WithLogger(logger)))
	}

	ctrl, err := session.New(ctx, host, session.Config{
		Grid:             grid,
		Transport:        binding,
		Content:          policy,
		HandshakeTimeout: cfg.HandshakeTimeout.Std(),
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log.Info("Session connecting", zap.Stringer("mode", mode), zap.Stringer("grid", grid))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctrl.Done()
		return ctrl.Err()
	})
	g.Go(func() error {
		select {
		case <-ctrl.Done():
			return nil
		case <-host.Done():
			log.Info("Host detached")
		case <-gctx.Done():
		}
		return ctrl.Close()
	})

	err = g.Wait()
	log.Info("Session ended", zap.Stringer("state", ctrl.State()), zap.Error(err))
	return err
}
