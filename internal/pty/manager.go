package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/shared/id"
	"github.com/creack/pty"
	"go.uber.org/zap"
)

const readBufferSize = 4096

// Config holds the defaults applied to every session.
type Config struct {
	Shell      string
	WorkingDir string
	Term       string
	Env        map[string]string
}

// StartOptions describes one session.
type StartOptions struct {
	Grid geometry.Grid
	// Output receives every chunk read from the PTY, in order, on the
	// session's reader goroutine. The slice is not reused.
	Output func(chunk []byte)
	// Exit runs once after the shell exited and Output saw the last chunk.
	Exit func(err error)
}

// Manager manages shell sessions.
type Manager struct {
	cfg      Config
	log      *zap.Logger
	sessions sync.Map // map[id.SessionID]*Session
	active   atomic.Int64
}

// NewManager creates a session manager.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if cfg.Shell == "" {
		cfg.Shell = os.Getenv("SHELL")
		if cfg.Shell == "" {
			cfg.Shell = "/bin/sh"
		}
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = os.Getenv("HOME")
		if cfg.WorkingDir == "" {
			cfg.WorkingDir = os.TempDir()
		}
	}
	if cfg.Term == "" {
		cfg.Term = "dumb"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, log: logger.Named("pty")}
}

// Start spawns a shell behind a new PTY.
func (m *Manager) Start(opts StartOptions) (*Session, error) {
	grid := opts.Grid
	if grid.IsZero() {
		grid = geometry.DefaultGrid
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	cmd := exec.Command(m.cfg.Shell)
	cmd.Dir = m.cfg.WorkingDir
	cmd.Env = m.environ()

	ptmx, err := pty.StartWithSize(cmd, winsize(grid))
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	s := &Session{
		ID:         id.NewSessionID(),
		Shell:      m.cfg.Shell,
		WorkingDir: m.cfg.WorkingDir,
		StartedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		done:       make(chan struct{}),
		grid:       grid,
	}

	m.sessions.Store(s.ID, s)
	m.active.Add(1)
	m.log.Info("Session started",
		zap.Stringer("session", s.ID),
		zap.String("shell", s.Shell),
		zap.Stringer("grid", grid),
		zap.Int("pid", cmd.Process.Pid),
	)

	go m.run(s, opts)
	return s, nil
}

// run pumps output until the PTY closes, then reaps the shell.
func (m *Manager) run(s *Session, opts StartOptions) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 && opts.Output != nil {
			opts.Output(slices.Clone(buf[:n]))
		}
		if err != nil {
			if !isEndOfOutput(err) {
				m.log.Debug("Reading pty", zap.Stringer("session", s.ID), zap.Error(err))
			}
			break
		}
	}

	waitErr := s.cmd.Wait()

	s.mu.Lock()
	s.closed = true
	s.err = waitErr
	s.mu.Unlock()
	_ = s.ptmx.Close()

	m.sessions.Delete(s.ID)
	m.active.Add(-1)
	m.log.Info("Session exited", zap.Stringer("session", s.ID), zap.NamedError("exit", waitErr))

	close(s.done)
	if opts.Exit != nil {
		opts.Exit(waitErr)
	}
}

// isEndOfOutput reports whether err is the normal end of a PTY stream. Linux
// reports EIO once the shell side has closed.
func isEndOfOutput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}

func (m *Manager) environ() []string {
	env := os.Environ()
	env = append(env, "TERM="+m.cfg.Term)
	keys := make([]string, 0, len(m.cfg.Env))
	for key := range m.cfg.Env {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		env = append(env, key+"="+m.cfg.Env[key])
	}
	return env
}

// Get returns a live session.
func (m *Manager) Get(sessionID id.SessionID) (*Session, error) {
	value, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return value.(*Session), nil
}

// Write sends input to a session.
func (m *Manager) Write(sessionID id.SessionID, input []byte) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return s.Write(input)
}

// Resize changes a session's terminal dimensions.
func (m *Manager) Resize(sessionID id.SessionID, grid geometry.Grid) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return s.Resize(grid)
}

// Kill terminates a session. Killing a session that already exited is not an
// error.
func (m *Manager) Kill(sessionID id.SessionID) error {
	s, err := m.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if s.kill() {
		m.log.Debug("Session killed", zap.Stringer("session", sessionID))
	}
	return nil
}

// List returns all sessions ordered by start time.
func (m *Manager) List() []Info {
	var infos []Info
	m.sessions.Range(func(_, value any) bool {
		infos = append(infos, value.(*Session).Info())
		return true
	})
	slices.SortFunc(infos, func(a, b Info) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return infos
}

// Active returns the number of running sessions.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// Close kills every session.
func (m *Manager) Close() {
	m.sessions.Range(func(key, _ any) bool {
		_ = m.Kill(key.(id.SessionID))
		return true
	})
}
