package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/shared/id"
	"github.com/creack/pty"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session is closed")
)

// Session is one shell running behind a pseudo-terminal.
type Session struct {
	ID         id.SessionID
	Shell      string
	WorkingDir string
	StartedAt  time.Time

	cmd  *exec.Cmd
	ptmx *os.File
	done chan struct{}

	mu     sync.RWMutex
	grid   geometry.Grid
	closed bool
	err    error
}

// Info is the public representation of a session.
type Info struct {
	ID         id.SessionID `json:"id"`
	Shell      string       `json:"shell"`
	WorkingDir string       `json:"working_dir"`
	Rows       int          `json:"rows"`
	Cols       int          `json:"cols"`
	StartedAt  time.Time    `json:"started_at"`
	Active     bool         `json:"active"`
}

// Write sends input to the shell.
func (s *Session) Write(input []byte) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return fmt.Errorf("%w: %s", ErrClosed, s.ID)
	}
	if _, err := s.ptmx.Write(input); err != nil {
		return fmt.Errorf("write %s: %w", s.ID, err)
	}
	return nil
}

// Resize changes the terminal dimensions.
func (s *Session) Resize(grid geometry.Grid) error {
	if err := grid.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: %s", ErrClosed, s.ID)
	}
	if err := pty.Setsize(s.ptmx, winsize(grid)); err != nil {
		return fmt.Errorf("resize %s: %w", s.ID, err)
	}
	s.grid = grid
	return nil
}

// Grid returns the current terminal dimensions.
func (s *Session) Grid() geometry.Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid
}

// Done is closed once the shell has exited and its output is drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the shell's exit error once Done is closed.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		ID:         s.ID,
		Shell:      s.Shell,
		WorkingDir: s.WorkingDir,
		Rows:       s.grid.Rows,
		Cols:       s.grid.Cols,
		StartedAt:  s.StartedAt,
		Active:     !s.closed,
	}
}

// kill terminates the shell. It reports false if the session had already
// closed.
func (s *Session) kill() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.ptmx.Close()
	return true
}

func winsize(grid geometry.Grid) *pty.Winsize {
	return &pty.Winsize{
		Rows: uint16(grid.Rows),
		Cols: uint16(grid.Cols),
	}
}
