package headless

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/term"
)

const inputBufferSize = 1024

// Input forwards console input. Each read is reported as one produced chunk.
type Input struct {
	in     io.Reader
	escape byte
	log    *zap.Logger
	detach func()

	startOnce sync.Once

	mu    sync.Mutex
	fd    int
	state *term.State
}

func newInput(in io.Reader, escape byte, log *zap.Logger, detach func()) *Input {
	return &Input{in: in, escape: escape, log: log, detach: detach, fd: -1}
}

// OnProduced starts reading and reports every chunk to fn. Only the first
// registration takes effect.
func (i *Input) OnProduced(fn func(data []byte)) {
	i.startOnce.Do(func() {
		i.makeRaw()
		go i.read(fn)
	})
}

func (i *Input) read(fn func([]byte)) {
	defer i.detach()

	buf := make([]byte, inputBufferSize)
	for {
		n, err := i.in.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if at := bytes.IndexByte(chunk, i.escape); at >= 0 {
				if at > 0 {
					fn(bytes.Clone(chunk[:at]))
				}
				i.log.Debug("Escape typed, detaching")
				return
			}
			fn(bytes.Clone(chunk))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				i.log.Warn("Console read failed", zap.Error(err))
			}
			return
		}
	}
}

// makeRaw switches a terminal input into raw mode.
func (i *Input) makeRaw() {
	f, ok := i.in.(*os.File)
	if !ok {
		return
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		i.log.Warn("Raw mode unavailable", zap.Error(err))
		return
	}

	i.mu.Lock()
	i.fd, i.state = fd, state
	i.mu.Unlock()
}

// restore leaves raw mode. It is safe to call more than once.
func (i *Input) restore() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == nil {
		return nil
	}
	err := term.Restore(i.fd, i.state)
	i.state = nil
	return err
}
