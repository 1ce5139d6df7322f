package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/webterm/internal/config"
	"github.com/GriffinCanCode/webterm/internal/headless"
	"github.com/GriffinCanCode/webterm/internal/server"
	"github.com/GriffinCanCode/webterm/internal/session"
	"github.com/GriffinCanCode/webterm/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRequestToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/base/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"token":"tok_1","path":"/rpc/token/tok_1","expires_at":"2026-01-02T03:04:05Z"}`)
	}))
	defer ts.Close()

	// ws base URLs are mapped back to http for the token request.
	token, err := RequestToken(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/base/")
	require.NoError(t, err)
	assert.Equal(t, "tok_1", token.Token)
	assert.Equal(t, "/rpc/token/tok_1", token.Path)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), token.ExpiresAt.UTC())
}

func TestRequestTokenErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"rate limit exceeded"}`, wantErr: "rate limit exceeded"},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: "500"},
		{name: "empty token", status: http.StatusCreated, body: `{}`, wantErr: "empty token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			_, err := RequestToken(context.Background(), ts.URL)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	host := headless.NewHost(headless.Config{In: strings.NewReader(""), Out: io.Discard})

	tests := []struct {
		name   string
		mutate func(*config.ClientConfig)
	}{
		{name: "mode", mutate: func(c *config.ClientConfig) { c.Mode = "telnet" }},
		{name: "grid", mutate: func(c *config.ClientConfig) { c.Rows = 0 }},
		{name: "content", mutate: func(c *config.ClientConfig) { c.Content = "raw" }},
		{name: "url", mutate: func(c *config.ClientConfig) { c.URL = "gopher://x"; c.Mode = "stream" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Client
			tt.mutate(&cfg)
			assert.Error(t, Run(context.Background(), cfg, host, nil))
		})
	}
}

// newShellServer serves /bin/sh sessions for the duration of the test.
func newShellServer(t *testing.T) *httptest.Server {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	cfg := config.Default()
	cfg.Terminal.Shell = "/bin/sh"
	cfg.Terminal.WorkingDir = t.TempDir()
	cfg.RateLimit.Enabled = false
	srv := server.New(cfg, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func TestRunAgainstServer(t *testing.T) {
	for _, mode := range []string{"stream", "rpc"} {
		t.Run(mode, func(t *testing.T) {
			ts := newShellServer(t)

			in, typed := io.Pipe()
			host := headless.NewHost(headless.Config{In: in, Out: io.Discard})

			cfg := config.Default().Client
			cfg.URL = ts.URL
			cfg.Mode = mode
			cfg.Rows, cfg.Cols = 12, 60

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- Run(ctx, cfg, host, zaptest.NewLogger(t)) }()

			// Typed before the session is interactive; queued then flushed.
			_, err := typed.Write([]byte("echo webterm-$((40+2))\n"))
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				display := host.Display()
				if display == nil {
					return false
				}
				for _, line := range display.Lines() {
					if strings.Contains(line, "webterm-42") {
						return true
					}
				}
				return false
			}, 15*time.Second, 20*time.Millisecond)

			// The screen was fitted to 12x60 cells of the default metrics.
			size := host.Screen().Size()
			assert.Equal(t, 60*headless.DefaultCellMetrics.Width, size.Width)
			assert.Equal(t, 12*headless.DefaultCellMetrics.Height, size.Height)

			// Detaching ends the run cleanly.
			_, err = typed.Write([]byte{headless.DefaultEscape})
			require.NoError(t, err)

			select {
			case err := <-errCh:
				assert.NoError(t, err)
			case <-ctx.Done():
				t.Fatal("Run did not return after detach")
			}
		})
	}
}

func TestRunEndsWhenShellExits(t *testing.T) {
	for _, mode := range []string{"stream", "rpc"} {
		t.Run(mode, func(t *testing.T) {
			ts := newShellServer(t)

			in, typed := io.Pipe()
			defer typed.Close()
			host := headless.NewHost(headless.Config{In: in, Out: io.Discard})

			cfg := config.Default().Client
			cfg.URL = ts.URL
			cfg.Mode = mode

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- Run(ctx, cfg, host, zaptest.NewLogger(t)) }()

			_, err := typed.Write([]byte("exit\n"))
			require.NoError(t, err)

			select {
			case err := <-errCh:
				assert.ErrorIs(t, err, session.ErrChannelClosed)
				assert.ErrorIs(t, err, transport.ErrClosed)
			case <-ctx.Done():
				t.Fatal("Run still blocked after the remote shell exited")
			}
		})
	}
}

func TestRunReportsServerLoss(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	// An input that never ends keeps the host attached.
	in, _ := io.Pipe()
	host := headless.NewHost(headless.Config{In: in, Out: io.Discard})
	cfg := config.Default().Client
	cfg.URL = ts.URL
	cfg.Mode = "stream"

	err := Run(context.Background(), cfg, host, nil)
	assert.ErrorIs(t, err, session.ErrConnection)
}
