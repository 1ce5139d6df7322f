package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSendWritesOneFramePerCall(t *testing.T) {
	conn := newFakeConn()
	s := NewStream("ws://test/termsocket", dialerFor(conn))
	require.NoError(t, s.Connect(context.Background()))
	defer s.Close()

	payloads := [][]byte{
		[]byte("ls\n"),
		[]byte("\x1b[A"),
		{0xff, 0xfe, 0x00},
	}
	for _, p := range payloads {
		require.NoError(t, s.Send(p))
	}

	frames := conn.frames()
	require.Len(t, frames, len(payloads))
	for i, f := range frames {
		assert.Equal(t, payloads[i], f.data)
	}
	assert.Equal(t, websocket.TextMessage, frames[0].messageType)
	assert.Equal(t, websocket.BinaryMessage, frames[2].messageType)
}

func TestStreamDeliversFramesInOrder(t *testing.T) {
	conn := newFakeConn()
	s := NewStream("ws://test/termsocket", dialerFor(conn))
	defer s.Close()

	got := make(chan string, 8)
	s.OnMessage(func(p []byte) { got <- string(p) })
	require.NoError(t, s.Connect(context.Background()))

	want := []string{"<span>hi</span>", "<span>there</span>", ""}
	for _, w := range want {
		conn.push(websocket.TextMessage, w)
	}

	for _, w := range want {
		select {
		case p := <-got:
			assert.Equal(t, w, p)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

func TestStreamSendStates(t *testing.T) {
	conn := newFakeConn()
	s := NewStream("ws://test", dialerFor(conn))

	assert.ErrorIs(t, s.Send([]byte("early")), ErrNotConnected)

	require.NoError(t, s.Connect(context.Background()))
	assert.ErrorIs(t, s.Connect(context.Background()), ErrAlreadyConnected)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send([]byte("late")), ErrClosed)
	assert.NoError(t, s.Err())
}

func TestStreamRemoteDropReportsCause(t *testing.T) {
	conn := newFakeConn()
	s := NewStream("ws://test", dialerFor(conn))

	causes := make(chan error, 1)
	s.OnClose(func(err error) { causes <- err })
	require.NoError(t, s.Connect(context.Background()))

	conn.drop(errors.New("connection reset by peer"))
	waitClosed(t, s.Done(), "stream close")

	err := <-causes
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorContains(t, err, "connection reset by peer")
}

func TestStreamCloseFromCloseCallback(t *testing.T) {
	conn := newFakeConn()
	s := NewStream("ws://test/termsocket", dialerFor(conn))

	notified := make(chan error, 1)
	s.OnClose(func(cause error) {
		assert.NoError(t, s.Close())
		notified <- cause
	})
	require.NoError(t, s.Connect(context.Background()))

	conn.drop(errors.New("connection reset"))
	waitClosed(t, s.Done(), "transport close")

	select {
	case cause := <-notified:
		assert.ErrorIs(t, cause, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("close callback did not return")
	}
}

func TestStreamWriteTimeout(t *testing.T) {
	conn := newFakeConn()
	s := NewStream("ws://test/termsocket", dialerFor(conn), WithWriteTimeout(50*time.Millisecond))
	require.NoError(t, s.Connect(context.Background()))
	defer s.Close()

	conn.mu.Lock()
	conn.stalled = true
	conn.mu.Unlock()

	sent := make(chan error, 1)
	go func() { sent <- s.Send([]byte("ls\n")) }()

	select {
	case err := <-sent:
		assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked past the write deadline")
	}
}

func TestStreamOverWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte("<span>hi</span>")); err != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
	}))
	defer srv.Close()

	s := NewStream("ws" + strings.TrimPrefix(srv.URL, "http"))
	defer s.Close()

	painted := make(chan string, 1)
	s.OnMessage(func(p []byte) { painted <- string(p) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Send([]byte("ls\n")))

	select {
	case p := <-painted:
		assert.Equal(t, "<span>hi</span>", p)
	case <-ctx.Done():
		t.Fatal("no inbound frame")
	}
	select {
	case p := <-received:
		assert.Equal(t, "ls\n", p)
	case <-ctx.Done():
		t.Fatal("no outbound frame")
	}
}

func TestDialReportsHandshakeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "401")
}
