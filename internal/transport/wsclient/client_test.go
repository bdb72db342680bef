// internal/transport/wsclient/client_test.go
package wsclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/tamzrod/linkd/internal/transport"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoServer sends a greeting, then echoes every message back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		if err := conn.Write(ctx, websocket.MessageText, []byte("hello")); err != nil {
			return
		}
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func next(t *testing.T, c *Client, typ transport.EventType) transport.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event of type %d", typ)
		}
	}
}

func nextStatus(t *testing.T, c *Client, want transport.Status) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Statuses():
			if ev.Type == transport.EventStatus && ev.Status == want {
				return
			}
		case <-timeout:
			t.Fatalf("no %s status", want)
		}
	}
}

func TestClient_ConnectReceiveSend(t *testing.T) {
	srv := echoServer(t)
	c := New(Options{URL: wsURL(srv), ReconnectInterval: 10 * time.Millisecond}, discard())

	c.Start(context.Background())
	defer func() {
		c.Stop()
		c.Wait()
	}()

	nextStatus(t, c, transport.StatusOpen)
	assert.True(t, c.Connected())

	greeting := next(t, c, transport.EventText)
	assert.Equal(t, "hello", string(greeting.Payload))

	require.NoError(t, c.SendBinary(context.Background(), []byte{0x01, 0x02}))
	echo := next(t, c, transport.EventBinary)
	assert.Equal(t, []byte{0x01, 0x02}, echo.Payload)
}

func TestClient_SendWhenClosed(t *testing.T) {
	c := New(Options{}, discard())
	err := c.SendText(context.Background(), "x")
	assert.ErrorIs(t, err, transport.ErrNotConnected)
}

func TestClient_StopEmitsClosed(t *testing.T) {
	srv := echoServer(t)
	c := New(Options{URL: wsURL(srv), ReconnectInterval: 10 * time.Millisecond}, discard())

	c.Start(context.Background())
	nextStatus(t, c, transport.StatusOpen)

	c.Stop()
	nextStatus(t, c, transport.StatusClosed)
	c.Wait()
	assert.False(t, c.Connected())
}

func TestClient_ReconnectsAfterServerDrop(t *testing.T) {
	drops := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		drops <- struct{}{}
		conn.Close(websocket.StatusGoingAway, "restart")
	}))
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), ReconnectInterval: 10 * time.Millisecond}, discard())
	c.Start(context.Background())
	defer func() {
		c.Stop()
		c.Wait()
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-drops:
		case <-time.After(2 * time.Second):
			t.Fatalf("no reconnect %d", i)
		}
	}
}

func TestClient_ClosedStatusSurvivesTextFlood(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		for i := 0; i < eventBuffer+44; i++ {
			if err := conn.Write(r.Context(), websocket.MessageText, []byte("tick")); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	c := New(Options{URL: wsURL(srv), ReconnectInterval: time.Hour}, discard())
	c.Start(context.Background())
	defer func() {
		c.Stop()
		c.Wait()
	}()

	// nobody drains Events here
	nextStatus(t, c, transport.StatusOpen)
	nextStatus(t, c, transport.StatusClosed)
	assert.False(t, c.Connected())
	assert.Len(t, c.Events(), eventBuffer)
}

func TestClient_SetURL(t *testing.T) {
	c := New(Options{}, discard())
	assert.Equal(t, DefaultURL, c.URL())
	c.SetURL("ws://robot.local/ws")
	assert.Equal(t, "ws://robot.local/ws", c.URL())
}
