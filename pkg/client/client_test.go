package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/bidriver/pkg/config"
	"github.com/odvcencio/bidriver/pkg/inspector"
	"github.com/odvcencio/bidriver/pkg/locate"
)

// protocolServer is a scripted remote end: it answers every command with a
// success frame and can push events at the client.
type protocolServer struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	ws      *websocket.Conn
	ready   chan struct{}
	methods []string
}

func newProtocolServer(t *testing.T) *protocolServer {
	t.Helper()
	ps := &protocolServer{t: t, ready: make(chan struct{})}
	upgrader := websocket.Upgrader{}

	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ps.mu.Lock()
		ps.ws = ws
		ps.mu.Unlock()
		close(ps.ready)

		for {
			var cmd struct {
				ID     uint64 `json:"id"`
				Method string `json:"method"`
			}
			if err := ws.ReadJSON(&cmd); err != nil {
				return
			}
			ps.mu.Lock()
			ps.methods = append(ps.methods, cmd.Method)
			ps.mu.Unlock()
			frame := map[string]any{"type": "success", "id": cmd.ID, "result": json.RawMessage(`{}`)}
			if err := ps.writeJSON(frame); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *protocolServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func (ps *protocolServer) writeJSON(v any) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.ws.WriteJSON(v)
}

func (ps *protocolServer) pushEvent(method string, params any) {
	select {
	case <-ps.ready:
	case <-time.After(2 * time.Second):
		ps.t.Fatal("no client connection")
	}
	if err := ps.writeJSON(map[string]any{"type": "event", "method": method, "params": params}); err != nil {
		ps.t.Errorf("push event: %v", err)
	}
}

func (ps *protocolServer) seenMethods() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]string(nil), ps.methods...)
}

func testConfig(endpoint string) config.Config {
	cfg := config.DefaultConfig()
	cfg.Endpoint = endpoint
	return cfg
}

func TestConnect_InvalidConfig(t *testing.T) {
	_, err := Connect(context.Background(), config.Config{Endpoint: "http://nope"})
	require.Error(t, err)
}

func TestClient_EndToEnd(t *testing.T) {
	server := newProtocolServer(t)
	ctx := context.Background()

	c, err := Connect(ctx, testConfig(server.url()))
	require.NoError(t, err)

	entries := make(chan inspector.LogEntry, 1)
	require.NoError(t, c.Log.OnConsoleEntry(ctx, func(entry inspector.LogEntry) {
		entries <- entry
	}))

	server.pushEvent("log.entryAdded", map[string]any{
		"type":      "console",
		"level":     "info",
		"text":      "booted",
		"timestamp": 1700000000000,
		"method":    "log",
		"source":    map[string]any{"realm": "r-1", "context": "ctx-1"},
	})

	select {
	case entry := <-entries:
		assert.Equal(t, "booted", entry.Text)
		assert.Equal(t, inspector.LevelInfo, entry.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for log entry")
	}

	nodes, err := c.Finder.LocateNodes(ctx, "ctx-1", locate.CSS("body"), nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	require.NoError(t, c.Close(ctx))
	methods := server.seenMethods()
	assert.Contains(t, methods, "session.subscribe")
	assert.Contains(t, methods, "session.unsubscribe")
	assert.Contains(t, methods, "browsingContext.locateNodes")
}

func TestClient_ConcurrentCommands(t *testing.T) {
	server := newProtocolServer(t)
	ctx := context.Background()

	c, err := Connect(ctx, testConfig(server.url()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	// Commands from many goroutines share one connection; each response
	// must land with its own caller.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := c.Finder.LocateNodes(gctx, "ctx-1", locate.CSS("li"), nil)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 16, countMethod(server.seenMethods(), "browsingContext.locateNodes"))
}

func countMethod(methods []string, want string) int {
	n := 0
	for _, m := range methods {
		if m == want {
			n++
		}
	}
	return n
}
