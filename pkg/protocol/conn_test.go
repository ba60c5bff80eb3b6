package protocol

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
)

// wireCommand mirrors the frames the client writes, from the server side.
type wireCommand struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// newTestConn starts a websocket server running serve on each connection
// and dials it.
func newTestConn(t *testing.T, serve func(ws *websocket.Conn)) *Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serve(ws)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := Dial(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// echoServer responds to every command with a success frame produced by
// respond.
func echoServer(respond func(cmd wireCommand) any) func(ws *websocket.Conn) {
	return func(ws *websocket.Conn) {
		for {
			var cmd wireCommand
			if err := ws.ReadJSON(&cmd); err != nil {
				return
			}
			if err := ws.WriteJSON(respond(cmd)); err != nil {
				return
			}
		}
	}
}

func successFrame(id uint64, result string) map[string]any {
	return map[string]any{
		"type":   "success",
		"id":     id,
		"result": json.RawMessage(result),
	}
}

func TestConn_SendSuccess(t *testing.T) {
	conn := newTestConn(t, echoServer(func(cmd wireCommand) any {
		if cmd.Method != "session.status" {
			t.Errorf("unexpected method %q", cmd.Method)
		}
		return successFrame(cmd.ID, `{"ready":true}`)
	}))

	result, err := conn.Send(context.Background(), "session.status", map[string]any{})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	var status struct {
		Ready bool `json:"ready"`
	}
	if err := json.Unmarshal(result, &status); err != nil {
		t.Fatalf("bad result payload: %v", err)
	}
	if !status.Ready {
		t.Error("expected ready result")
	}
}

func TestConn_SendCommandError(t *testing.T) {
	conn := newTestConn(t, echoServer(func(cmd wireCommand) any {
		return map[string]any{
			"type":    "error",
			"id":      cmd.ID,
			"error":   ErrorCodeNoSuchFrame,
			"message": "context gone",
		}
	}))

	_, err := conn.Send(context.Background(), "browsingContext.locateNodes", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsCode(err, ErrorCodeNoSuchFrame) {
		t.Fatalf("expected no such frame code, got %v", err)
	}

	cmdErr, ok := err.(*CommandError)
	if !ok {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if cmdErr.Method != "browsingContext.locateNodes" {
		t.Errorf("Method = %q, want the failing command", cmdErr.Method)
	}
	if cmdErr.Message != "context gone" {
		t.Errorf("Message = %q", cmdErr.Message)
	}
}

func TestConn_SendContextCanceled(t *testing.T) {
	conn := newTestConn(t, func(ws *websocket.Conn) {
		// Swallow the command and never answer; hold the connection
		// open until the client hangs up.
		var cmd wireCommand
		_ = ws.ReadJSON(&cmd)
		_, _, _ = ws.ReadMessage()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := conn.Send(ctx, "session.status", nil)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestConn_ConnectionLostFailsPending(t *testing.T) {
	conn := newTestConn(t, func(ws *websocket.Conn) {
		var cmd wireCommand
		_ = ws.ReadJSON(&cmd)
		// Drop the connection with the command still pending.
		_ = ws.Close()
	})

	_, err := conn.Send(context.Background(), "session.status", nil)
	if err != ErrConnectionLost {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if !IsConnectionError(err) {
		t.Error("IsConnectionError should report true")
	}
}

func TestConn_SendAfterClose(t *testing.T) {
	conn := newTestConn(t, echoServer(func(cmd wireCommand) any {
		return successFrame(cmd.ID, `{}`)
	}))

	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	// Close is idempotent.
	if err := conn.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if _, err := conn.Send(context.Background(), "session.status", nil); err != ErrConnectionClosed {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestConn_EventDispatchInArrivalOrder(t *testing.T) {
	const events = 5
	conn := newTestConn(t, func(ws *websocket.Conn) {
		// The first command acknowledges that the client has its
		// handler in place, then the burst begins.
		var cmd wireCommand
		if err := ws.ReadJSON(&cmd); err != nil {
			return
		}
		if err := ws.WriteJSON(successFrame(cmd.ID, `{}`)); err != nil {
			return
		}
		for i := 0; i < events; i++ {
			frame := map[string]any{
				"type":   "event",
				"method": "log.entryAdded",
				"params": map[string]any{"seq": i},
			}
			if err := ws.WriteJSON(frame); err != nil {
				return
			}
		}
		// Keep the connection open until the client is done.
		_, _, _ = ws.ReadMessage()
	})

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	err := conn.OnEvent("log.entryAdded", func(params json.RawMessage) {
		var payload struct {
			Seq int `json:"seq"`
		}
		if err := json.Unmarshal(params, &payload); err != nil {
			t.Errorf("bad event payload: %v", err)
			return
		}
		mu.Lock()
		got = append(got, payload.Seq)
		if len(got) == events {
			close(done)
		}
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}
	if _, err := conn.Send(context.Background(), "session.subscribe", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for events")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, seq := range got {
		if seq != i {
			t.Fatalf("events out of order: %v", got)
		}
	}
}

func TestConn_OnEventDuplicate(t *testing.T) {
	conn := newTestConn(t, func(ws *websocket.Conn) {
		_, _, _ = ws.ReadMessage()
	})

	if err := conn.OnEvent("log.entryAdded", func(json.RawMessage) {}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := conn.OnEvent("log.entryAdded", func(json.RawMessage) {}); err != ErrDuplicateHandler {
		t.Fatalf("expected ErrDuplicateHandler, got %v", err)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	var payloads []SubscriptionRequest

	conn := newTestConn(t, echoServer(func(cmd wireCommand) any {
		var req SubscriptionRequest
		_ = json.Unmarshal(cmd.Params, &req)
		mu.Lock()
		methods = append(methods, cmd.Method)
		payloads = append(payloads, req)
		mu.Unlock()
		return successFrame(cmd.ID, `{}`)
	}))

	ctx := context.Background()
	if err := Subscribe(ctx, conn, "log.entryAdded"); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := Unsubscribe(ctx, conn, "log.entryAdded"); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(methods) != 2 || methods[0] != "session.subscribe" || methods[1] != "session.unsubscribe" {
		t.Fatalf("unexpected methods: %v", methods)
	}
	for _, req := range payloads {
		if len(req.Events) != 1 || req.Events[0] != "log.entryAdded" {
			t.Fatalf("unexpected subscription payload: %+v", req)
		}
	}
}
