package protocol

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/odvcencio/bidriver/pkg/observability"
)

const defaultWriteTimeout = 10 * time.Second

type commandResult struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	method string
	done   chan commandResult
}

// Conn implements Channel over a websocket connection. A single read loop
// demultiplexes correlated responses and unsolicited events; writes are
// serialized by a mutex.
type Conn struct {
	ws           *websocket.Conn
	logger       *observability.Logger
	writeMu      sync.Mutex
	writeTimeout time.Duration
	nextID       atomic.Uint64

	mu       sync.Mutex
	pending  map[uint64]*pendingCall
	handlers map[string]EventHandler
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger overrides the connection's logger.
func WithLogger(logger *observability.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

// WithWriteTimeout bounds how long a single frame write may take.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// Dial connects to a remote protocol endpoint.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(ws, opts...), nil
}

// NewConn wraps an established websocket connection and starts its read
// loop. The caller hands over ownership of ws.
func NewConn(ws *websocket.Conn, opts ...Option) *Conn {
	c := &Conn{
		ws:           ws,
		logger:       observability.NewLogger("protocol", slog.LevelInfo),
		writeTimeout: defaultWriteTimeout,
		pending:      make(map[uint64]*pendingCall),
		handlers:     make(map[string]EventHandler),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Send issues a command and waits for its correlated response.
func (c *Conn) Send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := observability.StartSpan(ctx, "protocol.send")
	defer span.End()

	id := c.nextID.Add(1)
	observability.RecordCommand(ctx, method, id)

	call := &pendingCall{
		method: method,
		done:   make(chan commandResult, 1),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.pending[id] = call
	c.mu.Unlock()
	PendingCommands.Inc()

	if err := c.writeJSON(Command{ID: id, Method: method, Params: params}); err != nil {
		c.forget(id)
		return nil, err
	}
	CommandsSent.WithLabelValues(method).Inc()
	c.logger.CommandSent(id, method)

	select {
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		c.forget(id)
		return nil, ErrConnectionLost
	case res := <-call.done:
		if res.err != nil {
			CommandErrors.WithLabelValues(method, ErrorCode(res.err)).Inc()
			c.logger.CommandFailed(id, method, ErrorCode(res.err))
			return nil, res.err
		}
		return res.result, nil
	}
}

// OnEvent registers the single dispatcher for an event category.
func (c *Conn) OnEvent(method string, handler EventHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.handlers[method]; exists {
		return ErrDuplicateHandler
	}
	c.handlers[method] = handler
	return nil
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout))
		c.writeMu.Unlock()

		err = c.ws.Close()
		<-c.done
	})
	return err
}

// Done is closed once the read loop has exited, whether by Close or by a
// transport failure.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *Conn) readLoop() {
	defer func() {
		c.failPending()
		close(c.done)
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Error("connection read failed", slog.String("error", err.Error()))
			}
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("malformed protocol frame", slog.String("error", err.Error()))
			continue
		}

		switch msg.Type {
		case "success":
			c.deliver(msg.ID, commandResult{result: msg.Result})
		case "error":
			c.deliver(msg.ID, commandResult{err: &CommandError{
				Method:     c.methodFor(msg.ID),
				Code:       msg.Error,
				Message:    msg.Message,
				Stacktrace: msg.Stacktrace,
			}})
		case "event":
			c.dispatchEvent(msg.Method, msg.Params)
		default:
			c.logger.Warn("unknown frame type", slog.String("frame_type", msg.Type))
		}
	}
}

func (c *Conn) dispatchEvent(method string, params json.RawMessage) {
	EventsReceived.WithLabelValues(method).Inc()

	c.mu.Lock()
	handler := c.handlers[method]
	c.mu.Unlock()

	if handler == nil {
		EventsUnhandled.WithLabelValues(method).Inc()
		c.logger.EventDropped(method, "no dispatcher registered")
		return
	}
	// Invoked inline so events of one category keep arrival order.
	handler(params)
}

func (c *Conn) methodFor(id uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if call, ok := c.pending[id]; ok {
		return call.method
	}
	return ""
}

func (c *Conn) deliver(id uint64, res commandResult) {
	c.mu.Lock()
	call, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("response without matching command", slog.Uint64("command_id", id))
		return
	}
	PendingCommands.Dec()
	call.done <- res
}

// forget drops a pending call after a local failure or cancellation.
func (c *Conn) forget(id uint64) {
	c.mu.Lock()
	_, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok {
		PendingCommands.Dec()
	}
}

func (c *Conn) failPending() {
	c.mu.Lock()
	calls := make([]*pendingCall, 0, len(c.pending))
	for id, call := range c.pending {
		calls = append(calls, call)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	for _, call := range calls {
		PendingCommands.Dec()
		call.done <- commandResult{err: ErrConnectionLost}
	}
}
