package protocol

import (
	"context"
	"encoding/json"
)

// Command is the wire envelope for an outgoing protocol command.
type Command struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

// message is the incoming wire envelope. The remote end tags every frame
// with a type discriminator: "success" and "error" correlate to a command
// id, "event" carries an unsolicited notification.
type message struct {
	Type       string          `json:"type"`
	ID         uint64          `json:"id,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
	Stacktrace string          `json:"stacktrace,omitempty"`
	Method     string          `json:"method,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// EventHandler receives the raw params payload of one protocol event.
// Handlers run on the connection's read loop; events of one category are
// delivered in arrival order, so a handler must not block.
type EventHandler func(params json.RawMessage)

// Channel is the port implemented by protocol connections.
type Channel interface {
	// Send issues a command and blocks until the correlated response or a
	// matching error arrives. A protocol-reported failure is returned as a
	// *CommandError; transport failures are returned unchanged.
	Send(ctx context.Context, method string, params any) (json.RawMessage, error)

	// OnEvent registers the single low-level dispatcher for an event
	// category. Registering a second handler for the same category is an
	// error; fan-out to multiple consumers is the inspector's job.
	OnEvent(method string, handler EventHandler) error

	// Close tears down the connection. Pending Send calls fail with
	// ErrConnectionLost.
	Close() error
}

// SubscriptionRequest is the payload for session.subscribe and
// session.unsubscribe commands.
type SubscriptionRequest struct {
	Events   []string `json:"events"`
	Contexts []string `json:"contexts,omitempty"`
}

// Subscribe asks the remote end to start emitting the given event categories.
func Subscribe(ctx context.Context, ch Channel, events ...string) error {
	_, err := ch.Send(ctx, "session.subscribe", SubscriptionRequest{Events: events})
	return err
}

// Unsubscribe releases a wire subscription created by Subscribe.
func Unsubscribe(ctx context.Context, ch Channel, events ...string) error {
	_, err := ch.Send(ctx, "session.unsubscribe", SubscriptionRequest{Events: events})
	return err
}
