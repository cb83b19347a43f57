package transport

import (
	"context"
	"errors"
)

// ErrClosed indicates the transport was closed while a request was
// in flight or before it was issued.
var ErrClosed = errors.New("transport closed")

// Transport is the engine's view of the relay connection. Send and
// edit calls are the only suspension points of the engine; both honor
// context cancellation and deadlines, and a deadline expiry is
// indistinguishable from an explicit relay rejection to the caller.
type Transport interface {
	// SendMessage submits a new message and returns the
	// server-confirmed message, including its assigned id.
	SendMessage(ctx context.Context, req SendRequest) (*WireMessage, error)

	// EditMessage submits an edit and returns the edited message as
	// confirmed by the relay.
	EditMessage(ctx context.Context, req EditRequest) (*WireMessage, error)

	// EmitTyping sends a best-effort typing indicator.
	EmitTyping(ctx context.Context, status TypingStatus) error

	// RegisterHandler registers a handler for a push event name,
	// replacing any previous handler for that name.
	RegisterHandler(event string, handler EventHandler)

	// UnregisterHandler removes the handler for a push event name.
	UnregisterHandler(event string)

	// Close shuts down the transport. In-flight requests settle with
	// ErrClosed.
	Close() error
}
