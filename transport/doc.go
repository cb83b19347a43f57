// Package transport provides the relay event contract and the
// transports that speak it.
//
// # Architecture
//
// The relay exposes named channel-style events over one persistent
// connection. Outbound send-message and edit-message calls are
// request/response and settle with the server-confirmed message or an
// error; typing-status is fire-and-forget; the remaining events are
// server pushes consumed through registered handlers.
//
// The core abstraction is the Transport interface which all
// implementations satisfy:
//
//	type Transport interface {
//	    SendMessage(ctx context.Context, req SendRequest) (*WireMessage, error)
//	    EditMessage(ctx context.Context, req EditRequest) (*WireMessage, error)
//	    EmitTyping(ctx context.Context, status TypingStatus) error
//	    RegisterHandler(event string, handler EventHandler)
//	    UnregisterHandler(event string)
//	    Close() error
//	}
//
// # Transport Implementations
//
// WebSocket Transport:
//
//	transport, err := NewWebSocketTransport("wss://relay.example.com/chat")
//	// Production transport over a persistent websocket connection
//
// Mock Transport:
//
//	transport := NewMock()
//	// In-memory transport for tests; scriptable outcomes, recorded calls
//
// Connect and reconnect handling is outside the engine's scope: a
// Transport is assumed reliable once constructed.
//
// # Handler Registration
//
// Push events are registered per event name for dispatch:
//
//	transport.RegisterHandler(EventReceiveMessage, func(payload json.RawMessage) {
//	    // Handle an inbound message
//	})
//
// Handlers for the same message id are invoked in the order the relay
// delivered them; the transport does not reorder or buffer events.
//
// # Thread Safety
//
// All transport implementations use sync.RWMutex for concurrent access
// safety. Handler maps and in-flight request state are protected from
// data races.
//
// # Error Handling
//
// All errors are wrapped with context using fmt.Errorf and logged with
// structured fields via logrus.WithFields. A request that the relay
// rejects, times out, or that outlives its context settles with an
// error; the caller decides how the failure maps onto message state.
package transport
