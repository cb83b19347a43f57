package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a frame to the relay.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the relay.
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from the relay.
	maxMessageSize = 64 * 1024
)

// typingRate caps outbound typing frames at the transport level. The
// engine already coalesces typing signals; this guards the relay
// against callers bypassing the engine throttle.
var typingRate = rate.Every(100 * time.Millisecond)

// WebSocketTransport speaks the relay event contract over a single
// persistent websocket connection.
type WebSocketTransport struct {
	conn *websocket.Conn

	mu       sync.RWMutex
	handlers map[string]EventHandler
	pending  map[int64]chan Envelope
	closed   bool

	nextAck       atomic.Int64
	send          chan []byte
	done          chan struct{}
	typingLimiter *rate.Limiter
}

// NewWebSocketTransport dials the relay and starts the read and write
// pumps. The connection is assumed reliable once established;
// reconnect policy belongs to the caller.
func NewWebSocketTransport(url string) (*WebSocketTransport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	t := &WebSocketTransport{
		conn:          conn,
		handlers:      make(map[string]EventHandler),
		pending:       make(map[int64]chan Envelope),
		send:          make(chan []byte, 256),
		done:          make(chan struct{}),
		typingLimiter: rate.NewLimiter(typingRate, 4),
	}

	go t.readPump()
	go t.writePump()

	logrus.WithFields(logrus.Fields{
		"function": "NewWebSocketTransport",
		"url":      url,
	}).Info("Relay connection established")
	return t, nil
}

// SendMessage implements Transport.SendMessage.
func (t *WebSocketTransport) SendMessage(ctx context.Context, req SendRequest) (*WireMessage, error) {
	return t.request(ctx, EventSendMessage, req)
}

// EditMessage implements Transport.EditMessage.
func (t *WebSocketTransport) EditMessage(ctx context.Context, req EditRequest) (*WireMessage, error) {
	return t.request(ctx, EventEditMessage, req)
}

// EmitTyping implements Transport.EmitTyping. Frames beyond the
// transport rate cap are dropped; typing indicators are best-effort.
func (t *WebSocketTransport) EmitTyping(ctx context.Context, status TypingStatus) error {
	if !t.typingLimiter.Allow() {
		return nil
	}
	frame, err := marshalEnvelope(EventTyping, 0, status)
	if err != nil {
		return err
	}
	return t.enqueue(ctx, frame)
}

// RegisterHandler implements Transport.RegisterHandler.
func (t *WebSocketTransport) RegisterHandler(event string, handler EventHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = handler
}

// UnregisterHandler implements Transport.UnregisterHandler.
func (t *WebSocketTransport) UnregisterHandler(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, event)
}

// Close implements Transport.Close.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()

	return t.conn.Close()
}

// request performs one request/response exchange correlated by ack id.
func (t *WebSocketTransport) request(ctx context.Context, event string, payload any) (*WireMessage, error) {
	ack := t.nextAck.Add(1)
	frame, err := marshalEnvelope(event, ack, payload)
	if err != nil {
		return nil, err
	}

	reply := make(chan Envelope, 1)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.pending[ack] = reply
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, ack)
		t.mu.Unlock()
	}()

	if err := t.enqueue(ctx, frame); err != nil {
		return nil, err
	}

	select {
	case env := <-reply:
		if env.Event == eventAckError {
			var failure SendFailedEvent
			_ = json.Unmarshal(env.Payload, &failure)
			return nil, fmt.Errorf("%s rejected by relay: %s", event, failure.Message)
		}
		var msg WireMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", event, err)
		}
		return &msg, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", event, ctx.Err())
	case <-t.done:
		return nil, ErrClosed
	}
}

func (t *WebSocketTransport) enqueue(ctx context.Context, frame []byte) error {
	select {
	case t.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrClosed
	}
}

// readPump pumps frames from the relay, settling pending requests and
// dispatching push events to registered handlers. Runs in its own
// goroutine until the connection drops or Close is called.
func (t *WebSocketTransport) readPump() {
	defer t.Close()

	t.conn.SetReadLimit(maxMessageSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithFields(logrus.Fields{
					"function": "readPump",
					"error":    err,
				}).Warn("Relay read failed")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "readPump",
				"error":    err,
			}).Warn("Dropping malformed relay frame")
			continue
		}

		if env.Ack != 0 {
			t.mu.RLock()
			reply := t.pending[env.Ack]
			t.mu.RUnlock()
			if reply != nil {
				reply <- env
			}
			continue
		}

		t.mu.RLock()
		handler := t.handlers[env.Event]
		t.mu.RUnlock()
		if handler == nil {
			logrus.WithFields(logrus.Fields{
				"function": "readPump",
				"event":    env.Event,
			}).Debug("No handler registered for event")
			continue
		}
		handler(env.Payload)
	}
}

// writePump serializes all frame writes onto one goroutine and keeps
// the connection alive with pings.
func (t *WebSocketTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case frame := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-t.done:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// eventAckError is the envelope event name the relay uses when a
// request settles with a rejection instead of a confirmed message.
const eventAckError = "ack-error"

func marshalEnvelope(event string, ack int64, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Ack: ack, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", event, err)
	}
	return frame, nil
}
