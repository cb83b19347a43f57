package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Mock implements Transport for testing. Outcomes are scripted
// through SendFunc and EditFunc; every call is recorded for
// inspection; Dispatch simulates a server push.
type Mock struct {
	mu       sync.Mutex
	handlers map[string]EventHandler

	// SendFunc and EditFunc script the relay's response. The defaults
	// confirm the request unchanged under a server-assigned id.
	SendFunc func(req SendRequest) (*WireMessage, error)
	EditFunc func(req EditRequest) (*WireMessage, error)

	sends   []SendRequest
	edits   []EditRequest
	typings []TypingStatus
}

// NewMock creates a mock transport whose requests succeed by default.
func NewMock() *Mock {
	m := &Mock{handlers: make(map[string]EventHandler)}
	serverSeq := 0
	m.SendFunc = func(req SendRequest) (*WireMessage, error) {
		serverSeq++
		return &WireMessage{
			ID:              fmt.Sprintf("srv-%d", serverSeq),
			SenderID:        req.SenderID,
			ChatID:          req.ChatID,
			Message:         req.Message,
			Time:            req.Time,
			Status:          "sent",
			ContainsBadword: req.ContainsBadword,
			ReplyTo:         req.ReplyTo,
		}, nil
	}
	m.EditFunc = func(req EditRequest) (*WireMessage, error) {
		return &WireMessage{
			ID:       req.ID,
			ChatID:   req.ChatID,
			Message:  req.NewMessage,
			IsEdited: true,
		}, nil
	}
	return m
}

// SendMessage implements Transport.SendMessage.
func (m *Mock) SendMessage(ctx context.Context, req SendRequest) (*WireMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sends = append(m.sends, req)
	fn := m.SendFunc
	m.mu.Unlock()
	return fn(req)
}

// EditMessage implements Transport.EditMessage.
func (m *Mock) EditMessage(ctx context.Context, req EditRequest) (*WireMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.edits = append(m.edits, req)
	fn := m.EditFunc
	m.mu.Unlock()
	return fn(req)
}

// EmitTyping implements Transport.EmitTyping.
func (m *Mock) EmitTyping(ctx context.Context, status TypingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typings = append(m.typings, status)
	return nil
}

// RegisterHandler implements Transport.RegisterHandler.
func (m *Mock) RegisterHandler(event string, handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = handler
}

// UnregisterHandler implements Transport.UnregisterHandler.
func (m *Mock) UnregisterHandler(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, event)
}

// Close implements Transport.Close.
func (m *Mock) Close() error { return nil }

// Dispatch delivers a server push to the registered handler, encoding
// payload as the relay would. It is a no-op when no handler is
// registered, mirroring an unmounted reconciler.
func (m *Mock) Dispatch(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	handler := m.handlers[event]
	m.mu.Unlock()
	if handler != nil {
		handler(data)
	}
	return nil
}

// Handlers returns the event names with a registered handler.
func (m *Mock) Handlers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	return names
}

// Sends returns the recorded send-message requests.
func (m *Mock) Sends() []SendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendRequest, len(m.sends))
	copy(out, m.sends)
	return out
}

// Edits returns the recorded edit-message requests.
func (m *Mock) Edits() []EditRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EditRequest, len(m.edits))
	copy(out, m.edits)
	return out
}

// Typings returns the recorded typing-status emissions.
func (m *Mock) Typings() []TypingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TypingStatus, len(m.typings))
	copy(out, m.typings)
	return out
}
