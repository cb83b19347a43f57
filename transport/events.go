package transport

import "encoding/json"

// Event names shared with the relay. Outbound request/response events
// reuse the same name in both directions; the relay echoes
// edit-message to the other party as a push.
const (
	// EventTyping carries best-effort typing indicators.
	EventTyping = "typing-status"
	// EventSendMessage submits a new message; the response is the
	// server-confirmed message including its assigned id.
	EventSendMessage = "send-message"
	// EventEditMessage submits an edit with the old body kept for
	// server-side audit; also pushed to the other party as an echo.
	EventEditMessage = "edit-message"
	// EventReceiveMessage delivers a full message from the peer.
	EventReceiveMessage = "receive-message"
	// EventDeleteMessage removes a message on both parties.
	EventDeleteMessage = "delete-message"
	// EventReadMessage delivers a read receipt.
	EventReadMessage = "read-message"
	// EventSendFailed reports a rate-limit or policy rejection as a
	// human-readable notice. No state change, no automatic retry.
	EventSendFailed = "send-failed"
)

// EventHandler processes one inbound push event payload.
type EventHandler func(payload json.RawMessage)

// Envelope is the wire frame for every event in either direction. Ack
// correlates a request with its response; zero means fire-and-forget.
type Envelope struct {
	Event   string          `json:"event"`
	Ack     int64           `json:"ack,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WireMessage is a full message object as the relay serializes it.
type WireMessage struct {
	ID              string   `json:"id"`
	SenderID        string   `json:"senderId"`
	ChatID          string   `json:"chatId"`
	Message         string   `json:"message"`
	Time            int64    `json:"time"`
	Status          string   `json:"status,omitempty"`
	IsEdited        bool     `json:"isEdited,omitempty"`
	OldMessages     []string `json:"oldMessages,omitempty"`
	ContainsBadword bool     `json:"containsBadword,omitempty"`
	IsRead          bool     `json:"isRead,omitempty"`
	ReplyTo         string   `json:"replyTo,omitempty"`
}

// SendRequest is the payload of an outbound send-message call.
type SendRequest struct {
	SenderID        string `json:"senderId"`
	Message         string `json:"message"`
	Time            int64  `json:"time"`
	ChatID          string `json:"chatId"`
	ContainsBadword bool   `json:"containsBadword"`
	ReplyTo         string `json:"replyTo,omitempty"`
}

// EditRequest is the payload of an outbound edit-message call. The
// relay keeps OldMessage for its audit trail.
type EditRequest struct {
	ID         string `json:"id"`
	ChatID     string `json:"chatId"`
	NewMessage string `json:"newMessage"`
	OldMessage string `json:"oldMessage"`
}

// TypingStatus is the payload of the typing-status event.
type TypingStatus struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// DeleteEvent is the payload of an inbound delete-message push.
type DeleteEvent struct {
	ID     string `json:"id"`
	ChatID string `json:"chatId"`
}

// ReadEvent is the payload of an inbound read-message push.
type ReadEvent struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
}

// SendFailedEvent is the payload of an inbound send-failed push.
type SendFailedEvent struct {
	Message string `json:"message"`
}
