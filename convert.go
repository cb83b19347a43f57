package chatsync

import (
	"github.com/opd-ai/chatsync/message"
	"github.com/opd-ai/chatsync/transport"
)

// wireToMessage maps a relay-serialized message onto the store model.
func wireToMessage(w *transport.WireMessage) message.Message {
	return message.Message{
		ID:              w.ID,
		SenderID:        w.SenderID,
		ChatID:          w.ChatID,
		Body:            w.Message,
		Time:            w.Time,
		Status:          message.Status(w.Status),
		IsEdited:        w.IsEdited,
		EditHistory:     append([]string(nil), w.OldMessages...),
		ContainsBadword: w.ContainsBadword,
		IsRead:          w.IsRead,
		ReplyTo:         w.ReplyTo,
	}
}
