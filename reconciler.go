package chatsync

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatsync/transport"
)

// Start subscribes the event reconciler to the relay's push events.
// Each handler applies one inbound event to the store and runs to
// completion before the transport delivers the next; events for the
// same message id are assumed to arrive in causal order from the
// relay.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.mu.Unlock()

	e.transport.RegisterHandler(transport.EventReceiveMessage, e.handleReceiveMessage)
	e.transport.RegisterHandler(transport.EventDeleteMessage, e.handleDeleteMessage)
	e.transport.RegisterHandler(transport.EventEditMessage, e.handleEditMessage)
	e.transport.RegisterHandler(transport.EventReadMessage, e.handleReadMessage)
	e.transport.RegisterHandler(transport.EventSendFailed, e.handleSendFailed)

	logrus.WithFields(logrus.Fields{
		"function": "Start",
	}).Info("Event reconciler subscribed")
	return nil
}

// Stop deregisters all push handlers and cancels pending timers. The
// store keeps its state; Stop only detaches the engine from the
// transport.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	for chatID, timer := range e.inactiveTimers {
		timer.Stop()
		delete(e.inactiveTimers, chatID)
	}
	e.mu.Unlock()

	e.transport.UnregisterHandler(transport.EventReceiveMessage)
	e.transport.UnregisterHandler(transport.EventDeleteMessage)
	e.transport.UnregisterHandler(transport.EventEditMessage)
	e.transport.UnregisterHandler(transport.EventReadMessage)
	e.transport.UnregisterHandler(transport.EventSendFailed)
	e.typing.Stop()

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
	}).Info("Event reconciler detached")
}

// handleReceiveMessage applies an inbound message. The relay is
// authoritative for incoming messages: no pending phase, the payload
// is stored as-is. Applying the same push twice is idempotent.
func (e *Engine) handleReceiveMessage(payload json.RawMessage) {
	var wire transport.WireMessage
	if err := json.Unmarshal(payload, &wire); err != nil {
		e.dropMalformed(transport.EventReceiveMessage, err)
		return
	}

	msg := wireToMessage(&wire)
	e.store.Add(msg)
	e.touchPartnerActivity(msg.ChatID)

	e.mu.Lock()
	callback := e.onMessage
	e.mu.Unlock()
	if callback != nil {
		if e.opts.Decrypt != nil {
			if plain, err := e.opts.Decrypt(msg.Body); err == nil {
				msg.Body = plain
			} else {
				logrus.WithFields(logrus.Fields{
					"function": "handleReceiveMessage",
					"chat_id":  msg.ChatID,
					"id":       msg.ID,
				}).Warn("Inbound body failed to decrypt")
			}
		}
		callback(msg)
	}
}

// handleDeleteMessage removes the referenced message. Deleting an
// already-absent id is a no-op.
func (e *Engine) handleDeleteMessage(payload json.RawMessage) {
	var event transport.DeleteEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		e.dropMalformed(transport.EventDeleteMessage, err)
		return
	}
	e.store.Remove(event.ID, event.ChatID)
}

// handleEditMessage merges a relayed edit. The relay may reference
// the message by its original id rather than the current one, so the
// update falls back to the original-id index. An edit for a message
// the store has never seen means local state and relay diverged;
// that invalidates the session.
func (e *Engine) handleEditMessage(payload json.RawMessage) {
	var wire transport.WireMessage
	if err := json.Unmarshal(payload, &wire); err != nil {
		e.dropMalformed(transport.EventEditMessage, err)
		return
	}

	msg := wireToMessage(&wire)
	msg.IsEdited = true
	if err := e.store.Update(msg, true); err != nil {
		e.invalidateSession(err)
	}
}

// handleReadMessage applies a read receipt. Receipts are idempotent
// and receipts for absent messages are ignored.
func (e *Engine) handleReadMessage(payload json.RawMessage) {
	var event transport.ReadEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		e.dropMalformed(transport.EventReadMessage, err)
		return
	}
	e.store.MarkRead(event.MessageID, event.ChatID)
}

// handleSendFailed surfaces a rate-limit or policy rejection as a
// user notice. No store mutation and no automatic retry.
func (e *Engine) handleSendFailed(payload json.RawMessage) {
	var event transport.SendFailedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		e.dropMalformed(transport.EventSendFailed, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "handleSendFailed",
		"notice":   event.Message,
	}).Info("Relay rejected a send by policy")

	e.mu.Lock()
	callback := e.onSendRejected
	e.mu.Unlock()
	if callback != nil {
		callback(event.Message)
	}
}

// touchPartnerActivity restarts the silence timer for a chat after
// the peer wrote something.
func (e *Engine) touchPartnerActivity(chatID string) {
	if e.opts.InactiveThreshold <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	if timer, ok := e.inactiveTimers[chatID]; ok {
		timer.Stop()
	}
	e.inactiveTimers[chatID] = time.AfterFunc(e.opts.InactiveThreshold, func() {
		e.mu.Lock()
		callback := e.onPartnerInactive
		running := e.running
		e.mu.Unlock()
		if running && callback != nil {
			callback(chatID)
		}
	})
}

func (e *Engine) dropMalformed(event string, err error) {
	logrus.WithFields(logrus.Fields{
		"function": "dropMalformed",
		"event":    event,
		"error":    err,
	}).Warn("Dropping malformed push payload")
}
