package chatsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatsync/message"
	"github.com/opd-ai/chatsync/transport"
)

// SendMessage submits a new message for the chat. The round trip is
// optimistic: the relay call settles first, a pending placeholder is
// stored under the client id, then the placeholder is upgraded to the
// server-confirmed id with status sent.
//
// A transport timeout or rejection is terminal here: the store gains a
// single failed message under a fresh id and SendMessage returns
// false with a nil error. It returns true only when the full round
// trip completed; a placeholder that cannot be found during the
// upgrade invalidates the session and is returned as an error.
func (e *Engine) SendMessage(chatID, body, replyTo string) (bool, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return false, ErrEmptyMessage
	}
	senderID, err := e.sessionState()
	if err != nil {
		return false, err
	}

	containsBadword := false
	if e.opts.CheckBadword != nil {
		containsBadword = e.opts.CheckBadword(body)
	}

	// Submitting implies the local user stopped typing.
	e.typing.Flush(chatID, false)

	return e.doSend(sendIntent{
		senderID:        senderID,
		chatID:          chatID,
		body:            body,
		time:            time.Now().UnixMilli(),
		containsBadword: containsBadword,
		replyTo:         replyTo,
	})
}

// Resend re-enters the send pipeline for a failed message with a
// fresh id. The failed entry is removed once the retry is issued; a
// retry that fails again leaves one failed entry under a new id. The
// stored badword flag is reused, not recomputed.
func (e *Engine) Resend(id, chatID string) (bool, error) {
	senderID, err := e.sessionState()
	if err != nil {
		return false, err
	}

	cur := e.store.Get(chatID, id)
	if cur == nil {
		return false, fmt.Errorf("resend: %w", message.ErrUnknownMessage)
	}
	if cur.Status != message.StatusFailed {
		logrus.WithFields(logrus.Fields{
			"function": "Resend",
			"chat_id":  chatID,
			"id":       id,
			"status":   cur.Status.OrSent(),
		}).Warn("Resend requested for a message that did not fail")
		return false, nil
	}

	e.store.Remove(id, chatID)

	return e.doSend(sendIntent{
		senderID:        senderID,
		chatID:          chatID,
		body:            cur.Body,
		time:            cur.Time,
		containsBadword: cur.ContainsBadword,
		replyTo:         cur.ReplyTo,
	})
}

// EditMessage replaces the body of an existing message. The old body
// accompanies the request for server-side audit. The edit is atomic:
// body, the edited flag, and the appended history land together on
// confirmation, and a relay failure leaves the message untouched.
func (e *Engine) EditMessage(id, chatID, newBody string) (bool, error) {
	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return false, ErrEmptyMessage
	}
	if _, err := e.sessionState(); err != nil {
		return false, err
	}

	cur := e.store.Get(chatID, id)
	if cur == nil {
		return false, fmt.Errorf("edit: %w", message.ErrUnknownMessage)
	}
	oldBody := cur.Body

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.SendTimeout)
	defer cancel()

	confirmed, err := e.transport.EditMessage(ctx, transport.EditRequest{
		ID:         id,
		ChatID:     chatID,
		NewMessage: newBody,
		OldMessage: oldBody,
	})
	if err != nil {
		// The edit UI resets without applying any change.
		logrus.WithFields(logrus.Fields{
			"function": "EditMessage",
			"chat_id":  chatID,
			"id":       id,
			"error":    err,
		}).Warn("Edit not confirmed by relay")
		return false, nil
	}

	upgrade := wireToMessage(confirmed)
	if upgrade.ID == "" {
		upgrade.ID = id
	}
	upgrade.ChatID = chatID
	upgrade.Body = newBody
	upgrade.IsEdited = true
	upgrade.EditHistory = append(append([]string{}, cur.EditHistory...), oldBody)

	if err := e.store.Update(upgrade, true); err != nil {
		e.invalidateSession(err)
		return false, err
	}
	return true, nil
}

// sendIntent carries one logical send through the pipeline.
type sendIntent struct {
	senderID        string
	chatID          string
	body            string
	time            int64
	containsBadword bool
	replyTo         string
}

func (e *Engine) doSend(intent sendIntent) (bool, error) {
	clientID := e.opts.GenerateID()

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.SendTimeout)
	defer cancel()

	confirmed, err := e.transport.SendMessage(ctx, transport.SendRequest{
		SenderID:        intent.senderID,
		Message:         intent.body,
		Time:            intent.time,
		ChatID:          intent.chatID,
		ContainsBadword: intent.containsBadword,
		ReplyTo:         intent.replyTo,
	})
	if err != nil {
		// Timeout and rejection are the same outcome: one failed,
		// retryable message under a fresh id.
		e.store.Add(message.Message{
			ID:              e.opts.GenerateID(),
			SenderID:        intent.senderID,
			ChatID:          intent.chatID,
			Body:            intent.body,
			Time:            intent.time,
			Status:          message.StatusFailed,
			ContainsBadword: intent.containsBadword,
			ReplyTo:         intent.replyTo,
		})
		logrus.WithFields(logrus.Fields{
			"function": "doSend",
			"chat_id":  intent.chatID,
			"error":    err,
		}).Warn("Send not confirmed by relay; stored as failed")
		return false, nil
	}

	// Placeholder under the client id, immediately upgraded with the
	// relay's echo. The two-phase write accommodates relays that
	// assign a canonical id distinct from the client-chosen one.
	e.store.Add(message.Message{
		ID:              clientID,
		SenderID:        intent.senderID,
		ChatID:          intent.chatID,
		Body:            intent.body,
		Time:            intent.time,
		Status:          message.StatusPending,
		ContainsBadword: intent.containsBadword,
		ReplyTo:         intent.replyTo,
	})

	upgrade := wireToMessage(confirmed)
	upgrade.OriginalID = clientID
	upgrade.ChatID = intent.chatID
	upgrade.Status = message.StatusSent

	if err := e.store.Update(upgrade, true); err != nil {
		// Should not happen under run-to-completion sequencing; the
		// store and relay have diverged.
		e.invalidateSession(err)
		return false, err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "doSend",
		"chat_id":   intent.chatID,
		"client_id": clientID,
		"server_id": upgrade.ID,
	}).Debug("Send confirmed")
	return true, nil
}
