package message

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownMessage indicates an update targeted a message that is
	// not in the store. Callers must treat this as fatal to the
	// operation that triggered the update rather than inserting a
	// duplicate.
	ErrUnknownMessage = errors.New("unknown message")

	// ErrAmbiguousMatch indicates an original-id update matched more
	// than one live entry. The store and the relay have diverged in a
	// way further mutation cannot repair.
	ErrAmbiguousMatch = errors.New("ambiguous message match")
)

// Store is the in-memory message collection, keyed by (chatID, id).
// All methods are safe for concurrent use; access is serialized with
// a single lock so collaborating components never observe a partial
// mutation.
type Store struct {
	mu sync.RWMutex

	// chats maps chatID to the live messages of that conversation.
	chats map[string]map[string]*Message

	// index maps chatID to original id to current id, so events that
	// reference a message by the id it was first created under still
	// land on the re-keyed entry.
	index map[string]map[string]string
}

// NewStore creates an empty message store.
func NewStore() *Store {
	return &Store{
		chats: make(map[string]map[string]*Message),
		index: make(map[string]map[string]string),
	}
}

// Add inserts or overwrites the message keyed by (ChatID, ID). Adding
// the same message twice is idempotent; the relay is authoritative for
// inbound messages.
func (s *Store) Add(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.OriginalID == "" {
		msg.OriginalID = msg.ID
	}

	c := s.chat(msg.ChatID)
	stored := msg.Clone()
	c[msg.ID] = &stored
	s.chatIndex(msg.ChatID)[msg.OriginalID] = msg.ID

	logrus.WithFields(logrus.Fields{
		"function": "Add",
		"chat_id":  msg.ChatID,
		"id":       msg.ID,
		"status":   msg.Status.OrSent(),
	}).Debug("Message stored")
}

// Update locates an existing message and merges the given fields into
// it. The target is found by exact id, or, when matchByOriginalID is
// set, through the original-id index as a fallback for id drift
// between the optimistic and the server-confirmed identifier.
//
// When msg.OriginalID is set and names an existing entry, that entry
// is re-keyed to msg.ID (the server-assigned id supersedes the client
// one). Returns ErrUnknownMessage when no entry matches, and
// ErrAmbiguousMatch when the exact id and the original id resolve to
// two different live entries.
func (s *Store) Update(msg Message, matchByOriginalID bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.chat(msg.ChatID)
	cur := c[msg.ID]

	if matchByOriginalID {
		ref := msg.OriginalID
		if ref == "" {
			ref = msg.ID
		}
		var viaIndex *Message
		if curID, ok := s.chatIndex(msg.ChatID)[ref]; ok {
			viaIndex = c[curID]
		}
		switch {
		case cur != nil && viaIndex != nil && viaIndex != cur:
			logrus.WithFields(logrus.Fields{
				"function":    "Update",
				"chat_id":     msg.ChatID,
				"id":          msg.ID,
				"original_id": ref,
			}).Error("Original-id index resolves to a different live entry")
			return fmt.Errorf("message %q: %w", msg.ID, ErrAmbiguousMatch)
		case cur == nil:
			cur = viaIndex
		}
	}

	if cur == nil {
		logrus.WithFields(logrus.Fields{
			"function": "Update",
			"chat_id":  msg.ChatID,
			"id":       msg.ID,
		}).Warn("Update target not found")
		return fmt.Errorf("message %q: %w", msg.ID, ErrUnknownMessage)
	}

	// Server-assigned id supersedes the optimistic one.
	if msg.OriginalID != "" && msg.ID != "" && msg.ID != cur.ID {
		delete(c, cur.ID)
		cur.ID = msg.ID
		c[cur.ID] = cur
		s.chatIndex(msg.ChatID)[cur.OriginalID] = cur.ID
	}

	merge(cur, msg)

	logrus.WithFields(logrus.Fields{
		"function": "Update",
		"chat_id":  cur.ChatID,
		"id":       cur.ID,
		"status":   cur.Status.OrSent(),
		"edited":   cur.IsEdited,
	}).Debug("Message updated")
	return nil
}

// Remove deletes the entry if present. Deleting an absent id is a
// no-op, not an error.
func (s *Store) Remove(id, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.chat(chatID)
	cur, ok := c[id]
	if !ok {
		return
	}
	delete(c, id)
	delete(s.chatIndex(chatID), cur.OriginalID)

	logrus.WithFields(logrus.Fields{
		"function": "Remove",
		"chat_id":  chatID,
		"id":       id,
	}).Debug("Message removed")
}

// MarkRead records a read receipt on the matching message. Applying
// the same receipt twice yields the same state; a receipt for an
// absent message is a no-op.
func (s *Store) MarkRead(id, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.chat(chatID)[id]; ok {
		cur.IsRead = true
	}
}

// Get returns a copy of the message, or nil when absent.
func (s *Store) Get(chatID, id string) *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.chats[chatID][id]
	if !ok {
		return nil
	}
	c := cur.Clone()
	return &c
}

// Sorted returns the messages of a chat ordered by submission time
// ascending, independent of insertion order. Ties are broken by id so
// the view is stable.
func (s *Store) Sorted(chatID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.chats[chatID]
	out := make([]Message, 0, len(c))
	for _, m := range c {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LastPeerActivity returns the submission time of the newest message
// in the chat not authored by selfID, or zero when the peer has not
// written anything.
func (s *Store) LastPeerActivity(chatID, selfID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last int64
	for _, m := range s.chats[chatID] {
		if m.SenderID != selfID && m.Time > last {
			last = m.Time
		}
	}
	return last
}

func (s *Store) chat(chatID string) map[string]*Message {
	c, ok := s.chats[chatID]
	if !ok {
		c = make(map[string]*Message)
		s.chats[chatID] = c
	}
	return c
}

func (s *Store) chatIndex(chatID string) map[string]string {
	idx, ok := s.index[chatID]
	if !ok {
		idx = make(map[string]string)
		s.index[chatID] = idx
	}
	return idx
}

// merge folds the set fields of in into cur. Zero-valued fields of in
// leave cur untouched, Time is never revised once assigned, ReplyTo is
// immutable once set, and EditHistory never shrinks.
func merge(cur *Message, in Message) {
	if in.Body != "" {
		cur.Body = in.Body
	}
	if in.Status != "" {
		cur.Status = in.Status
	}
	if in.SenderID != "" {
		cur.SenderID = in.SenderID
	}
	if cur.Time == 0 {
		cur.Time = in.Time
	}
	if cur.ReplyTo == "" {
		cur.ReplyTo = in.ReplyTo
	}
	cur.IsEdited = cur.IsEdited || in.IsEdited
	cur.IsRead = cur.IsRead || in.IsRead
	cur.ContainsBadword = cur.ContainsBadword || in.ContainsBadword
	if len(in.EditHistory) > len(cur.EditHistory) {
		cur.EditHistory = make([]string, len(in.EditHistory))
		copy(cur.EditHistory, in.EditHistory)
	}
}
