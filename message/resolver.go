package message

import "github.com/sirupsen/logrus"

// ReplyState classifies the outcome of resolving a reply reference.
type ReplyState uint8

const (
	// ReplyNone means the message is not a reply.
	ReplyNone ReplyState = iota
	// ReplyResolved means the referenced original is live in the store.
	ReplyResolved
	// ReplyUnavailable means the referenced original was deleted or
	// never synced. This is a normal display state, not an error, and
	// callers must render it distinctly from an empty reply.
	ReplyUnavailable
)

// Reply is the resolved view of a reply reference.
type Reply struct {
	State ReplyState
	// ID, SenderID, Time and Body describe the original message when
	// State is ReplyResolved. Body has been passed through the
	// session's decryptor.
	ID       string
	SenderID string
	Time     int64
	Body     string
}

// ReplyResolver resolves reply references against the store for one
// conversation, independent of when the referenced message was
// delivered relative to the reply.
type ReplyResolver struct {
	store   *Store
	chatID  string
	decrypt Decryptor
}

// NewReplyResolver creates a resolver bound to one chat. decrypt may
// be nil when bodies are stored in plaintext.
func NewReplyResolver(store *Store, chatID string, decrypt Decryptor) *ReplyResolver {
	return &ReplyResolver{store: store, chatID: chatID, decrypt: decrypt}
}

// Resolve looks up the referenced original message. It never returns
// a nil-equivalent for a missing target: a deleted or never-synced
// original yields the ReplyUnavailable sentinel.
func (r *ReplyResolver) Resolve(replyToID string) Reply {
	if replyToID == "" {
		return Reply{State: ReplyNone}
	}

	original := r.store.Get(r.chatID, replyToID)
	if original == nil {
		logrus.WithFields(logrus.Fields{
			"function": "Resolve",
			"chat_id":  r.chatID,
			"reply_to": replyToID,
		}).Debug("Reply target unavailable")
		return Reply{State: ReplyUnavailable}
	}

	body := original.Body
	if r.decrypt != nil {
		plain, err := r.decrypt(body)
		if err != nil {
			// An undecryptable original is shown as unavailable rather
			// than leaking ciphertext to the caller.
			logrus.WithFields(logrus.Fields{
				"function": "Resolve",
				"chat_id":  r.chatID,
				"reply_to": replyToID,
			}).Warn("Reply target failed to decrypt")
			return Reply{State: ReplyUnavailable}
		}
		body = plain
	}

	return Reply{
		State:    ReplyResolved,
		ID:       original.ID,
		SenderID: original.SenderID,
		Time:     original.Time,
		Body:     body,
	}
}
