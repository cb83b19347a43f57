package message

// Status represents the delivery status of a locally authored message.
type Status string

const (
	// StatusPending means the message was created optimistically and
	// the relay has not yet settled the send.
	StatusPending Status = "pending"
	// StatusSent means the relay confirmed delivery.
	StatusSent Status = "sent"
	// StatusFailed means the send settled with a timeout or rejection.
	// Failed messages are retryable with a fresh id.
	StatusFailed Status = "failed"
)

// Settled reports whether the status is a terminal outcome. The empty
// status counts as settled: messages received from the relay carry no
// status and are treated as sent by convention.
func (s Status) Settled() bool {
	return s != StatusPending
}

// OrSent normalizes the empty status to StatusSent.
func (s Status) OrSent() Status {
	if s == "" {
		return StatusSent
	}
	return s
}

// Decryptor converts an opaque message body into its renderable form.
// The engine never participates in key management; callers inject
// whatever decryption the session uses. A nil Decryptor means bodies
// are already plaintext.
type Decryptor func(ciphertext string) (string, error)

// Message represents a single chat message.
type Message struct {
	// ID is the current identifier: a client-generated UUID before
	// confirmation, the server-assigned id after.
	ID string
	// OriginalID is the id the message was first created under. It
	// never changes once set, even when ID is re-keyed.
	OriginalID string
	SenderID   string
	ChatID     string
	// Body is the message content, opaque until decrypted for display.
	Body string
	// Time is the client-assigned submission time in epoch
	// milliseconds. It is the total order key within a chat and is
	// never revised by the server.
	Time   int64
	Status Status
	// IsEdited marks a message whose body was changed after delivery.
	IsEdited bool
	// EditHistory holds prior bodies, oldest first. It only grows, and
	// only on a confirmed edit.
	EditHistory []string
	// ContainsBadword is computed once at submission time and is not
	// re-evaluated on edit.
	ContainsBadword bool
	IsRead          bool
	// ReplyTo references the id of the message this one responds to,
	// within the same chat. Empty means not a reply. Immutable once
	// set.
	ReplyTo string
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() Message {
	c := *m
	if m.EditHistory != nil {
		c.EditHistory = make([]string, len(m.EditHistory))
		copy(c.EditHistory, m.EditHistory)
	}
	return c
}
