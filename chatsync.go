package chatsync

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatsync/message"
	"github.com/opd-ai/chatsync/transport"
)

var (
	// ErrNilTransport is returned by New when no transport is given.
	ErrNilTransport = errors.New("transport is nil")
	// ErrNotAuthenticated is returned when a send or edit is attempted
	// before a sender id is set. Unauthenticated submissions are
	// rejected explicitly rather than silently dropped.
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrSessionInvalid is returned once the engine has detected a
	// store/relay divergence and invalidated the session.
	ErrSessionInvalid = errors.New("session invalidated")
	// ErrEmptyMessage is returned for a blank submission.
	ErrEmptyMessage = errors.New("message is empty")
)

// Options contains configuration for creating an Engine.
type Options struct {
	// SenderID identifies the authenticated local user. Sends are
	// rejected with ErrNotAuthenticated while it is empty; it can be
	// set later with Engine.SetSenderID once authentication completes.
	SenderID string

	// SendTimeout bounds each send and edit round trip. A timeout is
	// treated identically to an explicit relay rejection.
	SendTimeout time.Duration

	// TypingInterval is the coalescing window for typing-status
	// emissions.
	TypingInterval time.Duration

	// InactiveThreshold is how long the peer may stay silent before
	// OnPartnerInactive fires. Zero disables the check.
	InactiveThreshold time.Duration

	// Decrypt converts opaque message bodies into renderable form for
	// callbacks and reply resolution. Nil means bodies are plaintext.
	Decrypt message.Decryptor

	// CheckBadword screens a body at submission time. The result is
	// stored on the message and never recomputed on edit.
	CheckBadword func(text string) bool

	// FilterBadword redacts a body for display. Exposed to callers
	// through Engine.FilterBadword; the engine itself never rewrites
	// stored bodies.
	FilterBadword func(text string) string

	// GenerateID produces globally-unique client message ids.
	GenerateID func() string
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		SendTimeout:       5 * time.Second,
		TypingInterval:    500 * time.Millisecond,
		InactiveThreshold: 3 * time.Minute,
		GenerateID:        uuid.NewString,
	}
}

// Engine is the message synchronization core for one session. It owns
// the message store and coordinates the outbound synchronizer, the
// inbound event reconciler, and reply resolution.
type Engine struct {
	opts      Options
	transport transport.Transport
	store     *message.Store
	typing    *typingThrottle

	mu       sync.Mutex
	senderID string
	running  bool
	invalid  bool

	onMessage         func(msg message.Message)
	onSendRejected    func(notice string)
	onSessionInvalid  func(err error)
	onPartnerInactive func(chatID string)

	inactiveTimers map[string]*time.Timer
}

// New creates an Engine over the given transport. The transport is
// assumed connected and reliable; reconnect policy belongs to the
// caller.
func New(t transport.Transport, opts *Options) (*Engine, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	if opts == nil {
		opts = NewOptions()
	}
	if opts.GenerateID == nil {
		opts.GenerateID = uuid.NewString
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 5 * time.Second
	}
	if opts.TypingInterval <= 0 {
		opts.TypingInterval = 500 * time.Millisecond
	}

	e := &Engine{
		opts:           *opts,
		transport:      t,
		store:          message.NewStore(),
		senderID:       opts.SenderID,
		inactiveTimers: make(map[string]*time.Timer),
	}
	e.typing = newTypingThrottle(e.opts.TypingInterval, e.emitTyping)

	logrus.WithFields(logrus.Fields{
		"function":     "New",
		"send_timeout": e.opts.SendTimeout,
	}).Info("Engine created")
	return e, nil
}

// SetSenderID records the authenticated local user id. Sends issued
// before this is set fail with ErrNotAuthenticated.
func (e *Engine) SetSenderID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.senderID = id
}

// Store exposes the underlying message store for read-mostly
// collaborators such as presentation code.
func (e *Engine) Store() *message.Store {
	return e.store
}

// Messages returns the chat's messages ordered by submission time.
func (e *Engine) Messages(chatID string) []message.Message {
	return e.store.Sorted(chatID)
}

// ResolveReply resolves a reply reference within a chat. A deleted or
// never-synced target yields the ReplyUnavailable sentinel, never an
// error.
func (e *Engine) ResolveReply(chatID, replyToID string) message.Reply {
	return message.NewReplyResolver(e.store, chatID, e.opts.Decrypt).Resolve(replyToID)
}

// FilterBadword redacts a body for display using the injected filter.
// Without a filter the body is returned unchanged.
func (e *Engine) FilterBadword(text string) string {
	if e.opts.FilterBadword == nil {
		return text
	}
	return e.opts.FilterBadword(text)
}

// OnMessageReceived sets the callback for inbound messages. The body
// has been passed through the session's decryptor; notification
// delivery is the callback's concern.
func (e *Engine) OnMessageReceived(callback func(msg message.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMessage = callback
}

// OnSendRejected sets the callback for relay policy rejections. These
// are one-shot user notices: no state changes and no automatic retry.
func (e *Engine) OnSendRejected(callback func(notice string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSendRejected = callback
}

// OnSessionInvalidated sets the callback invoked once when the local
// store and the relay diverge beyond repair. The expected reaction is
// forcing re-authentication.
func (e *Engine) OnSessionInvalidated(callback func(err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSessionInvalid = callback
}

// OnPartnerInactive sets the callback fired when the peer has been
// silent for Options.InactiveThreshold.
func (e *Engine) OnPartnerInactive(callback func(chatID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPartnerInactive = callback
}

// invalidateSession marks the session unusable and surfaces the fault
// exactly once. Further sends and edits fail with ErrSessionInvalid.
func (e *Engine) invalidateSession(cause error) {
	e.mu.Lock()
	if e.invalid {
		e.mu.Unlock()
		return
	}
	e.invalid = true
	callback := e.onSessionInvalid
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "invalidateSession",
		"error":    cause,
	}).Error("Store and relay diverged; session invalidated")

	if callback != nil {
		callback(cause)
	}
}

func (e *Engine) sessionState() (senderID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invalid {
		return "", ErrSessionInvalid
	}
	if e.senderID == "" {
		return "", ErrNotAuthenticated
	}
	return e.senderID, nil
}
