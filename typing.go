package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/opd-ai/chatsync/transport"
)

// Typing signals the local user's typing state for a chat. Signals
// are coalesced: at most one typing-status emission per
// Options.TypingInterval, with the trailing emission always carrying
// the latest state so the final keystroke is never dropped.
func (e *Engine) Typing(chatID string, isTyping bool) {
	e.typing.Signal(chatID, isTyping)
}

// CancelEdit discards an in-progress edit. The edit itself needs no
// relay call; only the peer's typing indicator is cleared, bypassing
// the coalescing window.
func (e *Engine) CancelEdit(chatID string) {
	e.typing.Flush(chatID, false)
}

// emitTyping is the throttle's sink: a fire-and-forget relay emission
// with a best-effort ack timeout.
func (e *Engine) emitTyping(chatID string, isTyping bool) {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.SendTimeout)
	defer cancel()
	_ = e.transport.EmitTyping(ctx, transport.TypingStatus{
		ChatID:   chatID,
		IsTyping: isTyping,
	})
}

// typingThrottle coalesces typing signals per chat. Rapid signals
// within one interval collapse into a single deferred emission
// reflecting only the latest state. This is a throttling policy, not
// a correctness requirement; Flush exists for transitions that must
// go out immediately.
type typingThrottle struct {
	interval time.Duration
	emit     func(chatID string, isTyping bool)

	mu    sync.Mutex
	chats map[string]*typingState
}

type typingState struct {
	timer  *time.Timer
	latest bool
	armed  bool
}

func newTypingThrottle(interval time.Duration, emit func(chatID string, isTyping bool)) *typingThrottle {
	return &typingThrottle{
		interval: interval,
		emit:     emit,
		chats:    make(map[string]*typingState),
	}
}

// Signal records the latest typing state and arms the trailing
// emission if one is not already scheduled.
func (t *typingThrottle) Signal(chatID string, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.chats[chatID]
	if !ok {
		st = &typingState{}
		t.chats[chatID] = st
	}
	st.latest = isTyping
	if st.armed {
		return
	}
	st.armed = true
	st.timer = time.AfterFunc(t.interval, func() { t.fire(chatID) })
}

func (t *typingThrottle) fire(chatID string) {
	t.mu.Lock()
	st, ok := t.chats[chatID]
	if !ok || !st.armed {
		t.mu.Unlock()
		return
	}
	st.armed = false
	latest := st.latest
	t.mu.Unlock()

	t.emit(chatID, latest)
}

// Flush cancels any pending emission for the chat and emits the given
// state immediately.
func (t *typingThrottle) Flush(chatID string, isTyping bool) {
	t.mu.Lock()
	if st, ok := t.chats[chatID]; ok && st.armed {
		st.timer.Stop()
		st.armed = false
	}
	t.mu.Unlock()

	t.emit(chatID, isTyping)
}

// Stop cancels all pending emissions.
func (t *typingThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.chats {
		if st.armed {
			st.timer.Stop()
			st.armed = false
		}
	}
}
