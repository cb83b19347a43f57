package chatsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/chatsync/transport"
)

func TestTypingThrottle(t *testing.T) {
	t.Run("rapid signals coalesce to one emission with the latest state", func(t *testing.T) {
		mock := transport.NewMock()
		e := newTestEngine(t, mock, func(o *Options) {
			o.TypingInterval = 40 * time.Millisecond
		})

		e.Typing("c1", true)
		e.Typing("c1", false)

		time.Sleep(120 * time.Millisecond)

		typings := mock.Typings()
		require.Len(t, typings, 1)
		assert.False(t, typings[0].IsTyping, "the final keystroke's state wins")
		assert.Equal(t, "c1", typings[0].ChatID)
	})

	t.Run("signals in separate windows each emit", func(t *testing.T) {
		mock := transport.NewMock()
		e := newTestEngine(t, mock, func(o *Options) {
			o.TypingInterval = 20 * time.Millisecond
		})

		e.Typing("c1", true)
		time.Sleep(60 * time.Millisecond)
		e.Typing("c1", false)
		time.Sleep(60 * time.Millisecond)

		typings := mock.Typings()
		require.Len(t, typings, 2)
		assert.True(t, typings[0].IsTyping)
		assert.False(t, typings[1].IsTyping)
	})

	t.Run("chats are throttled independently", func(t *testing.T) {
		mock := transport.NewMock()
		e := newTestEngine(t, mock, func(o *Options) {
			o.TypingInterval = 20 * time.Millisecond
		})

		e.Typing("c1", true)
		e.Typing("c2", true)
		time.Sleep(60 * time.Millisecond)

		assert.Len(t, mock.Typings(), 2)
	})

	t.Run("cancelling an edit clears the indicator immediately", func(t *testing.T) {
		mock := transport.NewMock()
		e := newTestEngine(t, mock, func(o *Options) {
			o.TypingInterval = time.Hour
		})

		e.Typing("c1", true)
		e.CancelEdit("c1")

		typings := mock.Typings()
		require.Len(t, typings, 1)
		assert.False(t, typings[0].IsTyping)

		// The pending coalesced emission was cancelled along the way.
		time.Sleep(30 * time.Millisecond)
		assert.Len(t, mock.Typings(), 1)
	})

	t.Run("stop cancels pending emissions", func(t *testing.T) {
		mock := transport.NewMock()
		e := newTestEngine(t, mock, func(o *Options) {
			o.TypingInterval = 30 * time.Millisecond
		})
		require.NoError(t, e.Start())

		e.Typing("c1", true)
		e.Stop()

		time.Sleep(80 * time.Millisecond)
		assert.Empty(t, mock.Typings())
	})
}
