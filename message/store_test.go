package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAdd(t *testing.T) {
	t.Run("stores message keyed by chat and id", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "hi", Time: 1000})

		got := s.Get("c1", "m1")
		require.NotNil(t, got)
		assert.Equal(t, "hi", got.Body)
		assert.Equal(t, "m1", got.OriginalID)
	})

	t.Run("adding the same id twice is an upsert", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "hi", Time: 1000})
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "hi again", Time: 1000})

		got := s.Get("c1", "m1")
		require.NotNil(t, got)
		assert.Equal(t, "hi again", got.Body)
		assert.Len(t, s.Sorted("c1"), 1)
	})

	t.Run("same id in different chats stays distinct", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "one"})
		s.Add(Message{ID: "m1", ChatID: "c2", Body: "two"})

		require.NotNil(t, s.Get("c1", "m1"))
		require.NotNil(t, s.Get("c2", "m1"))
		assert.Equal(t, "one", s.Get("c1", "m1").Body)
		assert.Equal(t, "two", s.Get("c2", "m1").Body)
	})
}

func TestStoreUpdate(t *testing.T) {
	t.Run("promotes pending to sent by exact id", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "hi", Status: StatusPending})

		err := s.Update(Message{ID: "m1", ChatID: "c1", Status: StatusSent}, false)
		require.NoError(t, err)
		assert.Equal(t, StatusSent, s.Get("c1", "m1").Status)
	})

	t.Run("unknown id fails without creating a duplicate", func(t *testing.T) {
		s := NewStore()
		err := s.Update(Message{ID: "ghost", ChatID: "c1", Body: "boo"}, false)
		assert.ErrorIs(t, err, ErrUnknownMessage)
		assert.Nil(t, s.Get("c1", "ghost"))
		assert.Empty(t, s.Sorted("c1"))
	})

	t.Run("re-keys placeholder to server id via original id", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "client-1", ChatID: "c1", Body: "hi", Time: 1000, Status: StatusPending})

		err := s.Update(Message{
			ID:         "srv-1",
			OriginalID: "client-1",
			ChatID:     "c1",
			Status:     StatusSent,
		}, true)
		require.NoError(t, err)

		assert.Nil(t, s.Get("c1", "client-1"), "placeholder id must not dangle")
		got := s.Get("c1", "srv-1")
		require.NotNil(t, got)
		assert.Equal(t, StatusSent, got.Status)
		assert.Equal(t, "client-1", got.OriginalID)
		assert.EqualValues(t, 1000, got.Time, "client time is never revised")
		assert.Len(t, s.Sorted("c1"), 1, "never two entries for one logical send")
	})

	t.Run("edit referencing the original id lands on the re-keyed entry", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "client-1", ChatID: "c1", Body: "hi", Status: StatusPending})
		require.NoError(t, s.Update(Message{ID: "srv-1", OriginalID: "client-1", ChatID: "c1", Status: StatusSent}, true))

		err := s.Update(Message{
			ID:          "client-1",
			ChatID:      "c1",
			Body:        "hello",
			IsEdited:    true,
			EditHistory: []string{"hi"},
		}, true)
		require.NoError(t, err)

		got := s.Get("c1", "srv-1")
		require.NotNil(t, got)
		assert.Equal(t, "hello", got.Body)
		assert.True(t, got.IsEdited)
		assert.Equal(t, []string{"hi"}, got.EditHistory)
		assert.Len(t, s.Sorted("c1"), 1)
	})

	t.Run("original-id fallback needs the flag", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "client-1", ChatID: "c1", Status: StatusPending})
		require.NoError(t, s.Update(Message{ID: "srv-1", OriginalID: "client-1", ChatID: "c1", Status: StatusSent}, true))

		err := s.Update(Message{ID: "client-1", ChatID: "c1", Body: "x"}, false)
		assert.ErrorIs(t, err, ErrUnknownMessage)
	})

	t.Run("ambiguous match is a consistency violation", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "client-1", ChatID: "c1", Status: StatusPending})
		require.NoError(t, s.Update(Message{ID: "srv-1", OriginalID: "client-1", ChatID: "c1", Status: StatusSent}, true))
		s.Add(Message{ID: "srv-2", ChatID: "c1", Body: "other"})

		// An upgrade claiming srv-2 correlates to client-1 matches two
		// different live entries at once.
		err := s.Update(Message{ID: "srv-2", OriginalID: "client-1", ChatID: "c1", Body: "x"}, true)
		assert.ErrorIs(t, err, ErrAmbiguousMatch)
	})

	t.Run("edit history is length-monotonic", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "v1"})

		require.NoError(t, s.Update(Message{ID: "m1", ChatID: "c1", Body: "v2", IsEdited: true, EditHistory: []string{"v1"}}, false))
		require.NoError(t, s.Update(Message{ID: "m1", ChatID: "c1", Body: "v3", IsEdited: true, EditHistory: []string{"v1", "v2"}}, false))

		got := s.Get("c1", "m1")
		assert.Equal(t, []string{"v1", "v2"}, got.EditHistory)

		// A stale echo carrying a shorter history must not shrink it.
		require.NoError(t, s.Update(Message{ID: "m1", ChatID: "c1", Body: "v3", IsEdited: true, EditHistory: []string{"v1"}}, false))
		assert.Equal(t, []string{"v1", "v2"}, s.Get("c1", "m1").EditHistory)
	})

	t.Run("duplicate edit echo is idempotent", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "v1"})
		echo := Message{ID: "m1", ChatID: "c1", Body: "v2", IsEdited: true, EditHistory: []string{"v1"}}

		require.NoError(t, s.Update(echo, true))
		first := s.Get("c1", "m1")
		require.NoError(t, s.Update(echo, true))
		second := s.Get("c1", "m1")

		assert.Equal(t, *first, *second)
	})

	t.Run("reply target is immutable once set", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "hi", ReplyTo: "m0"})

		require.NoError(t, s.Update(Message{ID: "m1", ChatID: "c1", ReplyTo: "other"}, false))
		assert.Equal(t, "m0", s.Get("c1", "m1").ReplyTo)
	})
}

func TestStoreRemove(t *testing.T) {
	t.Run("removes the entry and its index", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "client-1", ChatID: "c1", Status: StatusPending})
		require.NoError(t, s.Update(Message{ID: "srv-1", OriginalID: "client-1", ChatID: "c1", Status: StatusSent}, true))

		s.Remove("srv-1", "c1")
		assert.Nil(t, s.Get("c1", "srv-1"))

		// The index entry must not resurrect the message.
		err := s.Update(Message{ID: "client-1", ChatID: "c1", Body: "x"}, true)
		assert.ErrorIs(t, err, ErrUnknownMessage)
	})

	t.Run("deleting an absent id is a no-op", func(t *testing.T) {
		s := NewStore()
		s.Remove("ghost", "c1")
		s.Remove("ghost", "c1")
		assert.Empty(t, s.Sorted("c1"))
	})
}

func TestStoreMarkRead(t *testing.T) {
	t.Run("sets the read flag", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1"})
		s.MarkRead("m1", "c1")
		assert.True(t, s.Get("c1", "m1").IsRead)
	})

	t.Run("is idempotent", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1"})
		s.MarkRead("m1", "c1")
		first := s.Get("c1", "m1")
		s.MarkRead("m1", "c1")
		assert.Equal(t, *first, *s.Get("c1", "m1"))
	})

	t.Run("receipt for an absent message is a no-op", func(t *testing.T) {
		s := NewStore()
		s.MarkRead("ghost", "c1")
		assert.Empty(t, s.Sorted("c1"))
	})
}

func TestStoreSorted(t *testing.T) {
	t.Run("orders by time regardless of insertion order", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "b", ChatID: "c1", Time: 3000})
		s.Add(Message{ID: "a", ChatID: "c1", Time: 1000})
		s.Add(Message{ID: "c", ChatID: "c1", Time: 2000})

		view := s.Sorted("c1")
		require.Len(t, view, 3)
		assert.Equal(t, "a", view[0].ID)
		assert.Equal(t, "c", view[1].ID)
		assert.Equal(t, "b", view[2].ID)
	})

	t.Run("ties break by id for a stable view", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "z", ChatID: "c1", Time: 1000})
		s.Add(Message{ID: "a", ChatID: "c1", Time: 1000})

		view := s.Sorted("c1")
		require.Len(t, view, 2)
		assert.Equal(t, "a", view[0].ID)
	})

	t.Run("mutating the returned view leaves the store untouched", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "hi", EditHistory: []string{"v0"}})

		view := s.Sorted("c1")
		view[0].Body = "mutated"
		view[0].EditHistory[0] = "mutated"

		got := s.Get("c1", "m1")
		assert.Equal(t, "hi", got.Body)
		assert.Equal(t, []string{"v0"}, got.EditHistory)
	})
}

func TestStoreLastPeerActivity(t *testing.T) {
	s := NewStore()
	s.Add(Message{ID: "m1", ChatID: "c1", SenderID: "me", Time: 5000})
	s.Add(Message{ID: "m2", ChatID: "c1", SenderID: "peer", Time: 2000})
	s.Add(Message{ID: "m3", ChatID: "c1", SenderID: "peer", Time: 4000})

	assert.EqualValues(t, 4000, s.LastPeerActivity("c1", "me"))
	assert.EqualValues(t, 0, s.LastPeerActivity("empty", "me"))
}
