package message

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyResolver(t *testing.T) {
	t.Run("empty reference is not a reply", func(t *testing.T) {
		r := NewReplyResolver(NewStore(), "c1", nil)
		assert.Equal(t, ReplyNone, r.Resolve("").State)
	})

	t.Run("live target resolves with body and metadata", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", SenderID: "peer", Body: "hi", Time: 1000})

		got := NewReplyResolver(s, "c1", nil).Resolve("m1")
		assert.Equal(t, ReplyResolved, got.State)
		assert.Equal(t, "m1", got.ID)
		assert.Equal(t, "peer", got.SenderID)
		assert.Equal(t, "hi", got.Body)
		assert.EqualValues(t, 1000, got.Time)
	})

	t.Run("missing target yields the unavailable sentinel", func(t *testing.T) {
		got := NewReplyResolver(NewStore(), "c1", nil).Resolve("never-synced")
		assert.Equal(t, ReplyUnavailable, got.State)
	})

	t.Run("target deleted after being referenced yields the sentinel", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "hi"})
		s.Add(Message{ID: "m2", ChatID: "c1", Body: "re: hi", ReplyTo: "m1"})
		r := NewReplyResolver(s, "c1", nil)

		require.Equal(t, ReplyResolved, r.Resolve("m1").State)
		s.Remove("m1", "c1")
		assert.Equal(t, ReplyUnavailable, r.Resolve("m1").State)
	})

	t.Run("target in another chat does not resolve", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "other", Body: "hi"})
		assert.Equal(t, ReplyUnavailable, NewReplyResolver(s, "c1", nil).Resolve("m1").State)
	})

	t.Run("body passes through the decryptor", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "SEALED:hi"})
		decrypt := func(ciphertext string) (string, error) {
			return strings.TrimPrefix(ciphertext, "SEALED:"), nil
		}

		got := NewReplyResolver(s, "c1", decrypt).Resolve("m1")
		assert.Equal(t, ReplyResolved, got.State)
		assert.Equal(t, "hi", got.Body)
	})

	t.Run("undecryptable target is reported unavailable", func(t *testing.T) {
		s := NewStore()
		s.Add(Message{ID: "m1", ChatID: "c1", Body: "garbage"})
		decrypt := func(string) (string, error) { return "", errors.New("bad key") }

		assert.Equal(t, ReplyUnavailable, NewReplyResolver(s, "c1", decrypt).Resolve("m1").State)
	})
}
