package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeOf(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func newTestBatch(t *testing.T) *Batch {
	t.Helper()
	b, err := NewBatch(uuid.New(), uuid.New(), uuid.New(), nil)
	require.NoError(t, err)
	return b
}

func TestBatchVerify(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	t.Run("first and second verifier fill the slots", func(t *testing.T) {
		b := newTestBatch(t)
		require.NoError(t, b.Verify(alice))
		require.NoError(t, b.Verify(bob))
		assert.Equal(t, alice, *b.VerifiedBy1)
		assert.Equal(t, bob, *b.VerifiedBy2)
		assert.True(t, b.IsFullyVerified())
		assert.Equal(t, 3, b.Version)
	})

	t.Run("same user cannot verify twice", func(t *testing.T) {
		b := newTestBatch(t)
		require.NoError(t, b.Verify(alice))
		err := b.Verify(alice)
		assert.Equal(t, shared.CodeDualVerification, codeOf(err))
		assert.Nil(t, b.VerifiedBy2)
	})

	t.Run("third verification rejected", func(t *testing.T) {
		b := newTestBatch(t)
		require.NoError(t, b.Verify(alice))
		require.NoError(t, b.Verify(bob))
		assert.Equal(t, shared.CodeDualVerification, codeOf(b.Verify(carol)))
	})

	t.Run("locked batch cannot be verified", func(t *testing.T) {
		b := newTestBatch(t)
		b.Status = BatchStatusLocked
		assert.Equal(t, shared.CodeInvalidState, codeOf(b.Verify(alice)))
	})
}

func TestBatchLock(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	verified := func(t *testing.T) *Batch {
		b := newTestBatch(t)
		require.NoError(t, b.Verify(alice))
		require.NoError(t, b.Verify(bob))
		return b
	}

	t.Run("third user locks a fully verified batch", func(t *testing.T) {
		b := verified(t)
		require.NoError(t, b.Lock(carol, now))
		assert.True(t, b.IsLocked())
		assert.Equal(t, carol, *b.LockedBy)
		assert.Equal(t, now, *b.LockedAt)
	})

	t.Run("verifier cannot lock", func(t *testing.T) {
		b := verified(t)
		assert.Equal(t, shared.CodeDualVerification, codeOf(b.Lock(alice, now)))
		assert.Equal(t, shared.CodeDualVerification, codeOf(b.Lock(bob, now)))
		assert.False(t, b.IsLocked())
	})

	t.Run("single verification is not enough", func(t *testing.T) {
		b := newTestBatch(t)
		require.NoError(t, b.Verify(alice))
		assert.Equal(t, shared.CodeDualVerification, codeOf(b.Lock(carol, now)))
	})

	t.Run("unlock returns to draft", func(t *testing.T) {
		b := verified(t)
		require.NoError(t, b.Lock(carol, now))
		require.NoError(t, b.Unlock())
		assert.Equal(t, BatchStatusDraft, b.Status)
		assert.Nil(t, b.LockedBy)
		assert.Nil(t, b.LockedAt)
		assert.Equal(t, shared.CodeInvalidState, codeOf(b.Unlock()))
	})

	t.Run("locked batch rejects updates", func(t *testing.T) {
		b := verified(t)
		require.NoError(t, b.Lock(carol, now))
		assert.Equal(t, shared.CodeInvalidState, codeOf(b.ChangeService(nil)))
		assert.Equal(t, shared.CodeInvalidState, codeOf(b.Lock(uuid.New(), now)))
	})
}
