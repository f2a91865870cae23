package badgerstore

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/medlock/internal/content"
	"github.com/hengadev/medlock/internal/types"
)

func TestStore_PutGetAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	id, err := s.Put(ctx, []byte(`{"iv":"00","ciphertext":"11"}`))
	require.NoError(t, err)
	again, err := s.Put(ctx, []byte(`{"iv":"00","ciphertext":"11"}`))
	require.NoError(t, err)
	assert.Equal(t, id, again)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `{"iv":"00","ciphertext":"11"}`, string(got))
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	t.Run("unknown cid", func(t *testing.T) {
		missing, err := content.Sum([]byte("never stored"))
		require.NoError(t, err)
		_, err = s.Get(ctx, missing)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("malformed cid", func(t *testing.T) {
		_, err := s.Get(ctx, "not-a-cid")
		assert.ErrorIs(t, err, types.ErrInvalidFormat)
	})

	t.Run("tampered value", func(t *testing.T) {
		id, err := s.Put(ctx, []byte("original"))
		require.NoError(t, err)
		key, err := storageKey(id)
		require.NoError(t, err)
		require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, []byte("tampered"))
		}))

		_, err = s.Get(ctx, id)
		assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	})
}
