package local

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/medlock/internal/address"
	"github.com/hengadev/medlock/internal/types"
)

func keyFromSeed(seed byte) (ed25519.PrivateKey, types.PublicKey) {
	s := make([]byte, ed25519.SeedSize)
	s[0] = seed
	priv := ed25519.NewKeyFromSeed(s)
	var pub types.PublicKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return priv, pub
}

func signed(t *testing.T, priv ed25519.PrivateKey, ix types.Instruction) types.SignedInstruction {
	t.Helper()
	msg, err := ix.SigningBytes()
	require.NoError(t, err)
	return types.SignedInstruction{Instruction: ix, Signature: ed25519.Sign(priv, msg)}
}

func TestSQLiteLedger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	_, programID := keyFromSeed(99)
	priv, pub := keyFromSeed(1)

	l, err := OpenSQLite(path, programID)
	require.NoError(t, err)

	receipt, err := l.Submit(ctx, signed(t, priv, types.RegisterInstruction{Signer: pub, Role: types.RolePatient, DID: "did:example:p"}))
	require.NoError(t, err)
	assert.Equal(t, address.NewDeriver(programID).User(pub), receipt.Address)
	assert.Equal(t, uint64(1), receipt.Slot)

	_, err = l.Submit(ctx, signed(t, priv, types.AddRecordInstruction{Owner: pub, Counter: 0, CID: "bafyrecord", Metadata: "labs"}))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := OpenSQLite(path, programID)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.ReadAccount(ctx, address.NewDeriver(programID).Record(pub, 0))
	require.NoError(t, err)
	var rec types.RecordAccount
	require.NoError(t, rec.UnmarshalBinary(data))
	assert.Equal(t, types.ContentID("bafyrecord"), rec.CID)
	assert.Equal(t, pub, rec.Owner)

	_, err = reopened.Submit(ctx, signed(t, priv, types.RegisterInstruction{Signer: pub, Role: types.RoleDoctor, DID: "did:example:again"}))
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), types.Address{7})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLiteStore_MutateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	addr := types.Address{1}
	_, err = store.Mutate(ctx, addr, func(cur []byte, exists bool) ([]byte, error) {
		return nil, types.ErrAlreadyExists
	})
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	_, err = store.Get(ctx, addr)
	assert.ErrorIs(t, err, types.ErrNotFound)

	slot, err := store.Mutate(ctx, addr, func(cur []byte, exists bool) ([]byte, error) {
		assert.False(t, exists)
		return []byte("v1"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), slot)

	slot, err = store.Mutate(ctx, addr, func(cur []byte, exists bool) ([]byte, error) {
		assert.True(t, exists)
		assert.Equal(t, []byte("v1"), cur)
		return []byte("v2"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), slot)
}

func TestSQLiteStore_ConcurrentCreateOnce(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Mutate(ctx, types.Address{9}, func(cur []byte, exists bool) ([]byte, error) {
				if exists {
					return nil, types.ErrAlreadyExists
				}
				return []byte{byte(i)}, nil
			})
			if err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	_, programID := keyFromSeed(99)
	priv, pub := keyFromSeed(1)

	l := NewMemory(programID)
	assert.Equal(t, programID, l.ProgramID())

	_, err := l.Submit(ctx, signed(t, priv, types.RegisterInstruction{Signer: pub, Role: types.RolePatient}))
	require.NoError(t, err)

	_, otherPub := keyFromSeed(2)
	_, err = l.Submit(ctx, signed(t, priv, types.RegisterInstruction{Signer: otherPub, Role: types.RolePatient}))
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	assert.NoError(t, l.Close())
}
