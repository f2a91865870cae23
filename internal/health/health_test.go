package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/medlock/internal/types"
)

type fakeLedger struct{ err error }

func (f fakeLedger) ReadAccount(context.Context, types.Address) ([]byte, error) {
	return nil, f.err
}

type fakeStore struct {
	putErr error
	blobs  map[types.ContentID][]byte
}

func (f *fakeStore) Put(_ context.Context, data []byte) (types.ContentID, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	id := types.ContentID("sample")
	f.blobs[id] = data
	return id, nil
}

func (f *fakeStore) Get(_ context.Context, id types.ContentID) ([]byte, error) {
	data, ok := f.blobs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return data, nil
}

func TestChecker_Register(t *testing.T) {
	c := NewChecker("test")
	assert.Error(t, c.Register(Check{CheckFunc: func(context.Context) (Status, error) { return StatusHealthy, nil }}))
	assert.Error(t, c.Register(Check{Name: "x"}))
}

func TestChecker_Run(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		checks []Check
		want   Status
	}{
		{name: "no checks", want: StatusUnknown},
		{
			name: "all healthy",
			checks: []Check{
				LedgerCheck(fakeLedger{err: types.ErrNotFound}, types.Address{}),
				StoreCheck(&fakeStore{blobs: map[types.ContentID][]byte{}}),
				SignerCheck(func() bool { return true }),
			},
			want: StatusHealthy,
		},
		{
			name: "disconnected signer degrades",
			checks: []Check{
				LedgerCheck(fakeLedger{}, types.Address{}),
				SignerCheck(func() bool { return false }),
			},
			want: StatusDegraded,
		},
		{
			name: "open breaker degrades",
			checks: []Check{
				BreakerCheck("gateway_breaker", func() bool { return true }),
			},
			want: StatusDegraded,
		},
		{
			name: "ledger down is unhealthy",
			checks: []Check{
				LedgerCheck(fakeLedger{err: types.ErrLedgerUnavailable}, types.Address{}),
				SignerCheck(func() bool { return true }),
			},
			want: StatusUnhealthy,
		},
		{
			name: "store down is unhealthy",
			checks: []Check{
				StoreCheck(&fakeStore{putErr: types.ErrStoreUnavailable}),
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			for _, check := range tt.checks {
				require.NoError(t, c.Register(check))
			}
			report := c.Run(ctx)
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Results, len(tt.checks))
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := NewChecker("test")
	require.NoError(t, c.Register(Check{
		Name:     "slow",
		Critical: true,
		Timeout:  10 * time.Millisecond,
		CheckFunc: func(ctx context.Context) (Status, error) {
			<-ctx.Done()
			return StatusHealthy, ctx.Err()
		},
	}))

	report := c.Run(context.Background())
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusUnhealthy, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, "deadline exceeded")
}
