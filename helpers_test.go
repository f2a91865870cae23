package medlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hengadev/medlock/internal/program"
	"github.com/hengadev/medlock/providers/ledger/local"
	"github.com/hengadev/medlock/providers/signer/keyfile"
	"github.com/hengadev/medlock/providers/store/memstore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSigner(t *testing.T, seed byte) *keyfile.Signer {
	t.Helper()
	s := make([]byte, 32)
	s[0] = seed
	s[31] = 0x5a
	signer, err := keyfile.FromSeed(s)
	require.NoError(t, err)
	return signer
}

type fixture struct {
	client *Client
	ledger *local.Ledger
	store  *memstore.Store
	clock  *testClock
}

func testConfig() Config {
	return Config{
		DataDir: "unused",
		Store:   StoreConfig{Backend: StoreMemory},
		Ledger:  LedgerConfig{Backend: LedgerMemory},
	}
}

// newFixture builds a client over the in-memory ledger and store, sharing one clock.
func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	clock := newTestClock()
	require.NoError(t, cfg.Validate())

	ledger := local.NewMemory(cfg.programKey(),
		program.WithClock(clock.Now),
		program.WithRerequestPolicy(cfg.RerequestPolicy))
	store := memstore.New()

	client, err := New(cfg, ledger, store, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return &fixture{client: client, ledger: ledger, store: store, clock: clock}
}
