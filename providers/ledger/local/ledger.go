// Package local runs the on-ledger program in process, over memory or a SQLite
// file. It stands in for a remote cluster in development, tests and the CLI.
package local

import (
	"context"
	"fmt"

	"github.com/hengadev/medlock/internal/program"
	"github.com/hengadev/medlock/internal/types"
)

// Ledger submits signed instructions to an in-process program.
type Ledger struct {
	program *program.Program
	closeFn func() error
}

// NewMemory returns a ledger whose accounts live in memory.
func NewMemory(programID types.PublicKey, opts ...program.Option) *Ledger {
	return &Ledger{program: program.New(programID, program.NewMemoryStore(), opts...)}
}

// OpenSQLite returns a ledger persisted to the SQLite file at path.
func OpenSQLite(path string, programID types.PublicKey, opts ...program.Option) (*Ledger, error) {
	store, err := OpenSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrLedgerUnavailable, err)
	}
	return &Ledger{
		program: program.New(programID, store, opts...),
		closeFn: store.Close,
	}, nil
}

// ProgramID returns the program the ledger's addresses derive under.
func (l *Ledger) ProgramID() types.PublicKey {
	return l.program.Deriver().Program()
}

func (l *Ledger) ReadAccount(ctx context.Context, addr types.Address) ([]byte, error) {
	return l.program.ReadAccount(ctx, addr)
}

func (l *Ledger) Submit(ctx context.Context, ix types.SignedInstruction) (types.Receipt, error) {
	return l.program.Execute(ctx, ix)
}

func (l *Ledger) Close() error {
	if l.closeFn == nil {
		return nil
	}
	return l.closeFn()
}
