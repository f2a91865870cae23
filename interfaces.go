package medlock

import "context"

// Signer is an identity that can sign messages: a wallet, a key file or a
// remote key service. The private key never crosses this interface.
//
// Implementations:
//   - Local key file: github.com/hengadev/medlock/providers/signer/keyfile
//   - HashiCorp Vault Transit: github.com/hengadev/medlock/providers/signer/vaulttransit
type Signer interface {
	// PublicKey returns the ed25519 public key of the identity.
	PublicKey() PublicKey

	// SignMessage returns a 64-byte ed25519 signature over msg.
	//
	// It returns an error wrapping ErrUserDeclined when the holder refuses,
	// and ErrSigningUnavailable when the signer cannot be reached.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)

	// Connected reports whether the signer can currently sign.
	Connected() bool
}

// ContentStore keeps opaque blobs addressed by their CIDv1 (raw codec, sha2-256).
//
// Put is idempotent: storing the same bytes twice returns the same CID.
// Get verifies that the returned bytes hash to id.
//
// Implementations:
//   - In memory: providers/store/memstore
//   - BadgerDB: providers/store/badgerstore
//   - S3: providers/store/s3store
//   - IPFS gateway and Kubo RPC: providers/store/gateway
type ContentStore interface {
	Put(ctx context.Context, data []byte) (ContentID, error)

	// Get returns ErrNotFound for an unknown CID and ErrStoreUnavailable for
	// transport or integrity failures.
	Get(ctx context.Context, id ContentID) ([]byte, error)
}

// Ledger reads program accounts and submits signed instructions.
//
// The ledger enforces the program rules: only doctors request access, only the
// subject responds, only the owner anchors records, and every account is created
// at most once. Violations surface as ErrRoleViolation, ErrUnauthorized or
// ErrAlreadyExists.
//
// Implementations:
//   - In process over memory or SQLite: providers/ledger/local
type Ledger interface {
	// ReadAccount returns the raw account data at addr, or ErrNotFound.
	ReadAccount(ctx context.Context, addr Address) ([]byte, error)

	// Submit applies one signed instruction.
	Submit(ctx context.Context, ix SignedInstruction) (Receipt, error)
}
