package medlock

import "github.com/hengadev/medlock/internal/types"

// Protocol constants
const (
	// DefaultKeyMessage is the message every identity signs to derive its record key.
	// Changing it changes every key, so deployments must agree on it.
	DefaultKeyMessage = "EMR Encryption Key"

	// DefaultProgramID is the ledger program the addresses are derived under.
	DefaultProgramID = "BqwVrtrJvBw5GDv8gJkyJpHp1BQc9sq1DexacBNPC3tB"

	// UploadUnitVersion and BundleVersion tag the JSON blobs written to the store.
	UploadUnitVersion = 1
	BundleVersion     = 1
)

// Counter allocation
const (
	// DefaultScanBound is how many record counters are scanned for a free slot.
	DefaultScanBound = 100

	// MaxScanBound is the size of the counter space.
	MaxScanBound = 256

	// DefaultMaxAnchorAttempts bounds rescans after losing a counter race.
	DefaultMaxAnchorAttempts = 5
)

// Field limits, as enforced by the ledger
const (
	MaxMetadataLength = types.MaxMetadataLength
	MaxScopeLength    = types.MaxScopeLength
	MaxDIDLength      = types.MaxDIDLength
	MaxActionLength   = types.MaxActionLength
)

// Environment variable names
const (
	EnvProgramID         = "MEDLOCK_PROGRAM_ID"
	EnvKeyMessage        = "MEDLOCK_KEY_MESSAGE"
	EnvKeyDerivation     = "MEDLOCK_KEY_DERIVATION"
	EnvScanBound         = "MEDLOCK_SCAN_BOUND"
	EnvMaxAnchorAttempts = "MEDLOCK_MAX_ANCHOR_ATTEMPTS"
	EnvRerequestPolicy   = "MEDLOCK_REREQUEST_POLICY"
	EnvAuditReads        = "MEDLOCK_AUDIT_READS"
	EnvDataDir           = "MEDLOCK_DATA_DIR"

	// EnvStoreBackend selects memory, badger, s3 or ipfs.
	EnvStoreBackend = "MEDLOCK_STORE"
	EnvBadgerPath   = "MEDLOCK_BADGER_PATH"
	EnvS3Bucket     = "MEDLOCK_S3_BUCKET"
	EnvS3Region     = "MEDLOCK_S3_REGION"
	EnvS3Prefix     = "MEDLOCK_S3_PREFIX"
	EnvGatewayURL   = "MEDLOCK_IPFS_GATEWAY"
	EnvRPCURL       = "MEDLOCK_IPFS_RPC"

	// EnvLedgerBackend selects memory or sqlite.
	EnvLedgerBackend = "MEDLOCK_LEDGER"
	EnvSQLitePath    = "MEDLOCK_SQLITE_PATH"

	EnvLogLevel  = "MEDLOCK_LOG_LEVEL"
	EnvLogFormat = "MEDLOCK_LOG_FORMAT"
)

// Default values
const (
	// DefaultDataDir holds the local ledger and blob databases.
	DefaultDataDir = ".medlock"

	DefaultLedgerFilename = "ledger.db"
	DefaultBadgerDirname  = "blobs"
)
