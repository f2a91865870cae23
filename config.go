package medlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hengadev/errsx"

	"github.com/hengadev/medlock/internal/config"
	"github.com/hengadev/medlock/internal/monitoring"
	"github.com/hengadev/medlock/internal/program"
	"github.com/hengadev/medlock/internal/types"
)

// RerequestPolicy decides whether a closed access request slot may be reused.
type RerequestPolicy = program.RerequestPolicy

const (
	// RerequestNever allows one lifetime decision per (doctor, patient) pair.
	RerequestNever = program.RerequestNever
	// RerequestAfterClose reopens a Denied or expired slot as a new Pending request.
	RerequestAfterClose = program.RerequestAfterClose
)

// Store backends
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreS3     = "s3"
	StoreIPFS   = "ipfs"
)

// Ledger backends
const (
	LedgerMemory = "memory"
	LedgerSQLite = "sqlite"
)

// Config holds the configuration for a Client and the collaborators the CLI builds.
//
// This struct contains only data. It can be loaded from the environment
// (LoadConfigFromEnvironment), a YAML file (LoadConfigFile) or written in code,
// and is passed explicitly to New.
//
// Every field is optional. Validate applies the defaults:
//
//	cfg := medlock.Config{ScanBound: 32}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	client, err := medlock.New(cfg, ledger, store)
type Config struct {
	// ProgramID is the base58 ledger program the addresses derive under.
	// Default: DefaultProgramID
	ProgramID string `yaml:"program_id"`

	// KeyMessage is the message signed to derive record keys.
	// Default: "EMR Encryption Key"
	KeyMessage string `yaml:"key_message"`

	// KeyDerivation is "sha256" (default) or "hkdf-sha256".
	KeyDerivation KeyDerivation `yaml:"key_derivation"`

	// ScanBound is how many counters are scanned per owner, in [1, 256].
	// Default: 100
	ScanBound int `yaml:"scan_bound"`

	// MaxAnchorAttempts bounds rescans after a lost counter race.
	// Default: 5
	MaxAnchorAttempts int `yaml:"max_anchor_attempts"`

	// RerequestPolicy is "never" (default) or "after-close". It must match the
	// policy the ledger enforces.
	RerequestPolicy RerequestPolicy `yaml:"rerequest_policy"`

	// AuditReads writes a ledger access log for every ReadRecord and FetchCapability.
	AuditReads bool `yaml:"audit_reads"`

	// DataDir holds the local ledger and blob databases.
	// Default: .medlock under the project root, or the working directory.
	DataDir string `yaml:"data_dir"`

	Store  StoreConfig  `yaml:"store"`
	Ledger LedgerConfig `yaml:"ledger"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig selects and configures the content store.
type StoreConfig struct {
	// Backend is memory, badger (default), s3 or ipfs.
	Backend    string `yaml:"backend"`
	BadgerPath string `yaml:"badger_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	GatewayURL string `yaml:"gateway_url"`
	RPCURL     string `yaml:"rpc_url"`
}

// LedgerConfig selects and configures the ledger.
type LedgerConfig struct {
	// Backend is memory or sqlite (default).
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string               `yaml:"level"`
	Format monitoring.LogFormat `yaml:"format"`
}

// Validate checks the configuration and applies defaults to empty fields.
// Problems are reported together in an errsx.Map keyed by field, wrapped in
// ErrInvalidConfiguration.
func (c *Config) Validate() error {
	c.applyDefaults()

	errs := errsx.Map{}

	if _, err := types.ParsePublicKey(c.ProgramID); err != nil {
		errs.Set("program_id", fmt.Errorf("not a base58 public key: %q", c.ProgramID))
	}
	if types.HasInstructionPrefix([]byte(c.KeyMessage)) {
		errs.Set("key_message", fmt.Errorf("must not start with the instruction prefix"))
	}
	if !c.KeyDerivation.Valid() {
		errs.Set("key_derivation", fmt.Errorf("must be %s or %s, got %q", DerivationSHA256, DerivationHKDF, c.KeyDerivation))
	}
	if c.ScanBound < 1 || c.ScanBound > MaxScanBound {
		errs.Set("scan_bound", fmt.Errorf("must be between 1 and %d, got %d", MaxScanBound, c.ScanBound))
	}
	if c.MaxAnchorAttempts < 1 {
		errs.Set("max_anchor_attempts", fmt.Errorf("must be at least 1, got %d", c.MaxAnchorAttempts))
	}
	if !c.RerequestPolicy.Valid() {
		errs.Set("rerequest_policy", fmt.Errorf("must be %s or %s, got %q", RerequestNever, RerequestAfterClose, c.RerequestPolicy))
	}

	switch c.Store.Backend {
	case StoreMemory, StoreBadger:
	case StoreS3:
		if strings.TrimSpace(c.Store.S3Bucket) == "" {
			errs.Set("store.s3_bucket", fmt.Errorf("is required for the s3 backend"))
		}
	case StoreIPFS:
		for field, raw := range map[string]string{"store.gateway_url": c.Store.GatewayURL, "store.rpc_url": c.Store.RPCURL} {
			if raw == "" {
				continue
			}
			if err := config.ValidateHTTPURL(raw); err != nil {
				errs.Set(field, err)
			}
		}
	default:
		errs.Set("store.backend", fmt.Errorf("unknown backend %q", c.Store.Backend))
	}

	switch c.Ledger.Backend {
	case LedgerMemory, LedgerSQLite:
	default:
		errs.Set("ledger.backend", fmt.Errorf("unknown backend %q", c.Ledger.Backend))
	}

	if _, err := monitoring.ParseLevel(c.Log.Level); err != nil {
		errs.Set("log.level", err)
	}
	if !monitoring.ValidFormat(c.Log.Format) {
		errs.Set("log.format", fmt.Errorf("must be json or text, got %q", c.Log.Format))
	}

	if err := errs.AsError(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ProgramID == "" {
		c.ProgramID = DefaultProgramID
	}
	if c.KeyMessage == "" {
		c.KeyMessage = DefaultKeyMessage
	}
	if c.KeyDerivation == "" {
		c.KeyDerivation = DerivationSHA256
	}
	if c.ScanBound == 0 {
		c.ScanBound = DefaultScanBound
	}
	if c.MaxAnchorAttempts == 0 {
		c.MaxAnchorAttempts = DefaultMaxAnchorAttempts
	}
	if c.RerequestPolicy == "" {
		c.RerequestPolicy = RerequestNever
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreBadger
	}
	if c.Store.BadgerPath == "" {
		c.Store.BadgerPath = filepath.Join(c.DataDir, DefaultBadgerDirname)
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = LedgerSQLite
	}
	if c.Ledger.SQLitePath == "" {
		c.Ledger.SQLitePath = filepath.Join(c.DataDir, DefaultLedgerFilename)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = monitoring.FormatText
	}
}

// defaultDataDir puts the data directory at the project root when one is found.
func defaultDataDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultDataDir
	}
	if root, err := config.FindProjectRoot(cwd); err == nil {
		return filepath.Join(root, DefaultDataDir)
	}
	return DefaultDataDir
}

// programKey returns the parsed program ID. Validate has already checked it.
func (c *Config) programKey() PublicKey {
	pk, _ := types.ParsePublicKey(c.ProgramID)
	return pk
}
