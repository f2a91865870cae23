package medlock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hengadev/medlock/internal/monitoring"
)

// LoadConfigFromEnvironment loads configuration from MEDLOCK_* environment variables.
//
// A .env file in the working directory is loaded first when present. Variables
// already set in the process environment take precedence over the file.
//
// Environment variables (all optional, defaults applied by Validate):
//   - MEDLOCK_PROGRAM_ID, MEDLOCK_KEY_MESSAGE, MEDLOCK_KEY_DERIVATION
//   - MEDLOCK_SCAN_BOUND, MEDLOCK_MAX_ANCHOR_ATTEMPTS
//   - MEDLOCK_REREQUEST_POLICY, MEDLOCK_AUDIT_READS
//   - MEDLOCK_DATA_DIR
//   - MEDLOCK_STORE, MEDLOCK_BADGER_PATH, MEDLOCK_S3_BUCKET, MEDLOCK_S3_REGION,
//     MEDLOCK_S3_PREFIX, MEDLOCK_IPFS_GATEWAY, MEDLOCK_IPFS_RPC
//   - MEDLOCK_LEDGER, MEDLOCK_SQLITE_PATH
//   - MEDLOCK_LOG_LEVEL, MEDLOCK_LOG_FORMAT
//
// Example usage (12-factor app):
//
//	// export MEDLOCK_STORE=ipfs
//	// export MEDLOCK_IPFS_GATEWAY=https://ipfs.example.org
//	cfg, err := medlock.LoadConfigFromEnvironment()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnvironment() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: load .env: %w", ErrInvalidConfiguration, err)
	}

	cfg := Config{
		ProgramID:       os.Getenv(EnvProgramID),
		KeyMessage:      os.Getenv(EnvKeyMessage),
		KeyDerivation:   KeyDerivation(os.Getenv(EnvKeyDerivation)),
		RerequestPolicy: RerequestPolicy(os.Getenv(EnvRerequestPolicy)),
		DataDir:         os.Getenv(EnvDataDir),
		Store: StoreConfig{
			Backend:    os.Getenv(EnvStoreBackend),
			BadgerPath: os.Getenv(EnvBadgerPath),
			S3Bucket:   os.Getenv(EnvS3Bucket),
			S3Region:   os.Getenv(EnvS3Region),
			S3Prefix:   os.Getenv(EnvS3Prefix),
			GatewayURL: os.Getenv(EnvGatewayURL),
			RPCURL:     os.Getenv(EnvRPCURL),
		},
		Ledger: LedgerConfig{
			Backend:    os.Getenv(EnvLedgerBackend),
			SQLitePath: os.Getenv(EnvSQLitePath),
		},
		Log: LogConfig{
			Level:  os.Getenv(EnvLogLevel),
			Format: monitoring.LogFormat(os.Getenv(EnvLogFormat)),
		},
	}

	var err error
	if cfg.ScanBound, err = getEnvInt(EnvScanBound); err != nil {
		return Config{}, err
	}
	if cfg.MaxAnchorAttempts, err = getEnvInt(EnvMaxAnchorAttempts); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(EnvAuditReads); v != "" {
		if cfg.AuditReads, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, EnvAuditReads, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file and validates it.
//
//	program_id: BqwVrtrJvBw5GDv8gJkyJpHp1BQc9sq1DexacBNPC3tB
//	scan_bound: 100
//	store:
//	  backend: s3
//	  s3_bucket: medical-records
//	ledger:
//	  backend: sqlite
//	log:
//	  level: debug
//	  format: json
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read %s: %w", ErrInvalidConfiguration, path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// getEnvInt returns 0 when key is unset so that Validate applies the default.
func getEnvInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer: %w", ErrInvalidConfiguration, key, err)
	}
	return n, nil
}
