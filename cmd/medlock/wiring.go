package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hengadev/medlock"
	"github.com/hengadev/medlock/internal/config"
	"github.com/hengadev/medlock/internal/monitoring"
	"github.com/hengadev/medlock/internal/program"
	"github.com/hengadev/medlock/providers/ledger/local"
	"github.com/hengadev/medlock/providers/signer/keyfile"
	"github.com/hengadev/medlock/providers/signer/vaulttransit"
	"github.com/hengadev/medlock/providers/store/badgerstore"
	"github.com/hengadev/medlock/providers/store/gateway"
	"github.com/hengadev/medlock/providers/store/memstore"
	"github.com/hengadev/medlock/providers/store/s3store"
)

// commonFlags are shared by every command that talks to the ledger.
type commonFlags struct {
	configPath string
	keyPath    string
	vaultKey   string
	metrics    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file (default: MEDLOCK_* environment)")
	fs.StringVar(&c.keyPath, "key", "", "Key file of the signer (default: <data_dir>/id.json)")
	fs.StringVar(&c.vaultKey, "vault-key", "", "Sign with this Vault transit key instead of a key file")
	fs.BoolVar(&c.metrics, "metrics", false, "Print operation counters on exit")
}

func (c *commonFlags) loadConfig() (medlock.Config, error) {
	if c.configPath != "" {
		return medlock.LoadConfigFile(c.configPath)
	}
	return medlock.LoadConfigFromEnvironment()
}

// session is one CLI invocation's client and the resources it must close.
type session struct {
	cfg     medlock.Config
	client  *medlock.Client
	logger  *slog.Logger
	metrics *medlock.InMemoryMetricsCollector
	print   bool
	closers []func() error

	ledger  medlock.Ledger
	store   medlock.ContentStore
	gateway *gateway.Client
}

func openSession(ctx context.Context, flags commonFlags) (*session, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := monitoring.NewLogger(monitoring.LoggerConfig{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		Component: "medlock",
	})
	s := &session{cfg: cfg, logger: logger, metrics: medlock.NewInMemoryMetricsCollector(), print: flags.metrics}

	if s.ledger, err = s.openLedger(); err != nil {
		s.Close()
		return nil, err
	}
	if s.store, err = s.openStore(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.client, err = medlock.New(cfg, s.ledger, s.store,
		medlock.WithLogger(logger),
		medlock.WithMetrics(s.metrics))
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) openLedger() (medlock.Ledger, error) {
	programID, err := medlock.ParsePublicKey(s.cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	opts := []program.Option{
		program.WithRerequestPolicy(s.cfg.RerequestPolicy),
		program.WithLogger(s.logger.With("component", "ledger")),
	}

	switch s.cfg.Ledger.Backend {
	case medlock.LedgerMemory:
		return local.NewMemory(programID, opts...), nil
	default:
		if err := config.CheckDirectoryWritable(filepath.Dir(s.cfg.Ledger.SQLitePath)); err != nil {
			return nil, fmt.Errorf("%w: %w", medlock.ErrInvalidConfiguration, err)
		}
		ledger, err := local.OpenSQLite(s.cfg.Ledger.SQLitePath, programID, opts...)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, ledger.Close)
		return ledger, nil
	}
}

func (s *session) openStore(ctx context.Context) (medlock.ContentStore, error) {
	sc := s.cfg.Store
	switch sc.Backend {
	case medlock.StoreMemory:
		return memstore.New(), nil
	case medlock.StoreS3:
		return s3store.NewFromEnvironment(ctx, sc.S3Bucket, sc.S3Region, s3store.WithKeyPrefix(sc.S3Prefix))
	case medlock.StoreIPFS:
		gw, err := gateway.New(sc.GatewayURL, sc.RPCURL, gateway.WithLogger(s.logger.With("component", "gateway")))
		if err != nil {
			return nil, err
		}
		s.gateway = gw
		return gw, nil
	default:
		if err := config.CheckDirectoryWritable(sc.BadgerPath); err != nil {
			return nil, fmt.Errorf("%w: %w", medlock.ErrInvalidConfiguration, err)
		}
		store, err := badgerstore.Open(sc.BadgerPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	}
}

// Close releases the stores, in reverse order of opening.
func (s *session) Close() {
	if s.print && s.metrics != nil {
		for name, v := range s.metrics.Counters() {
			fmt.Fprintf(os.Stderr, "%s %d\n", name, v)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}
}

// loadSigner opens the Vault transit key when one is named, the key file otherwise.
func loadSigner(ctx context.Context, cfg medlock.Config, flags commonFlags) (medlock.Signer, error) {
	if flags.vaultKey != "" {
		client, err := vaulttransit.NewClientFromEnvironment()
		if err != nil {
			return nil, err
		}
		return vaulttransit.New(ctx, client, flags.vaultKey)
	}
	return keyfile.Load(keyPath(cfg, flags))
}

func keyPath(cfg medlock.Config, flags commonFlags) string {
	if flags.keyPath != "" {
		return flags.keyPath
	}
	return filepath.Join(cfg.DataDir, "id.json")
}
