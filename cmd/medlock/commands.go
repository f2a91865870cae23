package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hengadev/medlock"
	"github.com/hengadev/medlock/internal/config"
	"github.com/hengadev/medlock/internal/health"
	"github.com/hengadev/medlock/internal/reliability"
	"github.com/hengadev/medlock/providers/signer/keyfile"
)

func keygenCommand(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	force := fs.Bool("force", false, "Overwrite an existing key file")
	fs.Parse(args)

	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	path := keyPath(cfg, flags)
	if !*force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("key file %s already exists. Use -force to overwrite", path)
		}
	}

	signer, err := keyfile.Generate()
	if err != nil {
		return err
	}
	if err := signer.Save(path); err != nil {
		return err
	}
	fmt.Printf("Key written to %s\n", path)
	fmt.Printf("Public key: %s\n", signer.PublicKey())
	return nil
}

func whoamiCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	fs.Parse(args)

	s, signer, err := openWithSigner(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	out := map[string]any{
		"publicKey": signer.PublicKey(),
		"did":       medlock.DIDKey(signer.PublicKey()),
		"address":   medlock.UserAddress(s.client.ProgramID(), signer.PublicKey()),
	}
	id, err := s.client.GetIdentity(ctx, signer.PublicKey())
	switch {
	case err == nil:
		out["role"] = id.Role
		out["registeredDid"] = id.DID
	case errors.Is(err, medlock.ErrNotFound):
		out["role"] = "unregistered"
	default:
		return err
	}
	return printJSON(out)
}

func registerCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	roleName := fs.String("role", "patient", "patient or doctor")
	did := fs.String("did", "", "DID to record (default: the signer's did:key)")
	fs.Parse(args)

	role, err := medlock.ParseRole(*roleName)
	if err != nil {
		return err
	}
	s, signer, err := openWithSigner(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.client.Register(ctx, signer, role, *did)
	if err != nil {
		return err
	}
	return printJSON(id)
}

func storeCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	file := fs.String("file", "-", "Payload file, - for stdin")
	meta := fs.String("meta", "", "Public metadata anchored with the record")
	fs.Parse(args)

	payload, err := readInput(*file)
	if err != nil {
		return err
	}
	s, signer, err := openWithSigner(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.client.StoreRecord(ctx, signer, payload, *meta)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func readCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	counter := fs.Uint("counter", 0, "Record counter")
	out := fs.String("out", "-", "Output file, - for stdout")
	fs.Parse(args)

	if *counter >= medlock.MaxScanBound {
		return fmt.Errorf("%w: counter must be below %d", medlock.ErrInvalidFormat, medlock.MaxScanBound)
	}
	s, signer, err := openWithSigner(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.client.GetRecord(ctx, signer.PublicKey(), uint8(*counter))
	if err != nil {
		return err
	}
	plaintext, err := s.client.ReadRecord(ctx, signer, rec)
	if err != nil {
		return err
	}
	return writeOutput(*out, plaintext)
}

func listCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	ownerFlag := fs.String("owner", "", "Patient public key (default: the signer)")
	fs.Parse(args)

	s, err := openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	owner, err := resolveKey(ctx, s, flags, *ownerFlag)
	if err != nil {
		return err
	}
	records, err := s.client.ListRecords(ctx, owner)
	if err != nil {
		return err
	}
	if records == nil {
		records = []medlock.Record{}
	}
	return printJSON(records)
}

func requestCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("request", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	patientFlag := fs.String("patient", "", "Patient public key")
	scope := fs.String("scope", medlock.ScopeAll, "read:all, read:counter:<n>[,<n>...] or read:meta:<substring>")
	ttl := fs.Duration("ttl", 24*time.Hour, "How long the grant stays valid")
	fs.Parse(args)

	patient, err := medlock.ParsePublicKey(*patientFlag)
	if err != nil {
		return fmt.Errorf("-patient: %w", err)
	}
	s, signer, err := openWithSigner(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := s.client.RequestAccess(ctx, signer, patient, *scope, time.Now().Add(*ttl))
	if err != nil {
		return err
	}
	return printJSON(req)
}

func respondCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("respond", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	doctorFlag := fs.String("doctor", "", "Doctor public key")
	approve := fs.Bool("approve", false, "Approve the request")
	deny := fs.Bool("deny", false, "Deny the request")
	fs.Parse(args)

	if *approve == *deny {
		return fmt.Errorf("%w: pass exactly one of -approve or -deny", medlock.ErrInvalidFormat)
	}
	doctor, err := medlock.ParsePublicKey(*doctorFlag)
	if err != nil {
		return fmt.Errorf("-doctor: %w", err)
	}
	s, signer, err := openWithSigner(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := s.client.RespondAccess(ctx, signer, doctor, *approve)
	if err != nil {
		return err
	}
	return printJSON(req)
}

func showRequestCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show-request", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	doctorFlag := fs.String("doctor", "", "Doctor public key (default: the signer)")
	patientFlag := fs.String("patient", "", "Patient public key (default: the signer)")
	fs.Parse(args)

	s, err := openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	doctor, err := resolveKey(ctx, s, flags, *doctorFlag)
	if err != nil {
		return err
	}
	patient, err := resolveKey(ctx, s, flags, *patientFlag)
	if err != nil {
		return err
	}
	req, err := s.client.GetAccessRequest(ctx, doctor, patient)
	if err != nil {
		return err
	}
	return printJSON(req)
}

func fetchCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	patientFlag := fs.String("patient", "", "Patient public key")
	out := fs.String("out", "-", "Output file, - for stdout")
	fs.Parse(args)

	patient, err := medlock.ParsePublicKey(*patientFlag)
	if err != nil {
		return fmt.Errorf("-patient: %w", err)
	}
	s, signer, err := openWithSigner(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	bundle, err := s.client.FetchCapability(ctx, signer, patient)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(*out, append(data, '\n'))
}

func healthCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	fs.Parse(args)

	s, err := openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close()

	checker := health.NewChecker(medlock.Version)
	checks := []health.Check{
		health.LedgerCheck(s.ledger, medlock.UserAddress(s.client.ProgramID(), medlock.PublicKey{})),
		health.StoreCheck(s.store),
	}
	if signer, err := loadSigner(ctx, s.cfg, flags); err == nil {
		checks = append(checks, health.SignerCheck(signer.Connected))
	} else {
		checks = append(checks, health.SignerCheck(func() bool { return false }))
	}
	if s.gateway != nil {
		gw := s.gateway
		checks = append(checks, health.BreakerCheck("gateway_breaker", func() bool {
			return gw.BreakerState() == reliability.StateOpen
		}))
	}
	for _, check := range checks {
		if err := checker.Register(check); err != nil {
			return err
		}
	}

	report := checker.Run(ctx)
	if err := printJSON(report); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("%w: one or more critical checks failed", medlock.ErrLedgerUnavailable)
	}
	return nil
}

func openWithSigner(ctx context.Context, flags commonFlags) (*session, medlock.Signer, error) {
	s, err := openSession(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	signer, err := loadSigner(ctx, s.cfg, flags)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, signer, nil
}

// resolveKey parses raw, or falls back to the signer's public key when raw is empty.
func resolveKey(ctx context.Context, s *session, flags commonFlags, raw string) (medlock.PublicKey, error) {
	if raw != "" {
		return medlock.ParsePublicKey(raw)
	}
	signer, err := loadSigner(ctx, s.cfg, flags)
	if err != nil {
		return medlock.PublicKey{}, err
	}
	return signer.PublicKey(), nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := config.CheckDirectoryWritable(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
