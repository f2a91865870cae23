// Package medlock stores encrypted medical records on content-addressed storage,
// anchors them on a ledger, and grants doctors scoped, time-bounded read access
// without any secret key leaving the patient.
//
// # Model
//
// A record key is never stored. It is re-derived on demand from the owner's
// ed25519 signature over a fixed message (default "EMR Encryption Key"):
//
//	key = sha256(sign(privateKey, "EMR Encryption Key"))
//
// Records are sealed with AES-256-GCM, uploaded as a JSON UploadUnit, and the
// resulting CID is anchored at a program-derived ledger address
// (seeds "record", owner, counter). Access requests live at a second derived
// address (seeds "access", doctor, patient) and move from Pending to Approved or
// Denied exactly once. On approval the patient's client decrypts the records in
// scope, bundles them, uploads the bundle and attaches its CID to the request, so
// the doctor can read them without ever holding the patient's key.
//
// # Quick Start
//
//	ledger := local.NewMemory(medlock.MustParsePublicKey(medlock.DefaultProgramID))
//	store := memstore.New()
//
//	cfg := medlock.Config{}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	client, err := medlock.New(cfg, ledger, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	patient, _ := keyfile.Generate()
//	_ = client.Register(ctx, patient, medlock.RolePatient, "")
//	rec, err := client.StoreRecord(ctx, patient, payload, "labs 2024-05")
//
// # Collaborators
//
// Three interfaces are consumed: Signer (a wallet or key service), ContentStore
// (IPFS, S3, Badger or memory) and Ledger. Reference implementations live under
// providers/.
//
// # Errors
//
// Every failure wraps one of the sentinel errors in errors.go. Use errors.Is or
// the Is*Error helpers to classify them.
package medlock
