package medlock

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/hengadev/medlock/internal/types"
)

// StoreRecord encrypts payload under the owner's derived key, stores the upload
// unit and anchors it at the owner's next free counter.
//
// Nothing reaches the ledger unless the blob was stored first, so a failure can
// leave an orphaned blob but never a dangling record.
func (c *Client) StoreRecord(ctx context.Context, owner Signer, payload []byte, metadata string) (Record, error) {
	var rec Record
	err := c.observe(ctx, "store_record", map[string]any{"size": len(payload)}, func() error {
		if owner == nil {
			return fmt.Errorf("%w: no signer", ErrSigningUnavailable)
		}
		if len(metadata) > MaxMetadataLength {
			return fmt.Errorf("%w: metadata exceeds %d bytes", ErrInvalidFormat, MaxMetadataLength)
		}

		key, err := c.deriveKey(ctx, owner)
		if err != nil {
			return err
		}
		defer key.Wipe()
		env, err := Encrypt(key, payload)
		if err != nil {
			return err
		}
		blob, err := MarshalUploadUnit(UploadUnit{
			Version:   UploadUnitVersion,
			Owner:     owner.PublicKey(),
			CreatedAt: c.now(),
			Envelope:  env,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
		}
		id, err := c.store.Put(ctx, blob)
		if err != nil {
			return err
		}

		rec, err = c.anchor(ctx, owner, id, metadata)
		return err
	})
	return rec, err
}

// anchor claims a counter for id. Losing a race for a counter to a concurrent
// store by the same owner restarts the scan after the lost slot.
func (c *Client) anchor(ctx context.Context, owner Signer, id ContentID, metadata string) (Record, error) {
	pk := owner.PublicKey()
	start := 0
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAnchorAttempts; attempt++ {
		counter, err := c.freeCounter(ctx, pk, start)
		if err != nil {
			return Record{}, err
		}

		receipt, err := c.submit(ctx, owner, types.AddRecordInstruction{
			Owner:    pk,
			Counter:  counter,
			CID:      id,
			Metadata: metadata,
		})
		if errors.Is(err, ErrAlreadyExists) {
			lastErr = err
			c.hook.OnRetry(ctx, "store_record", attempt, err)
			start = int(counter) + 1
			continue
		}
		if err != nil {
			return Record{}, err
		}
		return Record{
			Address:   receipt.Address,
			Owner:     pk,
			Counter:   counter,
			CID:       id,
			Metadata:  metadata,
			CreatedAt: receipt.At,
		}, nil
	}
	return Record{}, fmt.Errorf("counter allocation lost %d times: %w", c.cfg.MaxAnchorAttempts, lastErr)
}

// freeCounter returns the first empty record slot of owner at or after start.
func (c *Client) freeCounter(ctx context.Context, owner PublicKey, start int) (uint8, error) {
	for n := start; n < c.cfg.ScanBound; n++ {
		_, err := c.readAccount(ctx, c.derive.Record(owner, uint8(n)))
		if errors.Is(err, ErrNotFound) {
			return uint8(n), nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w: counters %d..%d of %s are taken", ErrNoFreeSlot, start, c.cfg.ScanBound-1, owner)
}

// ReadRecord fetches and decrypts rec with the reader's derived key. Only the
// owner's key opens the envelope; any other reader gets ErrDecryptionFailed.
func (c *Client) ReadRecord(ctx context.Context, reader Signer, rec Record) ([]byte, error) {
	var plaintext []byte
	err := c.observe(ctx, "read_record", map[string]any{"cid": rec.CID.String()}, func() error {
		if reader == nil {
			return fmt.Errorf("%w: no signer", ErrSigningUnavailable)
		}
		blob, err := c.store.Get(ctx, rec.CID)
		if err != nil {
			return err
		}
		unit, err := UnmarshalUploadUnit(blob)
		if err != nil {
			return err
		}
		key, err := c.deriveKey(ctx, reader)
		if err != nil {
			return err
		}
		defer key.Wipe()
		plaintext, err = Decrypt(key, unit.Envelope)
		if err != nil {
			return err
		}

		if c.cfg.AuditReads {
			if _, err := c.LogAccess(ctx, reader, rec.Owner, rec.CID, "read"); err != nil {
				plaintext = nil
				return fmt.Errorf("audit read: %w", err)
			}
		}
		return nil
	})
	return plaintext, err
}

// GetRecord returns the record anchored at counter, or ErrNotFound.
func (c *Client) GetRecord(ctx context.Context, owner PublicKey, counter uint8) (Record, error) {
	addr := c.derive.Record(owner, counter)
	data, err := c.readAccount(ctx, addr)
	if err != nil {
		return Record{}, err
	}
	var acc types.RecordAccount
	if err := acc.UnmarshalBinary(data); err != nil {
		return Record{}, err
	}
	return recordFromAccount(addr, acc), nil
}

// ListRecords returns the anchored records of owner in counter order. Empty
// slots inside the scan bound are skipped.
func (c *Client) ListRecords(ctx context.Context, owner PublicKey) ([]Record, error) {
	var records []Record
	for n := 0; n < c.cfg.ScanBound; n++ {
		rec, err := c.GetRecord(ctx, owner, uint8(n))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LogAccess writes an audit entry for reader touching cid of subject. Patients
// may only log their own records; doctors need an approved, unexpired request.
func (c *Client) LogAccess(ctx context.Context, reader Signer, subject PublicKey, cid ContentID, action string) (AccessLog, error) {
	var entry AccessLog
	err := c.observe(ctx, "log_access", map[string]any{"action": action}, func() error {
		if reader == nil {
			return fmt.Errorf("%w: no signer", ErrSigningUnavailable)
		}
		if action == "" || len(action) > MaxActionLength {
			return fmt.Errorf("%w: action must be 1..%d bytes", ErrInvalidFormat, MaxActionLength)
		}

		var lastErr error
		for attempt := 1; attempt <= c.cfg.MaxAnchorAttempts; attempt++ {
			nonce, err := randomNonce()
			if err != nil {
				return err
			}
			receipt, err := c.submit(ctx, reader, types.LogAccessInstruction{
				Reader:  reader.PublicKey(),
				Subject: subject,
				CID:     cid,
				Action:  action,
				Nonce:   nonce,
			})
			if errors.Is(err, ErrAlreadyExists) {
				lastErr = err
				c.hook.OnRetry(ctx, "log_access", attempt, err)
				continue
			}
			if err != nil {
				return err
			}
			entry = AccessLog{
				Address: receipt.Address,
				Subject: subject,
				Reader:  reader.PublicKey(),
				CID:     cid,
				Action:  action,
				At:      receipt.At,
			}
			return nil
		}
		return fmt.Errorf("log nonce collided %d times: %w", c.cfg.MaxAnchorAttempts, lastErr)
	})
	return entry, err
}

// GetAccessLog reads the audit entry at addr.
func (c *Client) GetAccessLog(ctx context.Context, addr Address) (AccessLog, error) {
	data, err := c.readAccount(ctx, addr)
	if err != nil {
		return AccessLog{}, err
	}
	var acc types.AccessLogAccount
	if err := acc.UnmarshalBinary(data); err != nil {
		return AccessLog{}, err
	}
	return AccessLog{
		Address: addr,
		Subject: acc.Subject,
		Reader:  acc.Reader,
		CID:     acc.CID,
		Action:  acc.Action,
		At:      time.Unix(acc.At, 0).UTC(),
	}, nil
}

func randomNonce() (uint8, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read nonce: %w", err)
	}
	return b[0], nil
}
