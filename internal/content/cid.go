// Package content computes and checks the content identifiers used by every store backend.
package content

import (
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/hengadev/medlock/internal/types"
)

// Sum returns the CIDv1 (raw codec, sha2-256) of data.
func Sum(data []byte) (types.ContentID, error) {
	hash, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("multihash: %w", err)
	}
	return types.ContentID(cid.NewCidV1(cid.Raw, hash).String()), nil
}

// Parse decodes id, rejecting anything that is not a CID.
func Parse(id types.ContentID) (cid.Cid, error) {
	c, err := cid.Decode(string(id))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: content id %q: %w", types.ErrInvalidFormat, id, err)
	}
	return c, nil
}

// Verify checks that data hashes to id. Only raw-codec CIDs address the bytes
// themselves, so other codecs are accepted as is.
func Verify(id types.ContentID, data []byte) error {
	c, err := Parse(id)
	if err != nil {
		return err
	}
	prefix := c.Prefix()
	if prefix.Codec != cid.Raw {
		return nil
	}
	got, err := prefix.Sum(data)
	if err != nil {
		return fmt.Errorf("%w: rehash %s: %w", types.ErrStoreUnavailable, id, err)
	}
	if !got.Equals(c) {
		return fmt.Errorf("%w: integrity check failed for %s", types.ErrStoreUnavailable, id)
	}
	return nil
}

// Key returns the binary CID, used as the storage key by local backends.
func Key(id types.ContentID) ([]byte, error) {
	c, err := Parse(id)
	if err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}
