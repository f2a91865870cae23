// Package address derives ledger account addresses from seeds, the way the
// ledger runtime finds program-derived addresses: hash the seeds with a bump
// byte and the program ID until the result is not a point on ed25519.
package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/hengadev/medlock/internal/types"
)

const (
	// MaxSeedLength is the longest single seed the runtime accepts.
	MaxSeedLength = 32
	// MaxSeeds bounds the seed count, bump included.
	MaxSeeds = 16

	pdaMarker = "ProgramDerivedAddress"
)

// Seed prefixes of the ledger program accounts.
var (
	SeedUser   = []byte("user")
	SeedRecord = []byte("record")
	SeedAccess = []byte("access")
	SeedLog    = []byte("log")
)

var (
	errOnCurve    = errors.New("derived address lies on the curve")
	errNoBumpSeed = errors.New("unable to find a viable bump seed")
)

// IsOnCurve reports whether b decodes to an ed25519 point.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress hashes seeds and the program ID into an address. It fails
// when the hash is a valid curve point, since such an address could have a private key.
func CreateProgramAddress(seeds [][]byte, program types.PublicKey) (types.Address, error) {
	var addr types.Address
	if len(seeds) > MaxSeeds {
		return addr, fmt.Errorf("%w: %d seeds exceeds %d", types.ErrInvalidFormat, len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return addr, fmt.Errorf("%w: seed of %d bytes exceeds %d", types.ErrInvalidFormat, len(s), MaxSeedLength)
		}
		h.Write(s)
	}
	h.Write(program[:])
	h.Write([]byte(pdaMarker))
	sum := h.Sum(nil)
	if IsOnCurve(sum) {
		return addr, errOnCurve
	}
	copy(addr[:], sum)
	return addr, nil
}

// FindProgramAddress tries bump seeds from 255 down to 0 and returns the first
// off-curve address with its bump.
func FindProgramAddress(seeds [][]byte, program types.PublicKey) (types.Address, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, errOnCurve) {
			return addr, 0, err
		}
	}
	return types.Address{}, 0, errNoBumpSeed
}

// Deriver computes the account addresses of one ledger program.
type Deriver struct {
	program types.PublicKey
}

// NewDeriver returns a Deriver for the program ID.
func NewDeriver(program types.PublicKey) Deriver {
	return Deriver{program: program}
}

// Program returns the program ID.
func (d Deriver) Program() types.PublicKey { return d.program }

// find panics on failure: every caller passes fixed-size seeds, and the chance
// that all 256 bumps land on the curve is negligible.
func (d Deriver) find(seeds ...[]byte) types.Address {
	addr, _, err := FindProgramAddress(seeds, d.program)
	if err != nil {
		panic(fmt.Sprintf("address: derive %q: %v", seeds[0], err))
	}
	return addr
}

// User is the address of the User account registered by pk.
func (d Deriver) User(pk types.PublicKey) types.Address {
	return d.find(SeedUser, pk[:])
}

// Record is the address of owner's record at counter. The ledger keys records by
// the owner's User account, not by the raw key.
func (d Deriver) Record(owner types.PublicKey, counter uint8) types.Address {
	user := d.User(owner)
	return d.find(SeedRecord, user[:], []byte{counter})
}

// AccessRequest is the address of the single request slot for a (doctor, patient) pair.
func (d Deriver) AccessRequest(doctor, patient types.PublicKey) types.Address {
	du, pu := d.User(doctor), d.User(patient)
	return d.find(SeedAccess, du[:], pu[:])
}

// Log is the address of an access log entry. A content ID is longer than a seed
// may be, so its SHA-256 digest stands in for it.
func (d Deriver) Log(cid types.ContentID, reader types.PublicKey, nonce uint8) types.Address {
	digest := sha256.Sum256([]byte(cid))
	ru := d.User(reader)
	return d.find(SeedLog, digest[:], ru[:], []byte{nonce})
}
