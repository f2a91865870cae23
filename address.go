package medlock

import "github.com/hengadev/medlock/internal/address"

// UserAddress is the account of a registered identity, seeds ["user", pk].
func UserAddress(program, pk PublicKey) Address {
	return address.NewDeriver(program).User(pk)
}

// RecordAddress is the account of record counter of owner, seeds
// ["record", user(owner), [counter]].
func RecordAddress(program, owner PublicKey, counter uint8) Address {
	return address.NewDeriver(program).Record(owner, counter)
}

// AccessRequestAddress is the one request slot per (doctor, patient) pair.
func AccessRequestAddress(program, doctor, patient PublicKey) Address {
	return address.NewDeriver(program).AccessRequest(doctor, patient)
}

// LogAddress is the audit entry of reader reading cid with a nonce.
func LogAddress(program PublicKey, cid ContentID, reader PublicKey, nonce uint8) Address {
	return address.NewDeriver(program).Log(cid, reader, nonce)
}
