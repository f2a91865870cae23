// Package security holds helpers for handling key material in memory.
package security

import (
	"crypto/subtle"
	"runtime"
)

// ZeroBytes overwrites data with zeros. Keys and signatures are kept as []byte
// so that they can be wiped once used; strings cannot.
func ZeroBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	for i := range data {
		data[i] = 0
	}
	runtime.KeepAlive(data)
}

// Equal compares a and b in constant time. Slices of different lengths are unequal.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Buffer holds secret bytes until Close wipes them.
type Buffer struct {
	data []byte
}

// NewBuffer takes ownership of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the held bytes, or nil after Close.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Close wipes the buffer. It is safe to call more than once.
func (b *Buffer) Close() error {
	ZeroBytes(b.data)
	b.data = nil
	return nil
}
