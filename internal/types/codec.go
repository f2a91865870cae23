package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Field limits enforced by the ledger account layouts.
const (
	MaxDIDLength      = 64
	MaxCIDLength      = 64
	MaxMetadataLength = 256
	MaxScopeLength    = 64
	MaxActionLength   = 32
)

// DiscriminatorSize is the length of the account type prefix.
const DiscriminatorSize = 8

// Discriminator returns the 8-byte type tag written in front of every account,
// sha256("account:<name>")[:8].
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

type encoder struct {
	buf bytes.Buffer
	err error
}

func newEncoder(account string) *encoder {
	e := &encoder{}
	d := Discriminator(account)
	e.buf.Write(d[:])
	return e
}

func (e *encoder) u8(v uint8) { e.buf.WriteByte(v) }

func (e *encoder) i64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf.Write(b[:])
}

func (e *encoder) key(k [KeySize]byte) { e.buf.Write(k[:]) }

func (e *encoder) str(field, v string, max int) {
	if e.err != nil {
		return
	}
	if len(v) > max {
		e.err = fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidFormat, field, max)
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(v)))
	e.buf.Write(b[:])
	e.buf.WriteString(v)
}

func (e *encoder) optI64(v int64, present bool) {
	if !present {
		e.u8(0)
		return
	}
	e.u8(1)
	e.i64(v)
}

func (e *encoder) optStr(field, v string, max int) {
	if v == "" {
		e.u8(0)
		return
	}
	e.u8(1)
	e.str(field, v, max)
}

func (e *encoder) bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

type decoder struct {
	data []byte
	off  int
	err  error
}

func newDecoder(account string, data []byte) *decoder {
	d := &decoder{data: data}
	want := Discriminator(account)
	if len(data) < DiscriminatorSize || !bytes.Equal(data[:DiscriminatorSize], want[:]) {
		d.err = fmt.Errorf("%w: not a %s account", ErrInvalidFormat, account)
		return d
	}
	d.off = DiscriminatorSize
	return d
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.data) {
		d.err = fmt.Errorf("%w: account data truncated at offset %d", ErrInvalidFormat, d.off)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) i64() int64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (d *decoder) key() [KeySize]byte {
	var k [KeySize]byte
	if b := d.take(KeySize); b != nil {
		copy(k[:], b)
	}
	return k
}

func (d *decoder) str(max int) string {
	b := d.take(4)
	if b == nil {
		return ""
	}
	n := binary.LittleEndian.Uint32(b)
	if int(n) > max {
		d.err = fmt.Errorf("%w: string length %d exceeds %d", ErrInvalidFormat, n, max)
		return ""
	}
	return string(d.take(int(n)))
}

func (d *decoder) optI64() (int64, bool) {
	switch d.u8() {
	case 0:
		return 0, false
	case 1:
		return d.i64(), true
	}
	if d.err == nil {
		d.err = fmt.Errorf("%w: bad option tag", ErrInvalidFormat)
	}
	return 0, false
}

func (d *decoder) optStr(max int) string {
	switch d.u8() {
	case 0:
		return ""
	case 1:
		return d.str(max)
	}
	if d.err == nil {
		d.err = fmt.Errorf("%w: bad option tag", ErrInvalidFormat)
	}
	return ""
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidFormat, len(d.data)-d.off)
	}
	return nil
}
