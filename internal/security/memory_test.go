package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroBytes(t *testing.T) {
	data := []byte{0x41, 0x42, 0x43, 0x44}
	ZeroBytes(data)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)

	assert.NotPanics(t, func() { ZeroBytes(nil) })
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{name: "same", a: []byte{1, 2, 3}, b: []byte{1, 2, 3}, want: true},
		{name: "last byte differs", a: []byte{1, 2, 3}, b: []byte{1, 2, 4}},
		{name: "different lengths", a: []byte{1, 2}, b: []byte{1, 2, 3}},
		{name: "both empty", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestBuffer(t *testing.T) {
	raw := []byte("signature bytes")
	buf := NewBuffer(raw)
	assert.Equal(t, []byte("signature bytes"), buf.Bytes())

	assert.NoError(t, buf.Close())
	assert.Nil(t, buf.Bytes())
	assert.Equal(t, make([]byte, len(raw)), raw)
	assert.NoError(t, buf.Close())
}
