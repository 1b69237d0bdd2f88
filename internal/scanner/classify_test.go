package scanner

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func p2trScript(key byte) []byte {
	script := make([]byte, 34)
	script[0] = 0x51
	script[1] = 0x20
	for i := 2; i < len(script); i++ {
		script[i] = key
	}
	return script
}

func TestIsP2TR(t *testing.T) {
	cases := []struct {
		name   string
		script []byte
		want   bool
	}{
		{
			name:   "taproot output",
			script: p2trScript(0xab),
			want:   true,
		},
		{
			name:   "nil script",
			script: nil,
			want:   false,
		},
		{
			name:   "empty script",
			script: []byte{},
			want:   false,
		},
		{
			name:   "segwit v0 witness program",
			script: append([]byte{0x00, 0x20}, make([]byte, 32)...),
			want:   false,
		},
		{
			name:   "wrong push length byte",
			script: append([]byte{0x51, 0x21}, make([]byte, 32)...),
			want:   false,
		},
		{
			name:   "too short",
			script: []byte{0x51, 0x20, 0x00},
			want:   false,
		},
		{
			name:   "too long",
			script: append(p2trScript(0x01), 0x00),
			want:   false,
		},
		{
			name:   "p2pkh",
			script: append(append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...), 0x88, 0xac),
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsP2TR(tc.script))
		})
	}
}

func TestIsP2TRRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 10000; i++ {
		script := make([]byte, rng.Intn(64))
		rng.Read(script)

		want := len(script) == 34 && script[0] == 0x51 && script[1] == 0x20
		assert.Equal(t, want, IsP2TR(script), "script %x", script)
	}

	// Random 32-byte keys behind the exact prefix are always accepted.
	for i := 0; i < 1000; i++ {
		script := make([]byte, 34)
		script[0] = 0x51
		script[1] = 0x20
		rng.Read(script[2:])
		assert.True(t, IsP2TR(script))
	}
}
