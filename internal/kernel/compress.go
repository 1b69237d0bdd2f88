package kernel

import (
	"fmt"
	"io"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// Opcodes and sizes used when reconstructing scripts from their compressed
// database form.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqual       = 0x87
	opEqualVerify = 0x88
	opCheckSig    = 0xac

	hash160Len         = 20
	pubKeyXLen         = 32
	compressedKeyLen   = 33
	uncompressedKeyLen = 65

	// Script kinds 0-5 are templates; 6 and above encode length+6.
	specialScripts = 6

	maxScriptSize = 10000
)

// readVarInt decodes Bitcoin Core's base-128 varint: seven value bits per
// byte, high bit as continuation, and an implicit +1 for every continuation
// byte so that each value has exactly one encoding.
func readVarInt(r io.ByteReader) (uint64, error) {
	var n uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if n > (1<<57)-1 {
			return 0, errors.New("varint overflows 64 bits")
		}
		n = n<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return n, nil
		}
		n++
	}
}

// decompressAmount reverses Core's amount compression, which strips trailing
// decimal zeroes and the last non-zero digit from satoshi values.
func decompressAmount(x uint64) int64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	var n uint64
	if e < 9 {
		d := x % 9
		x /= 9
		n = x*10 + d + 1
	} else {
		n = x + 1
	}
	for ; e > 0; e-- {
		n *= 10
	}
	return int64(n)
}

// compressedScriptPayloadSize returns how many payload bytes follow a script
// kind marker, or an error for oversized scripts.
func compressedScriptPayloadSize(kind uint64) (int, error) {
	switch {
	case kind == 0 || kind == 1:
		return hash160Len, nil
	case kind >= 2 && kind <= 5:
		return pubKeyXLen, nil
	default:
		size := kind - specialScripts
		if size > maxScriptSize {
			return 0, fmt.Errorf("compressed script size %d exceeds limit", size)
		}
		return int(size), nil
	}
}

// decompressScript reconstructs a script public key from its kind marker and
// payload. Kinds 0-5 are the template forms (P2PKH, P2SH and the P2PK
// variants); anything else is a raw script of kind-6 bytes.
func decompressScript(kind uint64, payload []byte) ([]byte, error) {
	switch kind {
	case 0: // P2PKH
		script := make([]byte, 0, hash160Len+5)
		script = append(script, opDup, opHash160, hash160Len)
		script = append(script, payload...)
		return append(script, opEqualVerify, opCheckSig), nil
	case 1: // P2SH
		script := make([]byte, 0, hash160Len+3)
		script = append(script, opHash160, hash160Len)
		script = append(script, payload...)
		return append(script, opEqual), nil
	case 2, 3: // P2PK, compressed key; the kind byte is the key prefix
		script := make([]byte, 0, compressedKeyLen+2)
		script = append(script, compressedKeyLen, byte(kind))
		script = append(script, payload...)
		return append(script, opCheckSig), nil
	case 4, 5: // P2PK, key stored compressed but uncompressed in the script
		compressed := make([]byte, 0, compressedKeyLen)
		compressed = append(compressed, byte(kind-2))
		compressed = append(compressed, payload...)
		pub, err := secp256k1.ParsePubKey(compressed)
		if err != nil {
			return nil, errors.WithMessage(err, "invalid compressed P2PK key")
		}
		script := make([]byte, 0, uncompressedKeyLen+2)
		script = append(script, uncompressedKeyLen)
		script = append(script, pub.SerializeUncompressed()...)
		return append(script, opCheckSig), nil
	default:
		script := make([]byte, len(payload))
		copy(script, payload)
		return script, nil
	}
}
