package scanner

// p2trScriptLen is the exact length of a taproot output script:
// OP_1 OP_PUSHBYTES_32 <32-byte x-only key>.
const p2trScriptLen = 34

// IsP2TR reports whether a script public key has the taproot output shape.
// The x-only key content is not validated.
func IsP2TR(script []byte) bool {
	if len(script) != p2trScriptLen {
		return false
	}
	return script[0] == 0x51 && script[1] == 0x20
}
