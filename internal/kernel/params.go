package kernel

import (
	"fmt"
	"strings"
)

// Params identifies a Bitcoin network and the message-start bytes that
// prefix its on-disk block and undo records.
type Params struct {
	Name  string
	Magic [4]byte
}

var networks = map[string]Params{
	"mainnet": {Name: "mainnet", Magic: [4]byte{0xf9, 0xbe, 0xb4, 0xd9}},
	"testnet": {Name: "testnet", Magic: [4]byte{0x0b, 0x11, 0x09, 0x07}},
	"regtest": {Name: "regtest", Magic: [4]byte{0xfa, 0xbf, 0xb5, 0xda}},
	"signet":  {Name: "signet", Magic: [4]byte{0x0a, 0x03, 0xcf, 0x40}},
}

// ParamsForNetwork resolves a network name (case-insensitive) to its
// parameters.
func ParamsForNetwork(name string) (Params, error) {
	p, ok := networks[strings.ToLower(name)]
	if !ok {
		return Params{}, fmt.Errorf("invalid network type: %q", name)
	}
	return p, nil
}
