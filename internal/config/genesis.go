package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Genesis is the initial ledger state, applied once to an empty journal.
//
//	admin = "ST1..."
//	start_block = 1
//	providers = ["ST2..."]
//
//	[balances]
//	"ST1..." = 1000000
type Genesis struct {
	Admin      string            `toml:"admin"`
	StartBlock uint64            `toml:"start_block"`
	Providers  []string          `toml:"providers"`
	Balances   map[string]uint64 `toml:"balances"`
}

// LoadGenesis decodes the TOML genesis file at path. An empty path yields an
// empty genesis.
func LoadGenesis(path string) (Genesis, error) {
	var g Genesis
	if path == "" {
		return g, nil
	}
	md, err := toml.DecodeFile(path, &g)
	if err != nil {
		return Genesis{}, fmt.Errorf("failed to decode genesis %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Genesis{}, fmt.Errorf("unknown genesis keys: %v", undecoded)
	}
	return g, nil
}
