package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ChainConfig describes one watched EVM network. The ledger-side chain
// registry (ids, cursors) lives in the database; this is the oracle-side
// connection config only.
type ChainConfig struct {
	Name           string   `yaml:"name"`
	ShortName      string   `yaml:"short_name"`
	ChainID        uint8    `yaml:"chain_id"`
	NetID          uint64   `yaml:"net_id"`
	BridgeContract string   `yaml:"bridge_contract"`
	TokenContract  string   `yaml:"token_contract"`
	TokenDecimals  uint8    `yaml:"token_decimals"`
	Endpoints      []string `yaml:"endpoints"`
	StartBlock     uint64   `yaml:"start_block"`
	BlocksToWait   uint64   `yaml:"blocks_to_wait"`
	LookBack       uint64   `yaml:"look_back"`
	BatchSize      uint64   `yaml:"batch_size"`
	PollInterval   int64    `yaml:"poll_interval"` // seconds
	Verifications  int      `yaml:"verifications"`
}

type chainsFile struct {
	Chains []ChainConfig `yaml:"chains"`
}

func loadChains(path string) ([]ChainConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chains file: %s", err)
	}

	var file chainsFile
	if err := yaml.Unmarshal(buf, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chains file: %s", err)
	}
	if len(file.Chains) == 0 {
		return nil, fmt.Errorf("chains file %s lists no chains", path)
	}

	seen := make(map[uint8]struct{})
	for _, chain := range file.Chains {
		if err := validateChain(chain); err != nil {
			return nil, fmt.Errorf("chain %s: %s", chain.ShortName, err)
		}
		if _, ok := seen[chain.ChainID]; ok {
			return nil, fmt.Errorf("duplicate chain id %d", chain.ChainID)
		}
		seen[chain.ChainID] = struct{}{}
	}
	return file.Chains, nil
}

func validateChain(chain ChainConfig) error {
	if chain.ShortName == "" {
		return fmt.Errorf("missing short name")
	}
	if !common.IsHexAddress(chain.BridgeContract) {
		return fmt.Errorf("invalid bridge contract address %q", chain.BridgeContract)
	}
	if chain.TokenContract != "" && !common.IsHexAddress(chain.TokenContract) {
		return fmt.Errorf("invalid token contract address %q", chain.TokenContract)
	}
	if len(chain.Endpoints) == 0 {
		return fmt.Errorf("missing endpoints")
	}
	// at least one endpoint must remain to watch with
	if chain.Verifications >= len(chain.Endpoints) {
		return fmt.Errorf(
			"verifications (%d) must be lower than the endpoint count (%d)",
			chain.Verifications, len(chain.Endpoints),
		)
	}
	if chain.TokenDecimals > 18 {
		return fmt.Errorf("token decimals must be at most 18")
	}
	return nil
}
