package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleChains = `
chains:
  - name: Telos EVM
    short_name: telos
    chain_id: 2
    net_id: 40
    bridge_contract: "0x9a469d1e668425907548209ab4aa2a36D2d59a14"
    token_contract: "0x7825e833D495F3d1c28872415a4aee339D26AC88"
    token_decimals: 18
    endpoints:
      - https://mainnet.telos.net/evm
      - https://rpc1.us.telos.net/evm
      - https://rpc2.us.telos.net/evm
    start_block: 180000000
    blocks_to_wait: 5
    batch_size: 100
    poll_interval: 30
    verifications: 1
  - name: BNB Smart Chain
    short_name: bsc
    chain_id: 3
    net_id: 56
    bridge_contract: "0xd2b86a5A2A85a4BF48ABa273b301095a0C390479"
    token_decimals: 18
    endpoints:
      - https://bsc-dataseed.binance.org
      - https://bsc-dataseed1.defibit.io
    blocks_to_wait: 15
    verifications: 1
`

func writeChains(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadChains(t *testing.T) {
	chains, err := loadChains(writeChains(t, sampleChains))
	require.NoError(t, err)
	require.Len(t, chains, 2)

	telos := chains[0]
	require.Equal(t, "telos", telos.ShortName)
	require.Equal(t, uint8(2), telos.ChainID)
	require.Equal(t, uint64(40), telos.NetID)
	require.Equal(t, uint64(180000000), telos.StartBlock)
	require.Len(t, telos.Endpoints, 3)
	require.Equal(t, 1, telos.Verifications)
}

func TestLoadChainsMissingFile(t *testing.T) {
	_, err := loadChains(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadChainsRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "empty",
			content: "chains: []",
		},
		{
			name: "no endpoints",
			content: `
chains:
  - short_name: telos
    chain_id: 2
    bridge_contract: "0x9a469d1e668425907548209ab4aa2a36D2d59a14"
`,
		},
		{
			name: "too many verifications",
			content: `
chains:
  - short_name: telos
    chain_id: 2
    bridge_contract: "0x9a469d1e668425907548209ab4aa2a36D2d59a14"
    endpoints: ["https://a", "https://b"]
    verifications: 2
`,
		},
		{
			name: "bad contract address",
			content: `
chains:
  - short_name: telos
    chain_id: 2
    bridge_contract: "not-an-address"
    endpoints: ["https://a"]
`,
		},
		{
			name: "duplicate chain id",
			content: `
chains:
  - short_name: telos
    chain_id: 2
    bridge_contract: "0x9a469d1e668425907548209ab4aa2a36D2d59a14"
    endpoints: ["https://a"]
  - short_name: bsc
    chain_id: 2
    bridge_contract: "0xd2b86a5A2A85a4BF48ABa273b301095a0C390479"
    endpoints: ["https://b"]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadChains(writeChains(t, tt.content))
			require.Error(t, err)
		})
	}
}
