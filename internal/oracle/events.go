package oracle

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
)

// Topic hashes of the bridge contract events the watcher subscribes to.
var (
	TeleportTopic = crypto.Keccak256Hash(
		[]byte("Teleport(address,uint64,string,uint256,uint8)"),
	)
	ClaimedTopic = crypto.Keccak256Hash(
		[]byte("Claimed(uint64,address,uint256)"),
	)
)

var (
	teleportEventArgs = abi.Arguments{
		{Name: "id", Type: mustABIType("uint64")},
		{Name: "to", Type: mustABIType("string")},
		{Name: "tokens", Type: mustABIType("uint256")},
		{Name: "chainId", Type: mustABIType("uint8")},
	}
	claimedEventArgs = abi.Arguments{
		{Name: "id", Type: mustABIType("uint64")},
		{Name: "to", Type: mustABIType("address")},
		{Name: "tokens", Type: mustABIType("uint256")},
	}
)

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// teleportEvent is a burn on the bridge contract, to be reported to the
// ledger as a receipt keyed by (chain id, index).
type teleportEvent struct {
	Index   uint64
	From    common.Address
	To      string
	Tokens  *big.Int
	ChainID uint8
}

// claimedEvent marks a ledger teleport as minted on the bridge contract.
type claimedEvent struct {
	ID     uint64
	To     common.Address
	Tokens *big.Int
}

func decodeTeleportEvent(lg types.Log) (*teleportEvent, error) {
	if len(lg.Topics) < 2 {
		return nil, fmt.Errorf("teleport log is missing the sender topic")
	}
	values, err := teleportEventArgs.Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode teleport log: %s", err)
	}
	return &teleportEvent{
		Index:   values[0].(uint64),
		From:    common.BytesToAddress(lg.Topics[1].Bytes()),
		To:      values[1].(string),
		Tokens:  values[2].(*big.Int),
		ChainID: values[3].(uint8),
	}, nil
}

func decodeClaimedEvent(lg types.Log) (*claimedEvent, error) {
	values, err := claimedEventArgs.Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode claimed log: %s", err)
	}
	return &claimedEvent{
		ID:     values[0].(uint64),
		To:     values[1].(common.Address),
		Tokens: values[2].(*big.Int),
	}, nil
}

// scaleTokens converts a raw contract amount expressed with the given number
// of decimals to the ledger symbol precision. Excess fractional digits are
// floored away.
func scaleTokens(tokens *big.Int, decimals uint8, symbol domain.Symbol) domain.Asset {
	amount := new(big.Int).Set(tokens)
	switch {
	case decimals > symbol.Precision:
		div := new(big.Int).Exp(
			big.NewInt(10), big.NewInt(int64(decimals-symbol.Precision)), nil,
		)
		amount.Quo(amount, div)
	case decimals < symbol.Precision:
		mul := new(big.Int).Exp(
			big.NewInt(10), big.NewInt(int64(symbol.Precision-decimals)), nil,
		)
		amount.Mul(amount, mul)
	}
	return domain.NewAsset(amount, symbol)
}
