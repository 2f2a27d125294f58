package domain

import "math/big"

// FreezeFlags gates groups of ledger actions independently.
type FreezeFlags struct {
	In      bool
	Out     bool
	Cancel  bool
	Oracles bool
}

// Stats is the singleton configuration and counters row of the ledger.
type Stats struct {
	Symbol        Symbol
	MinTransfer   Asset
	FixedFee      Asset
	FeeRatio      uint64 // parts per RatioScale
	CollectedFees Asset
	Threshold     uint8
	OracleCount   uint8
	Freeze        FreezeFlags
	Version       uint64
}

// NewStats initializes the ledger configuration for a token symbol.
func NewStats(symbol Symbol, minTransfer Asset, threshold uint8) *Stats {
	return &Stats{
		Symbol:        symbol,
		MinTransfer:   minTransfer,
		FixedFee:      ZeroAsset(symbol),
		CollectedFees: ZeroAsset(symbol),
		Threshold:     threshold,
	}
}

// FeeFor returns floor(amount * ratio / RatioScale) + fixed for an amount in
// minor units.
func (s Stats) FeeFor(amount *big.Int) *big.Int {
	fee := ApplyRatio(amount, s.FeeRatio)
	if s.FixedFee.Amount != nil {
		fee.Add(fee, s.FixedFee.Amount)
	}
	return fee
}
