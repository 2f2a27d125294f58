package domain

// OracleSignature is one oracle's attestation over a teleport entry.
type OracleSignature struct {
	Account   string
	Signature string
}

// Teleport is an outbound transfer burning a ledger deposit so the tokens
// can be minted on the destination chain once enough oracles have signed.
// Quantity is the post-fee amount.
type Teleport struct {
	ID          uint64
	Time        int64
	Account     string
	Quantity    Asset
	ChainID     uint8
	DestAddress string
	Signatures  []OracleSignature
	Claimed     bool
}

// SignedBy reports whether the given oracle already signed this entry.
func (t Teleport) SignedBy(account string) bool {
	for _, sig := range t.Signatures {
		if sig.Account == account {
			return true
		}
	}
	return false
}

// HasSignature reports whether the exact signature bytes were already
// recorded, regardless of the signing oracle.
func (t Teleport) HasSignature(signature string) bool {
	for _, sig := range t.Signatures {
		if sig.Signature == signature {
			return true
		}
	}
	return false
}
