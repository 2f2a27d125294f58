package domain

// Deposit is the refundable balance an account holds on the ledger before a
// teleport burns it or after a completed inbound transfer credits it.
// Balances never go negative.
type Deposit struct {
	Account string
	Balance Asset
}
