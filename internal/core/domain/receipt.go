package domain

// Receipt aggregates oracle reports of a single remote-chain teleport until
// the confirmation threshold is reached and the deposit is credited.
// (ChainID, Index) is unique; RefHash is the remote transaction reference.
type Receipt struct {
	ID            uint64
	ChainID       uint8
	Index         uint64
	RefHash       string
	ToAccount     string
	Quantity      Asset
	Approvers     []string
	Confirmations uint8
	Completed     bool
	Date          int64
}

// ApprovedBy reports whether the given oracle already confirmed this receipt.
func (r Receipt) ApprovedBy(account string) bool {
	for _, approver := range r.Approvers {
		if approver == account {
			return true
		}
	}
	return false
}
