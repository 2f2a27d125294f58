package domain

// Chain is a registered remote chain the bridge teleports to and from.
type Chain struct {
	ID             uint8
	Name           string
	ShortName      string
	NetID          uint64
	BridgeContract string
	TokenContract  string
	FirstIndex     uint64
	// LastIndex is the ordering cursor: the highest remote teleport index
	// confirmed so far. Reports below it are rejected, confirmations for a
	// chain advance in non-decreasing index order.
	LastIndex uint64
}
