package domain

// Oracle is a set-membership row for an authorized off-chain reporter.
type Oracle struct {
	Account string
}
