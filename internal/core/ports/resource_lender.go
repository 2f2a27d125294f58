package ports

import (
	"context"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
)

// Capacity is the metered-compute budget left on the oracle's signing
// account, in the lender's billable units.
type Capacity struct {
	Available int64
	Max       int64
}

// ResourceLender buys metered compute capacity for the oracle's signing
// account on chains that bill for execution.
type ResourceLender interface {
	// Capacity returns the remaining budget for the named resource.
	Capacity(ctx context.Context, resource string) (*Capacity, error)
	// Balance returns the payment-token balance of the signing account.
	Balance(ctx context.Context) (domain.Asset, error)
	// Borrow purchases capacity for the named resource, paying up to the
	// given amount.
	Borrow(ctx context.Context, resource string, payment domain.Asset) error
}
