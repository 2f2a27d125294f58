package domain

import "context"

type ReceiptRepository interface {
	Get(ctx context.Context, id uint64) (*Receipt, error)
	GetByChainIndex(ctx context.Context, chainID uint8, index uint64) (*Receipt, error)
	GetByRefHash(ctx context.Context, refHash string) (*Receipt, error)
	GetAll(ctx context.Context) ([]Receipt, error)
	// Add assigns the next sequential id and returns it.
	Add(ctx context.Context, receipt Receipt) (uint64, error)
	Update(ctx context.Context, receipt Receipt) error
	// DeleteCompletedUpTo removes completed receipts with id <= uptoID and
	// returns how many were removed. Pending receipts are retained.
	DeleteCompletedUpTo(ctx context.Context, uptoID uint64) (int, error)
	Close()
}
