package domain

import "context"

type DepositRepository interface {
	Get(ctx context.Context, account string) (*Deposit, error)
	GetAll(ctx context.Context) ([]Deposit, error)
	Upsert(ctx context.Context, deposit Deposit) error
	Delete(ctx context.Context, account string) error
	Close()
}
