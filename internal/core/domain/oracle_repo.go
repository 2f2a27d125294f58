package domain

import "context"

type OracleRepository interface {
	Get(ctx context.Context, account string) (*Oracle, error)
	GetAll(ctx context.Context) ([]Oracle, error)
	Add(ctx context.Context, oracle Oracle) error
	Delete(ctx context.Context, account string) error
	Close()
}
