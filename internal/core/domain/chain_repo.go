package domain

import "context"

type ChainRepository interface {
	Get(ctx context.Context, id uint8) (*Chain, error)
	GetAll(ctx context.Context) ([]Chain, error)
	Add(ctx context.Context, chain Chain) error
	Update(ctx context.Context, chain Chain) error
	Delete(ctx context.Context, id uint8) error
	Close()
}
