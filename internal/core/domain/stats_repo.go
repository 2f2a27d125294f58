package domain

import "context"

type StatsRepository interface {
	Get(ctx context.Context) (*Stats, error)
	Upsert(ctx context.Context, stats Stats) error
	Clear(ctx context.Context) error
	Close()
}
