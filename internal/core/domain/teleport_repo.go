package domain

import "context"

type TeleportRepository interface {
	Get(ctx context.Context, id uint64) (*Teleport, error)
	// GetFrom returns up to limit entries with id >= fromID, ordered by id.
	GetFrom(ctx context.Context, fromID uint64, limit int) ([]Teleport, error)
	GetByAccount(ctx context.Context, account string) ([]Teleport, error)
	// Add assigns the next sequential id and returns it.
	Add(ctx context.Context, teleport Teleport) (uint64, error)
	Update(ctx context.Context, teleport Teleport) error
	Delete(ctx context.Context, id uint64) error
	// DeleteClaimedUpTo removes claimed entries with id <= uptoID and
	// returns how many were removed. Unclaimed entries are retained.
	DeleteClaimedUpTo(ctx context.Context, uptoID uint64) (int, error)
	Close()
}
