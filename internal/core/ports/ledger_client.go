package ports

import (
	"context"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
)

// LedgerClient submits signed oracle actions to the ledger and reads the
// teleport table. Implementations are expected to be idempotence-aware:
// rejections the ledger emits when another oracle already converged the same
// state are classified as success by the caller.
type LedgerClient interface {
	Received(
		ctx context.Context, oracle, toAccount, refHash string,
		quantity domain.Asset, chainID uint8, index uint64, confirmed bool,
	) error
	Sign(ctx context.Context, oracle string, teleportID uint64, signature string) error
	Claimed(
		ctx context.Context, oracle string, teleportID uint64,
		destAddress string, quantity domain.Asset,
	) error
	// TeleportsFrom returns up to limit teleports with id >= fromID.
	TeleportsFrom(ctx context.Context, fromID uint64, limit int) ([]domain.Teleport, error)
}
