package ledgerclient

import (
	"context"

	"github.com/teleport-bridge/teleportd/internal/core/application"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
)

// local drives the in-process ledger state machine directly. It is the
// transport used when the oracle loops run inside the same daemon as the
// ledger.
type local struct {
	svc *application.LedgerService
}

func NewLocal(svc *application.LedgerService) ports.LedgerClient {
	return &local{svc}
}

func (l *local) Received(
	ctx context.Context, oracle, toAccount, refHash string,
	quantity domain.Asset, chainID uint8, index uint64, confirmed bool,
) error {
	return l.svc.Received(ctx, oracle, toAccount, refHash, quantity, chainID, index, confirmed)
}

func (l *local) Sign(
	ctx context.Context, oracle string, teleportID uint64, signature string,
) error {
	return l.svc.Sign(ctx, oracle, teleportID, signature)
}

func (l *local) Claimed(
	ctx context.Context, oracle string, teleportID uint64,
	destAddress string, quantity domain.Asset,
) error {
	return l.svc.Claimed(ctx, oracle, teleportID, destAddress, quantity)
}

func (l *local) TeleportsFrom(
	ctx context.Context, fromID uint64, limit int,
) ([]domain.Teleport, error) {
	return l.svc.GetTeleportsFrom(ctx, fromID, limit)
}
