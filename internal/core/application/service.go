package application

import (
	"context"
	"sync"
	"time"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	errs "github.com/teleport-bridge/teleportd/pkg/errors"
)

// LedgerService is the authoritative bridge state machine. Every action is
// an atomic transition: it either fully applies or fails leaving state
// untouched. Actions are serialized under a single mutex, mirroring the
// single-action-at-a-time execution model of the hosting chain.
type LedgerService struct {
	mu           sync.Mutex
	repos        ports.RepoManager
	owner        string
	cancelExpiry time.Duration
}

func NewLedgerService(
	repos ports.RepoManager, owner string, cancelExpiry time.Duration,
) *LedgerService {
	return &LedgerService{
		repos:        repos,
		owner:        owner,
		cancelExpiry: cancelExpiry,
	}
}

func (s *LedgerService) requireOwner(auth string) error {
	if auth != s.owner {
		return errs.UNAUTHORIZED.New("missing authority of %s", s.owner).
			WithMetadata(errs.OracleMetadata{Account: auth})
	}
	return nil
}

func (s *LedgerService) requireOracle(ctx context.Context, auth string) error {
	oracle, err := s.repos.Oracles().Get(ctx, auth)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if oracle == nil {
		return errs.NOT_ORACLE.New("account %s is not an oracle", auth).
			WithMetadata(errs.OracleMetadata{Account: auth})
	}
	return nil
}

func (s *LedgerService) getStats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.repos.Stats().Get(ctx)
	if err != nil {
		return nil, errs.INTERNAL_ERROR.Wrap(err)
	}
	if stats == nil {
		return nil, errs.NOT_INITIALIZED.New("ledger is not initialized")
	}
	return stats, nil
}

// creditDeposit adds quantity to the account's balance, creating the row on
// first credit.
func (s *LedgerService) creditDeposit(
	ctx context.Context, account string, quantity domain.Asset,
) error {
	deposit, err := s.repos.Deposits().Get(ctx, account)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if deposit == nil {
		return s.repos.Deposits().Upsert(ctx, domain.Deposit{
			Account: account,
			Balance: quantity.Clone(),
		})
	}
	balance, err := deposit.Balance.Add(quantity)
	if err != nil {
		return errs.WRONG_TOKEN.Wrap(err)
	}
	deposit.Balance = balance
	return s.repos.Deposits().Upsert(ctx, *deposit)
}

// debitDeposit subtracts quantity, rejecting a missing row and an
// insufficient balance with distinct messages.
func (s *LedgerService) debitDeposit(
	ctx context.Context, account string, quantity domain.Asset,
) error {
	deposit, err := s.repos.Deposits().Get(ctx, account)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if deposit == nil {
		return errs.NO_DEPOSIT.New("no deposit found for account %s", account).
			WithMetadata(errs.DepositMetadata{
				Account:   account,
				Requested: quantity.String(),
			})
	}
	cmp, err := deposit.Balance.Cmp(quantity)
	if err != nil {
		return errs.WRONG_TOKEN.Wrap(err)
	}
	if cmp < 0 {
		return errs.INSUFFICIENT_DEPOSIT.New(
			"insufficient deposit: requested %s, available %s",
			quantity, deposit.Balance,
		).WithMetadata(errs.DepositMetadata{
			Account:   account,
			Requested: quantity.String(),
			Available: deposit.Balance.String(),
		})
	}
	balance, err := deposit.Balance.Sub(quantity)
	if err != nil {
		return errs.WRONG_TOKEN.Wrap(err)
	}
	deposit.Balance = balance
	return s.repos.Deposits().Upsert(ctx, *deposit)
}

// validateQuantity checks symbol and minimum against the configured token.
func validateQuantity(stats *domain.Stats, quantity domain.Asset) error {
	if quantity.Symbol != stats.Symbol {
		return errs.WRONG_TOKEN.New(
			"wrong token: expected %s, got %s", stats.Symbol, quantity.Symbol,
		).WithMetadata(errs.QuantityMetadata{
			Expected: stats.Symbol.String(),
			Got:      quantity.Symbol.String(),
		})
	}
	cmp, err := quantity.Cmp(stats.MinTransfer)
	if err != nil {
		return errs.WRONG_TOKEN.Wrap(err)
	}
	if cmp < 0 {
		return errs.BELOW_MINIMUM.New(
			"quantity is below minimum transfer amount %s", stats.MinTransfer,
		).WithMetadata(errs.QuantityMetadata{
			Expected: stats.MinTransfer.String(),
			Got:      quantity.String(),
		})
	}
	return nil
}

// Queries. Read-only table scans, not serialized with actions.

func (s *LedgerService) GetStats(ctx context.Context) (*domain.Stats, error) {
	return s.repos.Stats().Get(ctx)
}

func (s *LedgerService) GetChains(ctx context.Context) ([]domain.Chain, error) {
	return s.repos.Chains().GetAll(ctx)
}

func (s *LedgerService) GetOracles(ctx context.Context) ([]domain.Oracle, error) {
	return s.repos.Oracles().GetAll(ctx)
}

func (s *LedgerService) GetDeposit(
	ctx context.Context, account string,
) (*domain.Deposit, error) {
	return s.repos.Deposits().Get(ctx, account)
}

func (s *LedgerService) GetTeleport(
	ctx context.Context, id uint64,
) (*domain.Teleport, error) {
	return s.repos.Teleports().Get(ctx, id)
}

func (s *LedgerService) GetTeleportsFrom(
	ctx context.Context, fromID uint64, limit int,
) ([]domain.Teleport, error) {
	return s.repos.Teleports().GetFrom(ctx, fromID, limit)
}

func (s *LedgerService) GetReceiptByRefHash(
	ctx context.Context, refHash string,
) (*domain.Receipt, error) {
	return s.repos.Receipts().GetByRefHash(ctx, refHash)
}
