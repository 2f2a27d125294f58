package application

import (
	"context"
	"math/big"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
	errs "github.com/teleport-bridge/teleportd/pkg/errors"
)

// maxFeeRatio caps the variable fee at 20% of the transferred amount.
const maxFeeRatio = domain.RatioScale / 5

// Init creates the ledger configuration singleton. It can run only once.
func (s *LedgerService) Init(
	ctx context.Context, auth string,
	symbol domain.Symbol, minTransfer domain.Asset,
	threshold uint8, freeze domain.FreezeFlags, version uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	existing, err := s.repos.Stats().Get(ctx)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if existing != nil {
		return errs.ALREADY_INITIALIZED.New("already initialized")
	}
	if threshold == 0 {
		return errs.INVALID_THRESHOLD.New("threshold must be positive")
	}
	if minTransfer.Symbol != symbol {
		return errs.WRONG_TOKEN.New(
			"wrong token: minimum transfer %s does not match %s",
			minTransfer.Symbol, symbol,
		)
	}

	stats := domain.NewStats(symbol, minTransfer, threshold)
	stats.Freeze = freeze
	stats.Version = version
	return s.repos.Stats().Upsert(ctx, *stats)
}

// AddChain registers a remote chain. The ordering cursor starts at the
// chain's first teleport index.
func (s *LedgerService) AddChain(ctx context.Context, auth string, chain domain.Chain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	if _, err := s.getStats(ctx); err != nil {
		return err
	}
	existing, err := s.repos.Chains().Get(ctx, chain.ID)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if existing != nil {
		return errs.DUPLICATE_CHAIN_ID.New("chain id already registered").
			WithMetadata(errs.ChainMetadata{ChainID: chain.ID})
	}

	chain.LastIndex = chain.FirstIndex
	return s.repos.Chains().Add(ctx, chain)
}

func (s *LedgerService) RemoveChain(ctx context.Context, auth string, id uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	chain, err := s.repos.Chains().Get(ctx, id)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if chain == nil {
		return errs.CHAIN_NOT_FOUND.New("chain not found").
			WithMetadata(errs.ChainMetadata{ChainID: id})
	}
	return s.repos.Chains().Delete(ctx, id)
}

func (s *LedgerService) RegisterOracle(ctx context.Context, auth, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if stats.Freeze.Oracles {
		return errs.FROZEN.New("oracle registry is currently frozen")
	}
	existing, err := s.repos.Oracles().Get(ctx, account)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if existing != nil {
		return errs.ALREADY_ORACLE.New("account %s is already an oracle", account).
			WithMetadata(errs.OracleMetadata{Account: account})
	}

	if err := s.repos.Oracles().Add(ctx, domain.Oracle{Account: account}); err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	stats.OracleCount++
	return s.repos.Stats().Upsert(ctx, *stats)
}

func (s *LedgerService) UnregisterOracle(ctx context.Context, auth, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if stats.Freeze.Oracles {
		return errs.FROZEN.New("oracle registry is currently frozen")
	}
	existing, err := s.repos.Oracles().Get(ctx, account)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if existing == nil {
		return errs.NOT_ORACLE.New("account %s is not an oracle", account).
			WithMetadata(errs.OracleMetadata{Account: account})
	}

	if err := s.repos.Oracles().Delete(ctx, account); err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	stats.OracleCount--
	return s.repos.Stats().Upsert(ctx, *stats)
}

// SetFreeze replaces the freeze flags gating inbound, outbound, cancel and
// oracle-registry actions.
func (s *LedgerService) SetFreeze(
	ctx context.Context, auth string, freeze domain.FreezeFlags,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	stats.Freeze = freeze
	stats.Version++
	return s.repos.Stats().Upsert(ctx, *stats)
}

func (s *LedgerService) SetMin(ctx context.Context, auth string, min domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if min.Symbol != stats.Symbol {
		return errs.WRONG_TOKEN.New(
			"wrong token: expected %s, got %s", stats.Symbol, min.Symbol,
		)
	}
	if stats.FeeFor(min.Amount).Cmp(min.Amount) >= 0 && min.Amount.Sign() > 0 {
		return errs.INVALID_FEE.New("fees would exceed the minimum transfer")
	}
	stats.MinTransfer = min.Clone()
	stats.Version++
	return s.repos.Stats().Upsert(ctx, *stats)
}

// SetFee updates the fixed fee and the variable ratio. The ratio is decimal
// text parsed into parts-per-1e17, valid range [0, 0.2].
func (s *LedgerService) SetFee(
	ctx context.Context, auth string, fixed domain.Asset, ratioText string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	ratio, err := domain.ParseRatio(ratioText)
	if err != nil || ratio > maxFeeRatio {
		return errs.INVALID_FEE.New("fee ratio must be between 0 and 0.2").
			WithMetadata(errs.FeeMetadata{
				FixedFee:      fixed.String(),
				VariableRatio: ratioText,
			})
	}
	if fixed.Symbol != stats.Symbol {
		return errs.WRONG_TOKEN.New(
			"wrong token: expected %s, got %s", stats.Symbol, fixed.Symbol,
		)
	}
	if fixed.IsNegative() {
		return errs.INVALID_FEE.New("fixed fee must not be negative")
	}

	candidate := *stats
	candidate.FixedFee = fixed.Clone()
	candidate.FeeRatio = ratio
	min := stats.MinTransfer.Amount
	if min.Sign() > 0 && candidate.FeeFor(min).Cmp(min) >= 0 {
		return errs.INVALID_FEE.New("fees would exceed the minimum transfer").
			WithMetadata(errs.FeeMetadata{
				FixedFee:      fixed.String(),
				VariableRatio: ratioText,
			})
	}

	candidate.Version++
	return s.repos.Stats().Upsert(ctx, candidate)
}

func (s *LedgerService) SetThreshold(ctx context.Context, auth string, n uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.INVALID_THRESHOLD.New("threshold must be positive")
	}
	stats.Threshold = n
	stats.Version++
	return s.repos.Stats().Upsert(ctx, *stats)
}

// DeleteTeleports removes claimed teleports with id <= uptoID. The boundary
// row must exist; unclaimed rows in range are retained.
func (s *LedgerService) DeleteTeleports(
	ctx context.Context, auth string, uptoID uint64,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return 0, err
	}
	boundary, err := s.repos.Teleports().Get(ctx, uptoID)
	if err != nil {
		return 0, errs.INTERNAL_ERROR.Wrap(err)
	}
	if boundary == nil {
		return 0, errs.TELEPORT_NOT_FOUND.New("teleport not found").
			WithMetadata(errs.TeleportMetadata{TeleportID: uptoID})
	}
	return s.repos.Teleports().DeleteClaimedUpTo(ctx, uptoID)
}

// DeleteReceipts removes completed receipts with id <= uptoID. The boundary
// row must exist; pending rows in range are retained.
func (s *LedgerService) DeleteReceipts(
	ctx context.Context, auth string, uptoID uint64,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return 0, err
	}
	boundary, err := s.repos.Receipts().Get(ctx, uptoID)
	if err != nil {
		return 0, errs.INTERNAL_ERROR.Wrap(err)
	}
	if boundary == nil {
		return 0, errs.RECEIPT_NOT_FOUND.New("receipt not found")
	}
	return s.repos.Receipts().DeleteCompletedUpTo(ctx, uptoID)
}

// PayOracles splits the collected fees evenly across registered oracles,
// crediting each oracle's deposit. The integer-division remainder stays in
// the collected balance.
func (s *LedgerService) PayOracles(ctx context.Context, auth string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	oracles, err := s.repos.Oracles().GetAll(ctx)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if len(oracles) == 0 {
		return errs.NO_ORACLES.New("no oracles registered")
	}

	count := big.NewInt(int64(len(oracles)))
	share := new(big.Int).Quo(stats.CollectedFees.Amount, count)
	if share.Sign() <= 0 {
		return nil
	}

	shareAsset := domain.NewAsset(share, stats.Symbol)
	for _, oracle := range oracles {
		if err := s.creditDeposit(ctx, oracle.Account, shareAsset); err != nil {
			return err
		}
	}

	paid := new(big.Int).Mul(share, count)
	stats.CollectedFees.Amount = new(big.Int).Sub(stats.CollectedFees.Amount, paid)
	return s.repos.Stats().Upsert(ctx, *stats)
}
