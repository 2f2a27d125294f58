package application

import (
	"context"
	"math/big"
	"time"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
	errs "github.com/teleport-bridge/teleportd/pkg/errors"
)

// Teleport burns part of the account's deposit into an outbound transfer.
// The full quantity is debited; the created entry carries quantity minus fee
// and the fee goes to the collected balance.
func (s *LedgerService) Teleport(
	ctx context.Context, auth, account string,
	quantity domain.Asset, destChainID uint8, destAddress string,
) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if auth != account {
		return 0, errs.UNAUTHORIZED.New("missing authority of %s", account).
			WithMetadata(errs.OracleMetadata{Account: auth})
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return 0, err
	}
	if stats.Freeze.Out {
		return 0, errs.FROZEN.New("outbound transfers are currently frozen")
	}
	if err := validateQuantity(stats, quantity); err != nil {
		return 0, err
	}
	chain, err := s.repos.Chains().Get(ctx, destChainID)
	if err != nil {
		return 0, errs.INTERNAL_ERROR.Wrap(err)
	}
	if chain == nil {
		return 0, errs.CHAIN_NOT_FOUND.New("chain not found").
			WithMetadata(errs.ChainMetadata{ChainID: destChainID})
	}

	if err := s.debitDeposit(ctx, account, quantity); err != nil {
		return 0, err
	}

	fee := stats.FeeFor(quantity.Amount)
	sent := domain.NewAsset(new(big.Int).Sub(quantity.Amount, fee), stats.Symbol)

	id, err := s.repos.Teleports().Add(ctx, domain.Teleport{
		Time:        time.Now().Unix(),
		Account:     account,
		Quantity:    sent,
		ChainID:     destChainID,
		DestAddress: destAddress,
	})
	if err != nil {
		return 0, errs.INTERNAL_ERROR.Wrap(err)
	}

	stats.CollectedFees.Amount = new(big.Int).Add(stats.CollectedFees.Amount, fee)
	if err := s.repos.Stats().Upsert(ctx, *stats); err != nil {
		return 0, errs.INTERNAL_ERROR.Wrap(err)
	}
	return id, nil
}

// Sign records one oracle's signature over a teleport entry. Each oracle
// signs at most once and signature bytes must be distinct across oracles.
func (s *LedgerService) Sign(
	ctx context.Context, auth string, teleportID uint64, signature string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOracle(ctx, auth); err != nil {
		return err
	}
	teleport, err := s.repos.Teleports().Get(ctx, teleportID)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if teleport == nil {
		return errs.TELEPORT_NOT_FOUND.New("teleport not found").
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}
	if teleport.SignedBy(auth) {
		return errs.ALREADY_SIGNED.New("oracle %s has already signed", auth).
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}
	if teleport.HasSignature(signature) {
		return errs.DUPLICATE_SIGNATURE.New("already signed with this signature").
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}

	teleport.Signatures = append(teleport.Signatures, domain.OracleSignature{
		Account:   auth,
		Signature: signature,
	})
	return s.repos.Teleports().Update(ctx, *teleport)
}

// Claimed marks a teleport as released on the destination chain. A repeat
// call is rejected with a message the oracle side classifies as success.
func (s *LedgerService) Claimed(
	ctx context.Context, auth string, teleportID uint64,
	destAddress string, quantity domain.Asset,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOracle(ctx, auth); err != nil {
		return err
	}
	teleport, err := s.repos.Teleports().Get(ctx, teleportID)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if teleport == nil {
		return errs.TELEPORT_NOT_FOUND.New("teleport not found").
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}
	if teleport.Claimed {
		return errs.ALREADY_CLAIMED.New("Already marked as claimed").
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}
	if !quantity.SameSymbol(teleport.Quantity) ||
		quantity.Amount.Cmp(teleport.Quantity.Amount) != 0 {
		return errs.QUANTITY_MISMATCH.New("quantity mismatch").
			WithMetadata(errs.QuantityMetadata{
				Expected: teleport.Quantity.String(),
				Got:      quantity.String(),
			})
	}

	teleport.Claimed = true
	return s.repos.Teleports().Update(ctx, *teleport)
}

// Cancel refunds an expired, unclaimed teleport back to its account.
func (s *LedgerService) Cancel(ctx context.Context, auth string, teleportID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if stats.Freeze.Cancel {
		return errs.FROZEN.New("cancellations are currently frozen")
	}
	teleport, err := s.repos.Teleports().Get(ctx, teleportID)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if teleport == nil {
		return errs.TELEPORT_NOT_FOUND.New("teleport not found").
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}
	if auth != teleport.Account {
		return errs.UNAUTHORIZED.New("missing authority of %s", teleport.Account).
			WithMetadata(errs.OracleMetadata{Account: auth})
	}
	if teleport.Claimed {
		return errs.ALREADY_CLAIMED.New("Already marked as claimed").
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}
	if time.Since(time.Unix(teleport.Time, 0)) < s.cancelExpiry {
		return errs.NOT_EXPIRED.New("teleport is not expired yet").
			WithMetadata(errs.TeleportMetadata{TeleportID: teleportID})
	}

	if err := s.creditDeposit(ctx, teleport.Account, teleport.Quantity); err != nil {
		return err
	}
	return s.repos.Teleports().Delete(ctx, teleportID)
}

// Withdraw debits the account's deposit. The actual token transfer out of
// the bridge is performed by the hosting chain, outside this state machine.
func (s *LedgerService) Withdraw(
	ctx context.Context, auth, account string, quantity domain.Asset,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if auth != account {
		return errs.UNAUTHORIZED.New("missing authority of %s", account).
			WithMetadata(errs.OracleMetadata{Account: auth})
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if quantity.Symbol != stats.Symbol {
		return errs.WRONG_TOKEN.New(
			"wrong token: expected %s, got %s", stats.Symbol, quantity.Symbol,
		)
	}
	if quantity.IsZero() || quantity.IsNegative() {
		return errs.QUANTITY_MISMATCH.New("quantity must be positive")
	}
	return s.debitDeposit(ctx, account, quantity)
}

// Transfer credits an account's deposit with tokens sent into the bridge.
// This is the entry point the hosting chain's token hook drives on an
// incoming transfer.
func (s *LedgerService) Transfer(
	ctx context.Context, auth, account string, quantity domain.Asset,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if auth != account {
		return errs.UNAUTHORIZED.New("missing authority of %s", account).
			WithMetadata(errs.OracleMetadata{Account: auth})
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if quantity.Symbol != stats.Symbol {
		return errs.WRONG_TOKEN.New(
			"wrong token: expected %s, got %s", stats.Symbol, quantity.Symbol,
		)
	}
	if quantity.IsZero() || quantity.IsNegative() {
		return errs.QUANTITY_MISMATCH.New("quantity must be positive")
	}
	return s.creditDeposit(ctx, account, quantity)
}
