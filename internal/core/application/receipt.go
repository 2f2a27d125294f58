package application

import (
	"context"
	"math/big"
	"time"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
	errs "github.com/teleport-bridge/teleportd/pkg/errors"
)

// Received records one oracle's confirmation of a remote-chain teleport.
// The first report for a (chain, index) pair creates the receipt, later
// reports from new oracles accumulate confirmations, and the report that
// reaches the threshold releases the value: the target deposit is credited
// with quantity minus fee and the chain's ordering cursor advances.
func (s *LedgerService) Received(
	ctx context.Context, auth, toAccount, refHash string,
	quantity domain.Asset, chainID uint8, index uint64, confirmed bool,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOracle(ctx, auth); err != nil {
		return err
	}
	stats, err := s.getStats(ctx)
	if err != nil {
		return err
	}
	if stats.Freeze.In {
		return errs.FROZEN.New("inbound transfers are currently frozen")
	}
	if !confirmed {
		return errs.NOT_CONFIRMED.New("only confirmed receipts are accepted").
			WithMetadata(errs.ReceiptMetadata{ChainID: chainID, Index: index})
	}
	if err := validateQuantity(stats, quantity); err != nil {
		return err
	}
	chain, err := s.repos.Chains().Get(ctx, chainID)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}
	if chain == nil {
		return errs.CHAIN_NOT_FOUND.New("chain not found").
			WithMetadata(errs.ChainMetadata{ChainID: chainID})
	}
	if index < chain.LastIndex {
		return errs.RECEIPT_OUT_OF_ORDER.New("must confirm previous teleports first").
			WithMetadata(errs.ReceiptMetadata{ChainID: chainID, Index: index})
	}

	receipt, err := s.repos.Receipts().GetByChainIndex(ctx, chainID, index)
	if err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}

	if receipt == nil {
		_, err := s.repos.Receipts().Add(ctx, domain.Receipt{
			ChainID:       chainID,
			Index:         index,
			RefHash:       refHash,
			ToAccount:     toAccount,
			Quantity:      quantity.Clone(),
			Approvers:     []string{auth},
			Confirmations: 1,
			Date:          time.Now().Unix(),
		})
		if err != nil {
			return errs.INTERNAL_ERROR.Wrap(err)
		}
		if stats.Threshold > 1 {
			return nil
		}
		receipt, err = s.repos.Receipts().GetByChainIndex(ctx, chainID, index)
		if err != nil {
			return errs.INTERNAL_ERROR.Wrap(err)
		}
		return s.completeReceipt(ctx, stats, chain, receipt)
	}

	if receipt.Completed {
		return errs.RECEIPT_COMPLETED.New("already completed").
			WithMetadata(errs.ReceiptMetadata{ChainID: chainID, Index: index})
	}
	if receipt.ApprovedBy(auth) {
		return errs.ALREADY_APPROVED.New("Oracle has already approved this teleport").
			WithMetadata(errs.ReceiptMetadata{ChainID: chainID, Index: index})
	}
	if !quantity.SameSymbol(receipt.Quantity) ||
		quantity.Amount.Cmp(receipt.Quantity.Amount) != 0 {
		return errs.QUANTITY_MISMATCH.New("quantity mismatch").
			WithMetadata(errs.QuantityMetadata{
				Expected: receipt.Quantity.String(),
				Got:      quantity.String(),
			})
	}

	receipt.Approvers = append(receipt.Approvers, auth)
	receipt.Confirmations++

	if receipt.Confirmations < stats.Threshold {
		return s.repos.Receipts().Update(ctx, *receipt)
	}
	return s.completeReceipt(ctx, stats, chain, receipt)
}

// completeReceipt performs the value release exactly once: deposit credit
// minus fee, fee to collected, terminal completed state, cursor advance.
func (s *LedgerService) completeReceipt(
	ctx context.Context,
	stats *domain.Stats, chain *domain.Chain, receipt *domain.Receipt,
) error {
	fee := stats.FeeFor(receipt.Quantity.Amount)
	credited := domain.NewAsset(
		new(big.Int).Sub(receipt.Quantity.Amount, fee), stats.Symbol,
	)

	if err := s.creditDeposit(ctx, receipt.ToAccount, credited); err != nil {
		return err
	}

	stats.CollectedFees.Amount = new(big.Int).Add(stats.CollectedFees.Amount, fee)
	if err := s.repos.Stats().Upsert(ctx, *stats); err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}

	receipt.Completed = true
	if err := s.repos.Receipts().Update(ctx, *receipt); err != nil {
		return errs.INTERNAL_ERROR.Wrap(err)
	}

	if receipt.Index > chain.LastIndex {
		chain.LastIndex = receipt.Index
	}
	return s.repos.Chains().Update(ctx, *chain)
}
