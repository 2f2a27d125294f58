package oracle_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	"github.com/teleport-bridge/teleportd/internal/oracle"
)

type fakeLender struct {
	capacity   map[string]*ports.Capacity
	balances   []int64
	balanceIdx int
	borrowErr  error
	borrows    []string
	symbol     domain.Symbol
}

func (f *fakeLender) Capacity(
	ctx context.Context, resource string,
) (*ports.Capacity, error) {
	capacity, ok := f.capacity[resource]
	if !ok {
		return nil, errors.New("unknown resource")
	}
	return capacity, nil
}

func (f *fakeLender) Balance(ctx context.Context) (domain.Asset, error) {
	amount := f.balances[f.balanceIdx]
	if f.balanceIdx < len(f.balances)-1 {
		f.balanceIdx++
	}
	return domain.NewAsset(big.NewInt(amount), f.symbol), nil
}

func (f *fakeLender) Borrow(
	ctx context.Context, resource string, payment domain.Asset,
) error {
	if f.borrowErr != nil {
		return f.borrowErr
	}
	f.borrows = append(f.borrows, resource)
	return nil
}

type fakeNotifier struct {
	statuses []string
	errs     []string
	costs    []string
}

func (f *fakeNotifier) NotifyStatus(ctx context.Context, text string) error {
	f.statuses = append(f.statuses, text)
	return nil
}

func (f *fakeNotifier) NotifyError(ctx context.Context, text string) error {
	f.errs = append(f.errs, text)
	return nil
}

func (f *fakeNotifier) NotifyCost(ctx context.Context, text string) error {
	f.costs = append(f.costs, text)
	return nil
}

type guardFixture struct {
	guard    *oracle.ResourceGuard
	lender   *fakeLender
	notifier *fakeNotifier
	now      *time.Time
}

func newGuardFixture(t *testing.T, dailyCap string, balances []int64) *guardFixture {
	symbol := mustSymbol(t, "4,TLOS")
	lender := &fakeLender{
		capacity: map[string]*ports.Capacity{
			"cpu": {Available: 10, Max: 1000},
		},
		balances: balances,
		symbol:   symbol,
	}
	notifier := &fakeNotifier{}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	fixture := &guardFixture{lender: lender, notifier: notifier, now: &now}
	guard, err := oracle.NewResourceGuard(oracle.ResourceGuardConfig{
		Lender:       lender,
		Notifier:     notifier,
		Resources:    []string{"cpu"},
		MinAvailable: 100,
		Payment:      mustAsset(t, "0.0010 TLOS"),
		DailyCap:     mustAsset(t, dailyCap),
		Now:          func() time.Time { return *fixture.now },
	})
	require.NoError(t, err)
	fixture.guard = guard
	return fixture
}

func coolingGuard(t *testing.T) *oracle.ResourceGuard {
	fixture := newGuardFixture(t, "0.0100 TLOS", []int64{1000})
	fixture.lender.capacity["cpu"] = &ports.Capacity{Available: 0, Max: 0}
	require.NoError(t, fixture.guard.Check(ctx))
	require.True(t, fixture.guard.CoolingDown())
	return fixture.guard
}

func TestGuardBorrowsBelowMinimum(t *testing.T) {
	fixture := newGuardFixture(t, "0.0100 TLOS", []int64{1000, 990})

	require.NoError(t, fixture.guard.Check(ctx))
	require.Equal(t, []string{"cpu"}, fixture.lender.borrows)
	require.Len(t, fixture.notifier.costs, 1)
	require.Contains(t, fixture.notifier.costs[0], "0.0010 TLOS")

	// enough capacity left, nothing to do
	fixture.lender.capacity["cpu"] = &ports.Capacity{Available: 500, Max: 1000}
	require.NoError(t, fixture.guard.Check(ctx))
	require.Len(t, fixture.lender.borrows, 1)
}

func TestGuardDailyCap(t *testing.T) {
	fixture := newGuardFixture(t, "0.0015 TLOS", []int64{100, 90, 90, 80})

	require.NoError(t, fixture.guard.Borrow(ctx, "cpu"))
	require.NoError(t, fixture.guard.Borrow(ctx, "cpu"))
	require.Len(t, fixture.lender.borrows, 2)

	// 20 units spent against a cap of 15: the next borrow only notifies
	require.NoError(t, fixture.guard.Borrow(ctx, "cpu"))
	require.Len(t, fixture.lender.borrows, 2)
	require.Len(t, fixture.notifier.errs, 1)
	require.Contains(t, fixture.notifier.errs[0], "daily resource budget")
}

func TestGuardUnknownDeltaChargesPayment(t *testing.T) {
	// balance goes up during the borrow, the delta cannot be trusted
	fixture := newGuardFixture(t, "0.0100 TLOS", []int64{100, 150})

	require.NoError(t, fixture.guard.Borrow(ctx, "cpu"))
	require.Len(t, fixture.notifier.costs, 1)
	require.Contains(t, fixture.notifier.costs[0], "0.0010 TLOS")
}

func TestGuardDailyRollover(t *testing.T) {
	fixture := newGuardFixture(t, "0.0010 TLOS", []int64{100, 90, 90, 80})

	require.NoError(t, fixture.guard.Borrow(ctx, "cpu"))
	require.NoError(t, fixture.guard.Borrow(ctx, "cpu"))
	require.Len(t, fixture.lender.borrows, 1)

	*fixture.now = fixture.now.Add(24 * time.Hour)
	require.NoError(t, fixture.guard.Borrow(ctx, "cpu"))
	require.Len(t, fixture.lender.borrows, 2)
}

func TestGuardBorrowTimeoutDisables(t *testing.T) {
	fixture := newGuardFixture(t, "0.0100 TLOS", []int64{100, 90})
	fixture.lender.borrowErr = errors.New("lender down")

	require.Error(t, fixture.guard.CheckBorrowTimeout(ctx))
	require.Len(t, fixture.notifier.errs, 1)

	// paused: capacity is below minimum but no borrow is attempted
	fixture.lender.borrowErr = nil
	require.NoError(t, fixture.guard.Check(ctx))
	require.Empty(t, fixture.lender.borrows)

	*fixture.now = fixture.now.Add(2 * time.Hour)
	require.NoError(t, fixture.guard.Check(ctx))
	require.Equal(t, []string{"cpu"}, fixture.lender.borrows)
}

func TestGuardCoolDownOnZeroCapacity(t *testing.T) {
	fixture := newGuardFixture(t, "0.0100 TLOS", []int64{1000})
	fixture.lender.capacity["cpu"] = &ports.Capacity{Available: 0, Max: 0}

	require.NoError(t, fixture.guard.Check(ctx))
	require.True(t, fixture.guard.CoolingDown())
	require.Empty(t, fixture.lender.borrows)
	require.Len(t, fixture.notifier.errs, 1)

	require.NoError(t, fixture.guard.Check(ctx))
}
