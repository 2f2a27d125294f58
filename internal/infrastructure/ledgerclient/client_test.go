package ledgerclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/endpoints"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/ledgerclient"
	errs "github.com/teleport-bridge/teleportd/pkg/errors"
)

var ctx = context.Background()

func TestClassifyConverged(t *testing.T) {
	tests := []struct {
		err       error
		converged bool
	}{
		{nil, false},
		{errors.New("Already marked as claimed"), true},
		{errors.New("Oracle has already approved this teleport"), true},
		{errors.New("already completed"), true},
		{errs.ALREADY_CLAIMED.New("Already marked as claimed"), true},
		{errs.RECEIPT_COMPLETED.New("already completed"), true},
		{errors.New("chain not found"), false},
		{errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.converged, ledgerclient.IsConverged(tt.err))
	}
}

func TestClassifyResourceExceeded(t *testing.T) {
	require.True(t, ledgerclient.IsResourceExceeded(
		errors.New("tx cpu usage exceeded for account"),
	))
	require.True(t, ledgerclient.IsResourceExceeded(
		errs.RESOURCE_EXCEEDED.New("daily resource cap reached"),
	))
	require.False(t, ledgerclient.IsResourceExceeded(errors.New("timeout")))
	require.False(t, ledgerclient.IsResourceExceeded(nil))
}

func TestClassifyRejection(t *testing.T) {
	require.True(t, ledgerclient.IsRejection(errs.CHAIN_NOT_FOUND.New("chain not found")))
	require.True(t, ledgerclient.IsRejection(errs.UNAUTHORIZED.New("missing authority")))
	require.False(t, ledgerclient.IsRejection(errs.INTERNAL_ERROR.New("boom")))
	require.False(t, ledgerclient.IsRejection(errors.New("connection refused")))
}

type fakeLedger struct {
	signErrs  []error
	signCalls int
}

func (f *fakeLedger) Received(
	ctx context.Context, oracle, toAccount, refHash string,
	quantity domain.Asset, chainID uint8, index uint64, confirmed bool,
) error {
	return nil
}

func (f *fakeLedger) Sign(
	ctx context.Context, oracle string, teleportID uint64, signature string,
) error {
	defer func() { f.signCalls++ }()
	if f.signCalls < len(f.signErrs) {
		return f.signErrs[f.signCalls]
	}
	return nil
}

func (f *fakeLedger) Claimed(
	ctx context.Context, oracle string, teleportID uint64,
	destAddress string, quantity domain.Asset,
) error {
	return nil
}

func (f *fakeLedger) TeleportsFrom(
	ctx context.Context, fromID uint64, limit int,
) ([]domain.Teleport, error) {
	return nil, nil
}

func TestClientRetriesTransientErrors(t *testing.T) {
	inner := &fakeLedger{signErrs: []error{
		errors.New("connection refused"),
		errors.New("connection refused"),
	}}
	pool, err := endpoints.NewPool([]string{"a", "b", "c"})
	require.NoError(t, err)

	client := ledgerclient.New(
		inner,
		ledgerclient.WithPool(pool),
		ledgerclient.WithRetryDelay(time.Millisecond),
	)

	require.NoError(t, client.Sign(ctx, "oracle1", 0, "sig"))
	require.Equal(t, 3, inner.signCalls)
	// two failures rotated the pool twice
	require.Equal(t, "c", pool.Endpoint())
}

func TestClientConvergedIsSuccess(t *testing.T) {
	inner := &fakeLedger{signErrs: []error{
		errs.ALREADY_CLAIMED.New("Already marked as claimed"),
	}}
	client := ledgerclient.New(inner, ledgerclient.WithRetryDelay(time.Millisecond))

	require.NoError(t, client.Sign(ctx, "oracle1", 0, "sig"))
	require.Equal(t, 1, inner.signCalls)
}

func TestClientRejectionIsPermanent(t *testing.T) {
	inner := &fakeLedger{signErrs: []error{
		errs.TELEPORT_NOT_FOUND.New("teleport not found"),
		nil,
	}}
	client := ledgerclient.New(inner, ledgerclient.WithRetryDelay(time.Millisecond))

	err := client.Sign(ctx, "oracle1", 99, "sig")
	require.ErrorContains(t, err, "teleport not found")
	require.Equal(t, 1, inner.signCalls)
}

func TestClientBoundedAttempts(t *testing.T) {
	transient := errors.New("connection refused")
	inner := &fakeLedger{signErrs: []error{
		transient, transient, transient, transient, transient, transient, transient,
	}}
	client := ledgerclient.New(inner, ledgerclient.WithRetryDelay(time.Millisecond))

	err := client.Sign(ctx, "oracle1", 0, "sig")
	require.ErrorContains(t, err, "connection refused")
	require.Equal(t, 5, inner.signCalls)
}
