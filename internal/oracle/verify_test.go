package oracle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/endpoints"
	"github.com/teleport-bridge/teleportd/internal/oracle"
)

var (
	ctx        = context.Background()
	bridgeAddr = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

type fakeReader struct {
	tip         uint64
	logs        []types.Log
	err         error
	filterCalls int
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	return f.tip, nil
}

func (f *fakeReader) FilterLogs(
	ctx context.Context, q ethereum.FilterQuery,
) ([]types.Log, error) {
	f.filterCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.logs, nil
}

func dialMap(readers map[string]*fakeReader) oracle.DialFunc {
	return func(ctx context.Context, url string) (ports.ChainReader, error) {
		reader, ok := readers[url]
		if !ok {
			return nil, errors.New("unknown endpoint")
		}
		return reader, nil
	}
}

func newPool(t *testing.T, urls ...string) *endpoints.Pool {
	pool, err := endpoints.NewPool(urls)
	require.NoError(t, err)
	return pool
}

func sampleLog(data []byte) types.Log {
	return types.Log{
		Address:     bridgeAddr,
		Topics:      []common.Hash{oracle.TeleportTopic, common.HexToHash("0x01")},
		Data:        data,
		BlockNumber: 50,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}
}

func TestVerifierRequiresSpareEndpoint(t *testing.T) {
	pool := newPool(t, "a", "b")
	_, err := oracle.NewVerifier(pool, dialMap(nil), 2)
	require.Error(t, err)

	_, err = oracle.NewVerifier(pool, dialMap(nil), 1)
	require.NoError(t, err)
}

func TestVerifyQuorum(t *testing.T) {
	lg := sampleLog([]byte{1, 2, 3})
	readers := map[string]*fakeReader{
		"a": {},
		"b": {logs: []types.Log{lg}},
		"c": {logs: []types.Log{lg}},
	}

	verifier, err := oracle.NewVerifier(newPool(t, "a", "b", "c"), dialMap(readers), 2)
	require.NoError(t, err)
	require.NoError(t, verifier.Verify(ctx, "a", lg))

	// the origin endpoint never counts toward the quorum
	require.Equal(t, 0, readers["a"].filterCalls)
}

func TestVerifyDisagreement(t *testing.T) {
	lg := sampleLog([]byte{1, 2, 3})
	tampered := sampleLog([]byte{9, 9, 9})
	readers := map[string]*fakeReader{
		"a": {},
		"b": {logs: []types.Log{tampered}},
		"c": {logs: []types.Log{lg}},
	}

	verifier, err := oracle.NewVerifier(newPool(t, "a", "b", "c"), dialMap(readers), 2)
	require.NoError(t, err)
	require.ErrorIs(t, verifier.Verify(ctx, "a", lg), oracle.ErrVerificationFailed)
}

func TestVerifyToleratesEndpointFailures(t *testing.T) {
	lg := sampleLog([]byte{1, 2, 3})
	readers := map[string]*fakeReader{
		"a": {},
		"b": {err: errors.New("connection refused")},
		"c": {logs: []types.Log{lg}},
	}

	verifier, err := oracle.NewVerifier(newPool(t, "a", "b", "c"), dialMap(readers), 1)
	require.NoError(t, err)
	require.NoError(t, verifier.Verify(ctx, "a", lg))
}

func TestVerifyMissingLog(t *testing.T) {
	lg := sampleLog([]byte{1, 2, 3})
	readers := map[string]*fakeReader{
		"a": {},
		"b": {},
	}

	verifier, err := oracle.NewVerifier(newPool(t, "a", "b"), dialMap(readers), 1)
	require.NoError(t, err)
	require.ErrorIs(t, verifier.Verify(ctx, "a", lg), oracle.ErrVerificationFailed)
}
