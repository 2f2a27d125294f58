package oracle_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/oracle"
)

type receivedCall struct {
	oracle, to, refHash string
	quantity            domain.Asset
	chainID             uint8
	index               uint64
	confirmed           bool
}

type claimedCall struct {
	oracle   string
	id       uint64
	dest     string
	quantity domain.Asset
}

type signCall struct {
	oracle    string
	id        uint64
	signature string
}

type recordingLedger struct {
	teleports  []domain.Teleport
	fetchErr   error
	fetchCalls int
	signErr    error
	received   []receivedCall
	claimed    []claimedCall
	signs      []signCall
}

func (l *recordingLedger) Received(
	ctx context.Context, oracle, toAccount, refHash string,
	quantity domain.Asset, chainID uint8, index uint64, confirmed bool,
) error {
	l.received = append(l.received, receivedCall{
		oracle, toAccount, refHash, quantity, chainID, index, confirmed,
	})
	return nil
}

func (l *recordingLedger) Sign(
	ctx context.Context, oracle string, teleportID uint64, signature string,
) error {
	l.signs = append(l.signs, signCall{oracle, teleportID, signature})
	return l.signErr
}

func (l *recordingLedger) Claimed(
	ctx context.Context, oracle string, teleportID uint64,
	destAddress string, quantity domain.Asset,
) error {
	l.claimed = append(l.claimed, claimedCall{oracle, teleportID, destAddress, quantity})
	return nil
}

func (l *recordingLedger) TeleportsFrom(
	ctx context.Context, fromID uint64, limit int,
) ([]domain.Teleport, error) {
	l.fetchCalls++
	if l.fetchErr != nil {
		return nil, l.fetchErr
	}
	out := make([]domain.Teleport, 0, len(l.teleports))
	for _, teleport := range l.teleports {
		if teleport.ID >= fromID && len(out) < limit {
			out = append(out, teleport)
		}
	}
	return out, nil
}

func mustSymbol(t *testing.T, s string) domain.Symbol {
	symbol, err := domain.ParseSymbol(s)
	require.NoError(t, err)
	return symbol
}

func mustAsset(t *testing.T, s string) domain.Asset {
	asset, err := domain.ParseAsset(s)
	require.NoError(t, err)
	return asset
}

func newABIType(t *testing.T, typeName string) abi.Type {
	typ, err := abi.NewType(typeName, "", nil)
	require.NoError(t, err)
	return typ
}

func packTeleportData(
	t *testing.T, id uint64, to string, tokens *big.Int, chainID uint8,
) []byte {
	args := abi.Arguments{
		{Type: newABIType(t, "uint64")},
		{Type: newABIType(t, "string")},
		{Type: newABIType(t, "uint256")},
		{Type: newABIType(t, "uint8")},
	}
	data, err := args.Pack(id, to, tokens, chainID)
	require.NoError(t, err)
	return data
}

func packClaimedData(
	t *testing.T, id uint64, to common.Address, tokens *big.Int,
) []byte {
	args := abi.Arguments{
		{Type: newABIType(t, "uint64")},
		{Type: newABIType(t, "address")},
		{Type: newABIType(t, "uint256")},
	}
	data, err := args.Pack(id, to, tokens)
	require.NoError(t, err)
	return data
}

// 0.1234 tokens at 18 decimals
func sampleTokens() *big.Int {
	return new(big.Int).Mul(
		big.NewInt(1234),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(14), nil),
	)
}

func teleportLog(t *testing.T, block uint64, chainID uint8, tokens *big.Int) types.Log {
	return types.Log{
		Address:     bridgeAddr,
		Topics:      []common.Hash{oracle.TeleportTopic, common.HexToHash("0x01")},
		Data:        packTeleportData(t, 7, "alice", tokens, chainID),
		BlockNumber: block,
		TxHash:      common.HexToHash("0xdead"),
	}
}

func newWatcherConfig(
	t *testing.T, readers map[string]*fakeReader, ledger *recordingLedger,
) oracle.EthWatcherConfig {
	return oracle.EthWatcherConfig{
		Network:        "telos",
		ChainID:        2,
		Oracle:         "oracle1",
		BridgeContract: bridgeAddr,
		TokenDecimals:  18,
		Symbol:         mustSymbol(t, "4,TLOS"),
		Pool:           newPool(t, "a"),
		Dial:           dialMap(readers),
		Ledger:         ledger,
		Cursors:        newCursorStore(t),
		StartBlock:     90,
		BlocksToWait:   10,
		BatchSize:      50,
	}
}

func newCursorStore(t *testing.T) *oracle.FileCursorStore {
	store, err := oracle.NewFileCursorStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestEthWatcherReportsTeleport(t *testing.T) {
	lg := teleportLog(t, 100, 2, sampleTokens())
	readers := map[string]*fakeReader{"a": {tip: 120, logs: []types.Log{lg}}}
	ledger := &recordingLedger{}

	cfg := newWatcherConfig(t, readers, ledger)
	watcher, err := oracle.NewEthWatcher(cfg)
	require.NoError(t, err)

	require.NoError(t, watcher.Poll(ctx))
	require.Len(t, ledger.received, 1)

	call := ledger.received[0]
	require.Equal(t, "oracle1", call.oracle)
	require.Equal(t, "alice", call.to)
	require.Equal(t, lg.TxHash.Hex(), call.refHash)
	require.Equal(t, "0.1234 TLOS", call.quantity.String())
	require.Equal(t, uint8(2), call.chainID)
	require.Equal(t, uint64(7), call.index)
	require.True(t, call.confirmed)

	// scanned up to tip minus the confirmation depth
	require.Equal(t, uint64(111), cfg.Cursors.Get("telos", "oracle1", "watch", 0))
}

func TestEthWatcherReportsClaimed(t *testing.T) {
	dest := common.HexToAddress("0x00000000000000000000000000000000000000c2")
	lg := types.Log{
		Address:     bridgeAddr,
		Topics:      []common.Hash{oracle.ClaimedTopic},
		Data:        packClaimedData(t, 4, dest, sampleTokens()),
		BlockNumber: 100,
		TxHash:      common.HexToHash("0xbeef"),
	}
	readers := map[string]*fakeReader{"a": {tip: 120, logs: []types.Log{lg}}}
	ledger := &recordingLedger{}

	watcher, err := oracle.NewEthWatcher(newWatcherConfig(t, readers, ledger))
	require.NoError(t, err)

	require.NoError(t, watcher.Poll(ctx))
	require.Len(t, ledger.claimed, 1)
	require.Equal(t, uint64(4), ledger.claimed[0].id)
	require.Equal(t, dest.Hex(), ledger.claimed[0].dest)
	require.Equal(t, "0.1234 TLOS", ledger.claimed[0].quantity.String())
}

func TestEthWatcherSkipsIrrelevantLogs(t *testing.T) {
	removed := teleportLog(t, 100, 2, sampleTokens())
	removed.Removed = true
	zero := teleportLog(t, 101, 2, big.NewInt(0))
	foreign := teleportLog(t, 102, 9, sampleTokens())

	readers := map[string]*fakeReader{
		"a": {tip: 120, logs: []types.Log{removed, zero, foreign}},
	}
	ledger := &recordingLedger{}

	cfg := newWatcherConfig(t, readers, ledger)
	watcher, err := oracle.NewEthWatcher(cfg)
	require.NoError(t, err)

	require.NoError(t, watcher.Poll(ctx))
	require.Empty(t, ledger.received)
	require.Equal(t, uint64(111), cfg.Cursors.Get("telos", "oracle1", "watch", 0))
}

func TestEthWatcherWaitsForConfirmations(t *testing.T) {
	readers := map[string]*fakeReader{"a": {tip: 95}}
	ledger := &recordingLedger{}

	cfg := newWatcherConfig(t, readers, ledger)
	watcher, err := oracle.NewEthWatcher(cfg)
	require.NoError(t, err)

	require.NoError(t, watcher.Poll(ctx))
	require.Equal(t, 0, readers["a"].filterCalls)
	require.Equal(t, uint64(90), cfg.Cursors.Get("telos", "oracle1", "watch", 90))
}

func TestEthWatcherDropsUnverifiedEvent(t *testing.T) {
	lg := teleportLog(t, 100, 2, sampleTokens())
	tampered := lg
	tampered.Data = packTeleportData(t, 7, "mallory", sampleTokens(), 2)

	readers := map[string]*fakeReader{
		"a": {tip: 120, logs: []types.Log{lg}},
		"b": {logs: []types.Log{tampered}},
	}
	ledger := &recordingLedger{}

	verifier, err := oracle.NewVerifier(newPool(t, "a", "b"), dialMap(readers), 1)
	require.NoError(t, err)

	cfg := newWatcherConfig(t, readers, ledger)
	cfg.Verifier = verifier
	watcher, err := oracle.NewEthWatcher(cfg)
	require.NoError(t, err)

	require.NoError(t, watcher.Poll(ctx))
	require.Empty(t, ledger.received)
	// the event is dropped, not retried: the cursor still advances
	require.Equal(t, uint64(111), cfg.Cursors.Get("telos", "oracle1", "watch", 0))
}

func TestEthWatcherVerifiedEventPasses(t *testing.T) {
	lg := teleportLog(t, 100, 2, sampleTokens())
	readers := map[string]*fakeReader{
		"a": {tip: 120, logs: []types.Log{lg}},
		"b": {logs: []types.Log{lg}},
	}
	ledger := &recordingLedger{}

	verifier, err := oracle.NewVerifier(newPool(t, "a", "b"), dialMap(readers), 1)
	require.NoError(t, err)

	cfg := newWatcherConfig(t, readers, ledger)
	cfg.Verifier = verifier
	watcher, err := oracle.NewEthWatcher(cfg)
	require.NoError(t, err)

	require.NoError(t, watcher.Poll(ctx))
	require.Len(t, ledger.received, 1)
}
