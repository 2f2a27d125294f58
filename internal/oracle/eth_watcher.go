package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/endpoints"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/ledgerclient"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 30 * time.Second
)

// DialEth connects an RPC endpoint with go-ethereum's client.
func DialEth(ctx context.Context, url string) (ports.ChainReader, error) {
	return ethclient.DialContext(ctx, url)
}

// EthWatcherConfig wires the watcher of one EVM network.
type EthWatcherConfig struct {
	Network        string // short name, used for cursor files
	ChainID        uint8  // ledger chain id of the watched network
	Oracle         string // ledger account the submissions run under
	BridgeContract common.Address
	TokenDecimals  uint8
	Symbol         domain.Symbol
	Pool           *endpoints.Pool
	Dial           DialFunc
	Ledger         ports.LedgerClient
	Cursors        ports.CursorStore
	Notifier       ports.Notifier
	Verifier       *Verifier
	StartBlock     uint64 // cursor fallback on first run
	BlocksToWait   uint64 // confirmation depth before a block is scanned
	LookBack       uint64 // blocks re-scanned before the cursor each cycle
	BatchSize      uint64 // max blocks fetched per cycle
	PollInterval   time.Duration
}

// EthWatcher reads bridge contract events from one EVM network and reports
// them to the ledger. Each cycle is a linear pass: pick the block range,
// fetch the logs, verify and submit each event, advance the cursor.
type EthWatcher struct {
	cfg     EthWatcherConfig
	readers map[string]ports.ChainReader
}

func NewEthWatcher(cfg EthWatcherConfig) (*EthWatcher, error) {
	if cfg.Pool == nil {
		return nil, errors.New("missing endpoint pool")
	}
	if cfg.Dial == nil {
		return nil, errors.New("missing dial func")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("missing ledger client")
	}
	if cfg.Cursors == nil {
		return nil, errors.New("missing cursor store")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &EthWatcher{
		cfg:     cfg,
		readers: make(map[string]ports.ChainReader),
	}, nil
}

// Start polls until the context is cancelled. An in-flight cycle completes
// before the watcher exits.
func (w *EthWatcher) Start(ctx context.Context) {
	logger := log.WithField("network", w.cfg.Network)
	logger.Info("chain watcher started")
	for {
		if err := w.Poll(ctx); err != nil {
			logger.WithError(err).WithField("endpoint", w.cfg.Pool.Rotate()).
				Warn("watch cycle failed, rotating endpoint")
		}
		select {
		case <-time.After(w.cfg.PollInterval):
		case <-ctx.Done():
			logger.Info("chain watcher stopped")
			return
		}
	}
}

// Poll runs a single watch cycle.
func (w *EthWatcher) Poll(ctx context.Context) error {
	endpoint := w.cfg.Pool.Endpoint()
	reader, err := w.reader(ctx, endpoint)
	if err != nil {
		return err
	}

	tip, err := reader.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chain tip: %s", err)
	}

	cursor := w.cfg.Cursors.Get(w.cfg.Network, w.cfg.Oracle, "watch", w.cfg.StartBlock)
	from := cursor
	if from > w.cfg.LookBack {
		from -= w.cfg.LookBack
	} else {
		from = 0
	}
	// scan only blocks buried deep enough to be reorg-safe
	if tip < from+w.cfg.BlocksToWait {
		return nil
	}
	to := tip - w.cfg.BlocksToWait
	if max := from + w.cfg.BatchSize - 1; to > max {
		to = max
	}

	logs, err := reader.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{w.cfg.BridgeContract},
		Topics:    [][]common.Hash{{TeleportTopic, ClaimedTopic}},
	})
	if err != nil {
		return fmt.Errorf("failed to fetch logs: %s", err)
	}

	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		if err := w.handleLog(ctx, endpoint, lg); err != nil {
			// keep the cursor so the failed event is retried next cycle
			return err
		}
	}

	if err := w.cfg.Cursors.Set(w.cfg.Network, w.cfg.Oracle, "watch", to+1); err != nil {
		log.WithError(err).WithField("network", w.cfg.Network).
			Warn("failed to persist watch cursor")
	}
	return nil
}

func (w *EthWatcher) handleLog(ctx context.Context, origin string, lg types.Log) error {
	if len(lg.Topics) == 0 {
		return nil
	}
	logger := log.WithField("network", w.cfg.Network).
		WithField("tx", lg.TxHash.Hex())

	switch lg.Topics[0] {
	case TeleportTopic:
		event, err := decodeTeleportEvent(lg)
		if err != nil {
			logger.WithError(err).Warn("skipping undecodable teleport log")
			return nil
		}
		if event.Tokens.Sign() == 0 {
			return nil
		}
		if event.ChainID != w.cfg.ChainID {
			return nil
		}
		if !w.verify(ctx, origin, lg) {
			return nil
		}
		quantity := scaleTokens(event.Tokens, w.cfg.TokenDecimals, w.cfg.Symbol)
		err = w.cfg.Ledger.Received(
			ctx, w.cfg.Oracle, event.To, lg.TxHash.Hex(),
			quantity, w.cfg.ChainID, event.Index, true,
		)
		return w.reportSubmission(ctx, logger, "received", err)
	case ClaimedTopic:
		event, err := decodeClaimedEvent(lg)
		if err != nil {
			logger.WithError(err).Warn("skipping undecodable claimed log")
			return nil
		}
		if event.Tokens.Sign() == 0 {
			return nil
		}
		if !w.verify(ctx, origin, lg) {
			return nil
		}
		quantity := scaleTokens(event.Tokens, w.cfg.TokenDecimals, w.cfg.Symbol)
		err = w.cfg.Ledger.Claimed(
			ctx, w.cfg.Oracle, event.ID, event.To.Hex(), quantity,
		)
		return w.reportSubmission(ctx, logger, "claimed", err)
	}
	return nil
}

// verify reports whether the log passed cross-endpoint verification. A
// failure drops the event from this cycle only, other oracles still see it.
func (w *EthWatcher) verify(ctx context.Context, origin string, lg types.Log) bool {
	if w.cfg.Verifier == nil {
		return true
	}
	if err := w.cfg.Verifier.Verify(ctx, origin, lg); err != nil {
		log.WithError(err).WithField("network", w.cfg.Network).
			WithField("tx", lg.TxHash.Hex()).
			Warn("dropping unverified event")
		w.notifyError(ctx, fmt.Sprintf(
			"%s: verification failed for tx %s", w.cfg.Network, lg.TxHash.Hex(),
		))
		return false
	}
	return true
}

func (w *EthWatcher) reportSubmission(
	ctx context.Context, logger *log.Entry, action string, err error,
) error {
	if err == nil {
		logger.WithField("action", action).Info("reported event to ledger")
		return nil
	}
	if ledgerclient.IsRejection(err) {
		// resubmitting the identical event can never succeed, move on
		logger.WithError(err).WithField("action", action).
			Warn("ledger rejected event")
		w.notifyError(ctx, fmt.Sprintf(
			"%s: ledger rejected %s: %s", w.cfg.Network, action, err,
		))
		return nil
	}
	return err
}

func (w *EthWatcher) notifyError(ctx context.Context, text string) {
	if w.cfg.Notifier == nil {
		return
	}
	if err := w.cfg.Notifier.NotifyError(ctx, text); err != nil {
		log.WithError(err).Warn("failed to send notification")
	}
}

func (w *EthWatcher) reader(ctx context.Context, url string) (ports.ChainReader, error) {
	if reader, ok := w.readers[url]; ok {
		return reader, nil
	}
	reader, err := w.cfg.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %s", url, err)
	}
	w.readers[url] = reader
	return reader, nil
}
