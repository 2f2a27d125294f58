package oracle

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/ledgerclient"
)

const (
	defaultSignBatchSize    = 50
	defaultSignPollInterval = 5 * time.Second
)

// LedgerWatcherConfig wires the signing loop of one oracle.
type LedgerWatcherConfig struct {
	Network      string // ledger network name, used for cursor files
	Oracle       string
	Key          *ecdsa.PrivateKey
	Ledger       ports.LedgerClient
	Cursors      ports.CursorStore
	Guard        *ResourceGuard // optional, skips cycles while cooling down
	BatchSize    int
	PollInterval time.Duration
}

// LedgerWatcher walks the ledger's teleport table from a local cursor and
// attests each unsigned entry with the oracle key. The signature is what the
// destination bridge contract later checks against the oracle set.
type LedgerWatcher struct {
	cfg LedgerWatcherConfig
}

func NewLedgerWatcher(cfg LedgerWatcherConfig) (*LedgerWatcher, error) {
	if cfg.Key == nil {
		return nil, errors.New("missing oracle key")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("missing ledger client")
	}
	if cfg.Cursors == nil {
		return nil, errors.New("missing cursor store")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultSignBatchSize
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultSignPollInterval
	}
	return &LedgerWatcher{cfg: cfg}, nil
}

// Start polls until the context is cancelled.
func (w *LedgerWatcher) Start(ctx context.Context) {
	logger := log.WithField("oracle", w.cfg.Oracle)
	logger.Info("ledger watcher started")
	for {
		if err := w.Poll(ctx); err != nil {
			logger.WithError(err).Warn("sign cycle failed")
		}
		select {
		case <-time.After(w.cfg.PollInterval):
		case <-ctx.Done():
			logger.Info("ledger watcher stopped")
			return
		}
	}
}

// Poll runs a single sign cycle.
func (w *LedgerWatcher) Poll(ctx context.Context) error {
	if w.cfg.Guard != nil && w.cfg.Guard.CoolingDown() {
		return nil
	}

	from := w.cfg.Cursors.Get(w.cfg.Network, w.cfg.Oracle, "sign", 0)
	teleports, err := w.cfg.Ledger.TeleportsFrom(ctx, from, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch teleports: %s", err)
	}

	next := from
	for _, teleport := range teleports {
		if !teleport.Claimed && !teleport.SignedBy(w.cfg.Oracle) {
			if err := w.sign(ctx, teleport); err != nil {
				// keep the cursor so the entry is retried next cycle
				w.advance(from, next)
				return err
			}
		}
		next = teleport.ID + 1
	}
	w.advance(from, next)
	return nil
}

func (w *LedgerWatcher) sign(ctx context.Context, teleport domain.Teleport) error {
	signature, err := signTeleport(w.cfg.Key, teleport)
	if err != nil {
		return err
	}
	err = w.cfg.Ledger.Sign(ctx, w.cfg.Oracle, teleport.ID, signature)
	if err != nil && ledgerclient.IsRejection(err) {
		// signed or claimed by the time the submission landed
		log.WithError(err).WithField("teleport", teleport.ID).
			Debug("sign submission superseded")
		return nil
	}
	return err
}

func (w *LedgerWatcher) advance(from, next uint64) {
	if next == from {
		return
	}
	if err := w.cfg.Cursors.Set(w.cfg.Network, w.cfg.Oracle, "sign", next); err != nil {
		log.WithError(err).WithField("oracle", w.cfg.Oracle).
			Warn("failed to persist sign cursor")
	}
}

// TeleportDigest hashes the canonical serialization of a teleport entry.
// Every oracle and the destination bridge contract must agree on this
// layout: id u64 LE, time u32 LE, account zero-padded to 32 bytes, amount
// u64 LE, chain id u8, destination address left-padded to 32 bytes.
func TeleportDigest(teleport domain.Teleport) ([]byte, error) {
	if !teleport.Quantity.Amount.IsUint64() {
		return nil, fmt.Errorf(
			"teleport %d quantity does not fit the wire format", teleport.ID,
		)
	}
	if len(teleport.Account) > 32 {
		return nil, fmt.Errorf(
			"teleport %d account does not fit the wire format", teleport.ID,
		)
	}

	buf := make([]byte, 0, 85)
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], teleport.ID)
	buf = append(buf, scratch[:]...)
	binary.LittleEndian.PutUint32(scratch[:4], uint32(teleport.Time))
	buf = append(buf, scratch[:4]...)

	var account [32]byte
	copy(account[:], teleport.Account)
	buf = append(buf, account[:]...)

	binary.LittleEndian.PutUint64(scratch[:], teleport.Quantity.Amount.Uint64())
	buf = append(buf, scratch[:]...)
	buf = append(buf, teleport.ChainID)

	var dest [32]byte
	copy(dest[12:], common.HexToAddress(teleport.DestAddress).Bytes())
	buf = append(buf, dest[:]...)

	return crypto.Keccak256(buf), nil
}

func signTeleport(key *ecdsa.PrivateKey, teleport domain.Teleport) (string, error) {
	digest, err := TeleportDigest(teleport)
	if err != nil {
		return "", err
	}
	signature, err := crypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign teleport %d: %s", teleport.ID, err)
	}
	return hexutil.Encode(signature), nil
}
