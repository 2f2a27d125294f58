package oracle

import (
	"bytes"
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/endpoints"
)

// ErrVerificationFailed means too few independent endpoints returned the
// same log bytes. The event is not reported to the ledger.
var ErrVerificationFailed = errors.New("log verification failed")

// DialFunc connects one RPC endpoint.
type DialFunc func(ctx context.Context, url string) (ports.ChainReader, error)

// Verifier re-fetches a log from independent endpoints and compares the raw
// data bytes. A log counts as verified once the required number of distinct
// endpoints, excluding the one it came from, agree byte for byte.
type Verifier struct {
	pool     *endpoints.Pool
	dial     DialFunc
	required int

	readers map[string]ports.ChainReader
}

func NewVerifier(pool *endpoints.Pool, dial DialFunc, required int) (*Verifier, error) {
	if pool == nil {
		return nil, errors.New("missing endpoint pool")
	}
	if dial == nil {
		return nil, errors.New("missing dial func")
	}
	if required >= pool.Len() {
		return nil, errors.New(
			"required verifications must leave at least one endpoint to watch with",
		)
	}
	return &Verifier{
		pool:     pool,
		dial:     dial,
		required: required,
		readers:  make(map[string]ports.ChainReader),
	}, nil
}

// Verify checks the given log against the other endpoints in the pool.
func (v *Verifier) Verify(ctx context.Context, origin string, lg types.Log) error {
	if v.required <= 0 {
		return nil
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(lg.BlockNumber),
		ToBlock:   new(big.Int).SetUint64(lg.BlockNumber),
		Addresses: []common.Address{lg.Address},
		Topics:    [][]common.Hash{{lg.Topics[0]}},
	}

	confirmations := 0
	for _, url := range v.pool.All() {
		if url == origin {
			continue
		}
		logger := log.WithField("endpoint", url).WithField("tx", lg.TxHash.Hex())

		reader, err := v.reader(ctx, url)
		if err != nil {
			logger.WithError(err).Warn("failed to dial verification endpoint")
			continue
		}
		logs, err := reader.FilterLogs(ctx, query)
		if err != nil {
			logger.WithError(err).Warn("failed to fetch logs for verification")
			continue
		}
		if !containsLog(logs, lg) {
			logger.Warn("endpoint disagrees on log data")
			continue
		}
		confirmations++
		if confirmations >= v.required {
			return nil
		}
	}
	return ErrVerificationFailed
}

func (v *Verifier) reader(ctx context.Context, url string) (ports.ChainReader, error) {
	if reader, ok := v.readers[url]; ok {
		return reader, nil
	}
	reader, err := v.dial(ctx, url)
	if err != nil {
		return nil, err
	}
	v.readers[url] = reader
	return reader, nil
}

func containsLog(logs []types.Log, want types.Log) bool {
	for _, got := range logs {
		if got.TxHash == want.TxHash && got.Index == want.Index {
			return !got.Removed && bytes.Equal(got.Data, want.Data)
		}
	}
	return false
}
