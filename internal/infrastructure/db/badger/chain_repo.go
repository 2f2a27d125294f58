package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const chainStoreDir = "chains"

type chainRepository struct {
	store *badgerhold.Store
}

func NewChainRepository(config ...interface{}) (domain.ChainRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, chainStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain store: %s", err)
	}

	return &chainRepository{store}, nil
}

func (r *chainRepository) Get(ctx context.Context, id uint8) (*domain.Chain, error) {
	var chain domain.Chain
	err := r.store.Get(id, &chain)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain: %w", err)
	}
	return &chain, nil
}

func (r *chainRepository) GetAll(ctx context.Context) ([]domain.Chain, error) {
	var chains []domain.Chain
	if err := r.store.Find(&chains, nil); err != nil {
		return nil, fmt.Errorf("failed to get chains: %w", err)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains, nil
}

func (r *chainRepository) Add(ctx context.Context, chain domain.Chain) error {
	if err := r.store.Insert(chain.ID, &chain); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("chain %d already exists", chain.ID)
		}
		return fmt.Errorf("failed to add chain: %w", err)
	}
	return nil
}

func (r *chainRepository) Update(ctx context.Context, chain domain.Chain) error {
	if err := r.store.Update(chain.ID, &chain); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = r.store.Update(chain.ID, &chain)
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *chainRepository) Delete(ctx context.Context, id uint8) error {
	if err := r.store.Delete(id, &domain.Chain{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete chain: %w", err)
	}
	return nil
}

func (r *chainRepository) Close() {
	// nolint:all
	r.store.Close()
}
