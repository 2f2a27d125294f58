package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const oracleStoreDir = "oracles"

type oracleRepository struct {
	store *badgerhold.Store
}

func NewOracleRepository(config ...interface{}) (domain.OracleRepository, error) {
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
		dir = filepath.Join(baseDir, oracleStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open oracle store: %s", err)
	}

	return &oracleRepository{store}, nil
}

func (r *oracleRepository) Get(ctx context.Context, account string) (*domain.Oracle, error) {
	var oracle domain.Oracle
	err := r.store.Get(account, &oracle)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oracle: %w", err)
	}
	return &oracle, nil
}

func (r *oracleRepository) GetAll(ctx context.Context) ([]domain.Oracle, error) {
	var oracles []domain.Oracle
	if err := r.store.Find(&oracles, nil); err != nil {
		return nil, fmt.Errorf("failed to get oracles: %w", err)
	}
	sort.Slice(oracles, func(i, j int) bool {
		return oracles[i].Account < oracles[j].Account
	})
	return oracles, nil
}

func (r *oracleRepository) Add(ctx context.Context, oracle domain.Oracle) error {
	if err := r.store.Insert(oracle.Account, &oracle); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("oracle %s already exists", oracle.Account)
		}
		return fmt.Errorf("failed to add oracle: %w", err)
	}
	return nil
}

func (r *oracleRepository) Delete(ctx context.Context, account string) error {
	if err := r.store.Delete(account, &domain.Oracle{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete oracle: %w", err)
	}
	return nil
}

func (r *oracleRepository) Close() {
	// nolint:all
	r.store.Close()
}
