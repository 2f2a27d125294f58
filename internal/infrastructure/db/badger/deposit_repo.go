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

const depositStoreDir = "deposits"

type depositRepository struct {
	store *badgerhold.Store
}

func NewDepositRepository(config ...interface{}) (domain.DepositRepository, error) {
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
		dir = filepath.Join(baseDir, depositStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open deposit store: %s", err)
	}

	return &depositRepository{store}, nil
}

func (r *depositRepository) Get(ctx context.Context, account string) (*domain.Deposit, error) {
	var deposit domain.Deposit
	err := r.store.Get(account, &deposit)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return &deposit, nil
}

func (r *depositRepository) GetAll(ctx context.Context) ([]domain.Deposit, error) {
	var deposits []domain.Deposit
	if err := r.store.Find(&deposits, nil); err != nil {
		return nil, fmt.Errorf("failed to get deposits: %w", err)
	}
	sort.Slice(deposits, func(i, j int) bool {
		return deposits[i].Account < deposits[j].Account
	})
	return deposits, nil
}

func (r *depositRepository) Upsert(ctx context.Context, deposit domain.Deposit) error {
	if err := r.store.Upsert(deposit.Account, &deposit); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = r.store.Upsert(deposit.Account, &deposit)
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *depositRepository) Delete(ctx context.Context, account string) error {
	if err := r.store.Delete(account, &domain.Deposit{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete deposit: %w", err)
	}
	return nil
}

func (r *depositRepository) Close() {
	// nolint:all
	r.store.Close()
}
