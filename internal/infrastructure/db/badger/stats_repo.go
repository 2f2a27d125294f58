package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	statsStoreDir = "stats"
	statsKey      = "stats"
)

type statsRepository struct {
	store *badgerhold.Store
}

func NewStatsRepository(config ...interface{}) (domain.StatsRepository, error) {
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
		dir = filepath.Join(baseDir, statsStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats store: %s", err)
	}

	return &statsRepository{store}, nil
}

func (r *statsRepository) Get(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	err := r.store.Get(statsKey, &stats)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

func (r *statsRepository) Upsert(ctx context.Context, stats domain.Stats) error {
	if err := r.store.Upsert(statsKey, &stats); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = r.store.Upsert(statsKey, &stats)
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *statsRepository) Clear(ctx context.Context) error {
	var stats domain.Stats
	if err := r.store.Delete(statsKey, &stats); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (r *statsRepository) Close() {
	// nolint:all
	r.store.Close()
}
