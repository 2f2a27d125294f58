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

const teleportStoreDir = "teleports"

// Teleport is the storage DTO. The ID field doubles as the badgerhold key so
// ids are assigned from the store's sequence, starting at 0.
type Teleport struct {
	ID          uint64 `badgerhold:"key"`
	Time        int64
	Account     string `badgerhold:"index"`
	Quantity    domain.Asset
	ChainID     uint8
	DestAddress string
	Signatures  []domain.OracleSignature
	Claimed     bool
	UpdatedAt   time.Time
}

func (t Teleport) toDomain() domain.Teleport {
	return domain.Teleport{
		ID:          t.ID,
		Time:        t.Time,
		Account:     t.Account,
		Quantity:    t.Quantity,
		ChainID:     t.ChainID,
		DestAddress: t.DestAddress,
		Signatures:  t.Signatures,
		Claimed:     t.Claimed,
	}
}

type teleportRepository struct {
	store *badgerhold.Store
}

func NewTeleportRepository(config ...interface{}) (domain.TeleportRepository, error) {
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
		dir = filepath.Join(baseDir, teleportStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open teleport store: %s", err)
	}

	return &teleportRepository{store}, nil
}

func (r *teleportRepository) Get(ctx context.Context, id uint64) (*domain.Teleport, error) {
	var dto Teleport
	err := r.store.Get(id, &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teleport: %w", err)
	}
	teleport := dto.toDomain()
	return &teleport, nil
}

func (r *teleportRepository) GetFrom(
	ctx context.Context, fromID uint64, limit int,
) ([]domain.Teleport, error) {
	query := badgerhold.Where(badgerhold.Key).Ge(fromID).SortBy("ID")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var dtos []Teleport
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, fmt.Errorf("failed to get teleports: %w", err)
	}

	teleports := make([]domain.Teleport, 0, len(dtos))
	for _, dto := range dtos {
		teleports = append(teleports, dto.toDomain())
	}
	return teleports, nil
}

func (r *teleportRepository) GetByAccount(
	ctx context.Context, account string,
) ([]domain.Teleport, error) {
	var dtos []Teleport
	query := badgerhold.Where("Account").Eq(account).Index("Account").SortBy("ID")
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, fmt.Errorf("failed to get teleports: %w", err)
	}

	teleports := make([]domain.Teleport, 0, len(dtos))
	for _, dto := range dtos {
		teleports = append(teleports, dto.toDomain())
	}
	return teleports, nil
}

func (r *teleportRepository) Add(
	ctx context.Context, teleport domain.Teleport,
) (uint64, error) {
	dto := Teleport{
		Time:        teleport.Time,
		Account:     teleport.Account,
		Quantity:    teleport.Quantity,
		ChainID:     teleport.ChainID,
		DestAddress: teleport.DestAddress,
		Signatures:  teleport.Signatures,
		Claimed:     teleport.Claimed,
		UpdatedAt:   time.Now(),
	}
	if err := r.store.Insert(badgerhold.NextSequence(), &dto); err != nil {
		return 0, fmt.Errorf("failed to add teleport: %w", err)
	}
	return dto.ID, nil
}

func (r *teleportRepository) Update(ctx context.Context, teleport domain.Teleport) error {
	dto := Teleport{
		ID:          teleport.ID,
		Time:        teleport.Time,
		Account:     teleport.Account,
		Quantity:    teleport.Quantity,
		ChainID:     teleport.ChainID,
		DestAddress: teleport.DestAddress,
		Signatures:  teleport.Signatures,
		Claimed:     teleport.Claimed,
		UpdatedAt:   time.Now(),
	}
	if err := r.store.Update(teleport.ID, &dto); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = r.store.Update(teleport.ID, &dto)
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *teleportRepository) Delete(ctx context.Context, id uint64) error {
	if err := r.store.Delete(id, &Teleport{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete teleport: %w", err)
	}
	return nil
}

func (r *teleportRepository) DeleteClaimedUpTo(
	ctx context.Context, uptoID uint64,
) (int, error) {
	var dtos []Teleport
	query := badgerhold.Where(badgerhold.Key).Le(uptoID).And("Claimed").Eq(true)
	if err := r.store.Find(&dtos, query); err != nil {
		return 0, fmt.Errorf("failed to get teleports: %w", err)
	}

	deleted := 0
	for _, dto := range dtos {
		if err := r.store.Delete(dto.ID, &Teleport{}); err != nil {
			return deleted, fmt.Errorf("failed to delete teleport %d: %w", dto.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

func (r *teleportRepository) Close() {
	// nolint:all
	r.store.Close()
}
