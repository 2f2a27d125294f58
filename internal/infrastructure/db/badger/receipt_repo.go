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

const receiptStoreDir = "receipts"

// Receipt is the storage DTO, keyed by the store's sequence.
type Receipt struct {
	ID            uint64 `badgerhold:"key"`
	ChainID       uint8
	Index         uint64
	RefHash       string `badgerhold:"index"`
	ToAccount     string
	Quantity      domain.Asset
	Approvers     []string
	Confirmations uint8
	Completed     bool
	Date          int64
	UpdatedAt     time.Time
}

func (r Receipt) toDomain() domain.Receipt {
	return domain.Receipt{
		ID:            r.ID,
		ChainID:       r.ChainID,
		Index:         r.Index,
		RefHash:       r.RefHash,
		ToAccount:     r.ToAccount,
		Quantity:      r.Quantity,
		Approvers:     r.Approvers,
		Confirmations: r.Confirmations,
		Completed:     r.Completed,
		Date:          r.Date,
	}
}

func toReceiptDTO(receipt domain.Receipt) Receipt {
	return Receipt{
		ID:            receipt.ID,
		ChainID:       receipt.ChainID,
		Index:         receipt.Index,
		RefHash:       receipt.RefHash,
		ToAccount:     receipt.ToAccount,
		Quantity:      receipt.Quantity,
		Approvers:     receipt.Approvers,
		Confirmations: receipt.Confirmations,
		Completed:     receipt.Completed,
		Date:          receipt.Date,
		UpdatedAt:     time.Now(),
	}
}

type receiptRepository struct {
	store *badgerhold.Store
}

func NewReceiptRepository(config ...interface{}) (domain.ReceiptRepository, error) {
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
		dir = filepath.Join(baseDir, receiptStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt store: %s", err)
	}

	return &receiptRepository{store}, nil
}

func (r *receiptRepository) Get(ctx context.Context, id uint64) (*domain.Receipt, error) {
	var dto Receipt
	err := r.store.Get(id, &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	receipt := dto.toDomain()
	return &receipt, nil
}

func (r *receiptRepository) GetByChainIndex(
	ctx context.Context, chainID uint8, index uint64,
) (*domain.Receipt, error) {
	var dto Receipt
	query := badgerhold.Where("ChainID").Eq(chainID).And("Index").Eq(index)
	err := r.store.FindOne(&dto, query)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	receipt := dto.toDomain()
	return &receipt, nil
}

func (r *receiptRepository) GetByRefHash(
	ctx context.Context, refHash string,
) (*domain.Receipt, error) {
	var dto Receipt
	query := badgerhold.Where("RefHash").Eq(refHash).Index("RefHash")
	err := r.store.FindOne(&dto, query)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	receipt := dto.toDomain()
	return &receipt, nil
}

func (r *receiptRepository) GetAll(ctx context.Context) ([]domain.Receipt, error) {
	var dtos []Receipt
	if err := r.store.Find(&dtos, badgerhold.Where(badgerhold.Key).Ge(uint64(0)).SortBy("ID")); err != nil {
		return nil, fmt.Errorf("failed to get receipts: %w", err)
	}

	receipts := make([]domain.Receipt, 0, len(dtos))
	for _, dto := range dtos {
		receipts = append(receipts, dto.toDomain())
	}
	return receipts, nil
}

func (r *receiptRepository) Add(ctx context.Context, receipt domain.Receipt) (uint64, error) {
	dto := toReceiptDTO(receipt)
	if err := r.store.Insert(badgerhold.NextSequence(), &dto); err != nil {
		return 0, fmt.Errorf("failed to add receipt: %w", err)
	}
	return dto.ID, nil
}

func (r *receiptRepository) Update(ctx context.Context, receipt domain.Receipt) error {
	dto := toReceiptDTO(receipt)
	if err := r.store.Update(receipt.ID, &dto); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = r.store.Update(receipt.ID, &dto)
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *receiptRepository) DeleteCompletedUpTo(
	ctx context.Context, uptoID uint64,
) (int, error) {
	var dtos []Receipt
	query := badgerhold.Where(badgerhold.Key).Le(uptoID).And("Completed").Eq(true)
	if err := r.store.Find(&dtos, query); err != nil {
		return 0, fmt.Errorf("failed to get receipts: %w", err)
	}

	deleted := 0
	for _, dto := range dtos {
		if err := r.store.Delete(dto.ID, &Receipt{}); err != nil {
			return deleted, fmt.Errorf("failed to delete receipt %d: %w", dto.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

func (r *receiptRepository) Close() {
	// nolint:all
	r.store.Close()
}
