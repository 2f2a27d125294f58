package db

import (
	"fmt"

	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	badgerdb "github.com/teleport-bridge/teleportd/internal/infrastructure/db/badger"
)

var (
	chainStoreTypes = map[string]func(...interface{}) (domain.ChainRepository, error){
		"badger": badgerdb.NewChainRepository,
	}
	statsStoreTypes = map[string]func(...interface{}) (domain.StatsRepository, error){
		"badger": badgerdb.NewStatsRepository,
	}
	oracleStoreTypes = map[string]func(...interface{}) (domain.OracleRepository, error){
		"badger": badgerdb.NewOracleRepository,
	}
	depositStoreTypes = map[string]func(...interface{}) (domain.DepositRepository, error){
		"badger": badgerdb.NewDepositRepository,
	}
	teleportStoreTypes = map[string]func(...interface{}) (domain.TeleportRepository, error){
		"badger": badgerdb.NewTeleportRepository,
	}
	receiptStoreTypes = map[string]func(...interface{}) (domain.ReceiptRepository, error){
		"badger": badgerdb.NewReceiptRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	chainStore    domain.ChainRepository
	statsStore    domain.StatsRepository
	oracleStore   domain.OracleRepository
	depositStore  domain.DepositRepository
	teleportStore domain.TeleportRepository
	receiptStore  domain.ReceiptRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	chainStoreFactory, ok := chainStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("chain store type not supported")
	}
	statsStoreFactory, ok := statsStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("stats store type not supported")
	}
	oracleStoreFactory, ok := oracleStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("oracle store type not supported")
	}
	depositStoreFactory, ok := depositStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("deposit store type not supported")
	}
	teleportStoreFactory, ok := teleportStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("teleport store type not supported")
	}
	receiptStoreFactory, ok := receiptStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("receipt store type not supported")
	}

	chainStore, err := chainStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain store: %s", err)
	}
	statsStore, err := statsStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats store: %s", err)
	}
	oracleStore, err := oracleStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open oracle store: %s", err)
	}
	depositStore, err := depositStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open deposit store: %s", err)
	}
	teleportStore, err := teleportStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open teleport store: %s", err)
	}
	receiptStore, err := receiptStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt store: %s", err)
	}

	return &service{
		chainStore:    chainStore,
		statsStore:    statsStore,
		oracleStore:   oracleStore,
		depositStore:  depositStore,
		teleportStore: teleportStore,
		receiptStore:  receiptStore,
	}, nil
}

func (s *service) Chains() domain.ChainRepository {
	return s.chainStore
}

func (s *service) Stats() domain.StatsRepository {
	return s.statsStore
}

func (s *service) Oracles() domain.OracleRepository {
	return s.oracleStore
}

func (s *service) Deposits() domain.DepositRepository {
	return s.depositStore
}

func (s *service) Teleports() domain.TeleportRepository {
	return s.teleportStore
}

func (s *service) Receipts() domain.ReceiptRepository {
	return s.receiptStore
}

func (s *service) Close() {
	s.chainStore.Close()
	s.statsStore.Close()
	s.oracleStore.Close()
	s.depositStore.Close()
	s.teleportStore.Close()
	s.receiptStore.Close()
}
