package ports

import "github.com/teleport-bridge/teleportd/internal/core/domain"

type RepoManager interface {
	Chains() domain.ChainRepository
	Stats() domain.StatsRepository
	Oracles() domain.OracleRepository
	Deposits() domain.DepositRepository
	Teleports() domain.TeleportRepository
	Receipts() domain.ReceiptRepository
	Close()
}
