// Package app wires repositories and use cases for the ledger binaries.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	postgresRepo "github.com/iho/orgledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/orgledger/internal/adapter/repository/redis"
	"github.com/iho/orgledger/internal/infrastructure/config"
	"github.com/iho/orgledger/internal/usecase"
)

// Container holds the use cases shared by ledgerd, ledgerctl and ledger-worker.
type Container struct {
	Accounts     *usecase.AccountUseCase
	Journal      *usecase.JournalUseCase
	Mappings     *usecase.MappingUseCase
	Balances     *usecase.BalanceUseCase
	Depreciation *usecase.DepreciationUseCase
	Closing      *usecase.ClosingUseCase

	Periods *postgresRepo.PeriodRepository
	Outbox  *postgresRepo.OutboxRepository
}

// NewContainer builds every use case on top of pool. redisClient may be nil,
// in which case closings run without the cross-process lock.
func NewContainer(pool *pgxpool.Pool, redisClient *goredis.Client, cfg *config.Config, metrics usecase.Metrics) *Container {
	txManager := postgresRepo.NewTxManager(pool)
	retrier := postgresRepo.NewRetrier()
	idGen := postgresRepo.NewULIDGenerator()

	accountRepo := postgresRepo.NewAccountRepository(pool)
	journalRepo := postgresRepo.NewJournalRepository(pool)
	sequenceRepo := postgresRepo.NewSequenceRepository(pool)
	periodRepo := postgresRepo.NewPeriodRepository(pool)
	balanceRepo := postgresRepo.NewBalanceRepository(pool)
	assetRepo := postgresRepo.NewAssetRepository(pool)
	scheduleRepo := postgresRepo.NewScheduleRepository(pool)
	mappingRepo := postgresRepo.NewMappingRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)

	var locker usecase.Locker
	if redisClient != nil {
		locker = redisRepo.NewLocker(redisClient)
	}

	accounts := usecase.NewAccountUseCase(txManager, accountRepo, auditRepo, idGen)
	journal := usecase.NewJournalUseCase(txManager, accountRepo, journalRepo, sequenceRepo, periodRepo,
		auditRepo, outboxRepo, retrier, idGen).
		WithMetrics(metrics)
	mappings := usecase.NewMappingUseCase(txManager, mappingRepo, accountRepo, cfg.MappingDefaults())
	balances := usecase.NewBalanceUseCase(txManager, accountRepo, balanceRepo).
		WithMetrics(metrics)
	depreciation := usecase.NewDepreciationUseCase(txManager, assetRepo, scheduleRepo, periodRepo,
		journal, mappings, auditRepo, outboxRepo, retrier, idGen).
		WithConcurrency(cfg.DepreciationConcurrency).
		WithMetrics(metrics)
	closing := usecase.NewClosingUseCase(txManager, accountRepo, balanceRepo, periodRepo,
		journal, mappings, auditRepo, outboxRepo, locker, retrier, idGen).
		WithLockTTL(cfg.ClosingLockTTL).
		WithMetrics(metrics)

	return &Container{
		Accounts:     accounts,
		Journal:      journal,
		Mappings:     mappings,
		Balances:     balances,
		Depreciation: depreciation,
		Closing:      closing,
		Periods:      periodRepo,
		Outbox:       outboxRepo,
	}
}
