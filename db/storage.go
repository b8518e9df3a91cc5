package db

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/db/pgstorage"
	"github.com/starkex-recovery/disbursal-service/etherman"
)

// RootName identifies one of the committed roots in the storage.
type RootName = pgstorage.RootName

const (
	// VaultRootName is the committed vault root entry.
	VaultRootName = pgstorage.VaultRootName
	// AccountRootName is the committed account root entry.
	AccountRootName = pgstorage.AccountRootName
)

// Storage is the union of the narrow per-component storage interfaces.
type Storage interface {
	GetRoot(ctx context.Context, name RootName, dbTx pgx.Tx) ([]byte, error)
	SetRoot(ctx context.Context, name RootName, value []byte, dbTx pgx.Tx) error
	IsFinalized(ctx context.Context, dbTx pgx.Tx) (bool, error)
	SetFinalized(ctx context.Context, dbTx pgx.Tx) error

	AddTokenAssociation(ctx context.Context, association *etherman.TokenAssociation, dbTx pgx.Tx) error
	GetTokenAssociation(ctx context.Context, assetID *big.Int, dbTx pgx.Tx) (*etherman.TokenAssociation, error)

	IsClaimed(ctx context.Context, key [32]byte, dbTx pgx.Tx) (bool, error)
	AddClaim(ctx context.Context, key [32]byte, ownerKey, assetID *big.Int, dbTx pgx.Tx) error

	AddDisbursement(ctx context.Context, disbursement *etherman.Disbursement, dbTx pgx.Tx) error
	GetDisbursements(ctx context.Context, limit, offset uint, dbTx pgx.Tx) ([]*etherman.Disbursement, error)

	BeginDBTransaction(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, dbTx pgx.Tx) error
	Rollback(ctx context.Context, dbTx pgx.Tx) error
}

// NewStorage creates the postgres backed storage.
func NewStorage(cfg Config) (Storage, error) {
	return pgstorage.NewPostgresStorage(pgstorage.Config{
		Name:     cfg.Name,
		User:     cfg.User,
		Password: cfg.Password,
		Host:     cfg.Host,
		Port:     cfg.Port,
		MaxConns: cfg.MaxConns,
	})
}

// RunMigrations applies pending migrations before the service starts.
func RunMigrations(cfg Config) error {
	return pgstorage.RunMigrations(pgstorage.Config{
		Name:     cfg.Name,
		User:     cfg.User,
		Password: cfg.Password,
		Host:     cfg.Host,
		Port:     cfg.Port,
		MaxConns: cfg.MaxConns,
	})
}
