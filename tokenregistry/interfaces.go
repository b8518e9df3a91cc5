package tokenregistry

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/etherman"
)

type storageInterface interface {
	AddTokenAssociation(ctx context.Context, association *etherman.TokenAssociation, dbTx pgx.Tx) error
	GetTokenAssociation(ctx context.Context, assetID *big.Int, dbTx pgx.Tx) (*etherman.TokenAssociation, error)
	IsFinalized(ctx context.Context, dbTx pgx.Tx) (bool, error)
	BeginDBTransaction(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, dbTx pgx.Tx) error
	Rollback(ctx context.Context, dbTx pgx.Tx) error
}
