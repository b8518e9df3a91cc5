package admin

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/db"
)

type storageInterface interface {
	GetRoot(ctx context.Context, name db.RootName, dbTx pgx.Tx) ([]byte, error)
	SetRoot(ctx context.Context, name db.RootName, value []byte, dbTx pgx.Tx) error
	IsFinalized(ctx context.Context, dbTx pgx.Tx) (bool, error)
	SetFinalized(ctx context.Context, dbTx pgx.Tx) error
}
