package claims

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v4"
)

type storageInterface interface {
	IsClaimed(ctx context.Context, key [32]byte, dbTx pgx.Tx) (bool, error)
	AddClaim(ctx context.Context, key [32]byte, ownerKey, assetID *big.Int, dbTx pgx.Tx) error
}
