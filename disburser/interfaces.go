package disburser

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/accounttree"
	"github.com/starkex-recovery/disbursal-service/etherman"
)

type storageInterface interface {
	AddDisbursement(ctx context.Context, disbursement *etherman.Disbursement, dbTx pgx.Tx) error
	BeginDBTransaction(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, dbTx pgx.Tx) error
	Rollback(ctx context.Context, dbTx pgx.Tx) error
}

type claimsLedger interface {
	IsClaimed(ctx context.Context, ownerKey, assetID *big.Int, dbTx pgx.Tx) (bool, error)
	Register(ctx context.Context, ownerKey, assetID *big.Int, dbTx pgx.Tx) error
}

type tokenRegistry interface {
	GetTokenAssociation(ctx context.Context, assetID *big.Int) (*etherman.TokenAssociation, error)
}

type rootProvider interface {
	GetVaultRoot(ctx context.Context) (*big.Int, error)
	GetAccountRoot(ctx context.Context) ([accounttree.KeyLen]byte, error)
}

type transferor interface {
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error)
}
