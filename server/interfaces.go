package server

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/accounttree"
	"github.com/starkex-recovery/disbursal-service/etherman"
)

type disburserInterface interface {
	Disburse(ctx context.Context, ownerKey *big.Int, destination common.Address, assetID *big.Int, accountProof [][accounttree.KeyLen]byte, vaultProof []*big.Int) (*etherman.Disbursement, error)
}

type ledgerInterface interface {
	IsClaimed(ctx context.Context, ownerKey, assetID *big.Int, dbTx pgx.Tx) (bool, error)
}

type registryInterface interface {
	RegisterTokenMappings(ctx context.Context, associations []etherman.TokenAssociation) error
	GetTokenAssociation(ctx context.Context, assetID *big.Int) (*etherman.TokenAssociation, error)
	IsMapped(ctx context.Context, assetID *big.Int) (bool, error)
}

type adminInterface interface {
	SetVaultRoot(ctx context.Context, root *big.Int) error
	SetAccountRoot(ctx context.Context, root [accounttree.KeyLen]byte) error
	GetVaultRoot(ctx context.Context) (*big.Int, error)
	GetAccountRoot(ctx context.Context) ([accounttree.KeyLen]byte, error)
	Finalize(ctx context.Context) error
	IsFinalized(ctx context.Context) (bool, error)
	APISecret() string
}

type storageInterface interface {
	GetDisbursements(ctx context.Context, limit, offset uint, dbTx pgx.Tx) ([]*etherman.Disbursement, error)
}
