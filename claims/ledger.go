package claims

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v4"
	"golang.org/x/crypto/sha3"
)

// KeyLen is the length of a derived claim key.
const KeyLen = 32

// Key derives the claim key of the (ownerKey, assetID) pair as the keccak256
// of both fields at fixed width. Callers validate that both values are
// non-negative and fit one word before deriving the key.
func Key(ownerKey, assetID *big.Int) [KeyLen]byte {
	var owner, asset [KeyLen]byte
	ownerKey.FillBytes(owner[:])
	assetID.FillBytes(asset[:])
	hash := sha3.NewLegacyKeccak256()
	hash.Write(owner[:])
	hash.Write(asset[:])
	var key [KeyLen]byte
	copy(key[:], hash.Sum(nil))
	return key
}

// Ledger tracks which (owner, asset) pairs were already disbursed. Claims
// are never deleted; registration is a one-way transition performed by the
// disburser inside its storage transaction.
type Ledger struct {
	storage storageInterface
}

// NewLedger creates the claims ledger.
func NewLedger(storage interface{}) *Ledger {
	return &Ledger{storage: storage.(storageInterface)}
}

// IsClaimed reports whether the pair was already disbursed.
func (l *Ledger) IsClaimed(ctx context.Context, ownerKey, assetID *big.Int, dbTx pgx.Tx) (bool, error) {
	return l.storage.IsClaimed(ctx, Key(ownerKey, assetID), dbTx)
}

// Register records the claim. Fails with gerror.ErrAlreadyClaimed when the
// derived key is already present.
func (l *Ledger) Register(ctx context.Context, ownerKey, assetID *big.Int, dbTx pgx.Tx) error {
	return l.storage.AddClaim(ctx, Key(ownerKey, assetID), ownerKey, assetID, dbTx)
}
