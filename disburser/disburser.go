package disburser

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/accounttree"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/metrics"
	"github.com/starkex-recovery/disbursal-service/starkcrypto"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
	"github.com/starkex-recovery/disbursal-service/vaulttree"
)

// Disburser executes the proof-gated payout. It is the only writer of the
// claims ledger and the only component moving value.
type Disburser struct {
	// one disbursement at a time; the claim insert and the transfer must
	// commit or fail as a unit
	mu sync.Mutex

	storage    storageInterface
	ledger     claimsLedger
	registry   tokenRegistry
	roots      rootProvider
	vault      *vaulttree.Verifier
	transferor transferor
}

// NewDisburser wires the disbursement engine.
func NewDisburser(storage interface{}, ledger claimsLedger, registry tokenRegistry, roots rootProvider, vault *vaulttree.Verifier, transferor transferor) *Disburser {
	return &Disburser{
		storage:    storage.(storageInterface),
		ledger:     ledger,
		registry:   registry,
		roots:      roots,
		vault:      vault,
		transferor: transferor,
	}
}

// Disburse verifies both proofs and pays out the proven balance to the
// proven destination. Callable by anyone: the proofs, not the caller,
// authorize the payout. Each (owner, asset) pair pays out at most once.
func (d *Disburser) Disburse(ctx context.Context, ownerKey *big.Int, destination common.Address, assetID *big.Int, accountProof [][accounttree.KeyLen]byte, vaultProof []*big.Int) (*etherman.Disbursement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Both identifiers feed the claim key derivation before any proof walk,
	// so they must be in range before anything else touches them.
	if ownerKey == nil || ownerKey.Sign() <= 0 || ownerKey.Cmp(starkcrypto.FieldPrime) >= 0 {
		return nil, &gerror.InvalidAccountProofError{Reason: "invalid owner key"}
	}
	if assetID == nil || assetID.Sign() <= 0 || assetID.Cmp(starkcrypto.FieldPrime) >= 0 {
		return nil, &gerror.InvalidVaultProofError{Reason: "bad key or asset"}
	}

	claimed, err := d.ledger.IsClaimed(ctx, ownerKey, assetID, nil)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, gerror.ErrAlreadyClaimed
	}

	accountRoot, err := d.roots.GetAccountRoot(ctx)
	if err != nil {
		return nil, err
	}
	if err := accounttree.Verify(ownerKey, destination, accountProof, accountRoot); err != nil {
		var proofErr *gerror.InvalidAccountProofError
		if errors.As(err, &proofErr) {
			metrics.RecordProofRejection(metrics.ProofKindAccount, proofErr.Reason)
		}
		return nil, err
	}

	record, provenRoot, err := d.vault.ExtractLeafAndRoot(vaultProof)
	if err != nil {
		var proofErr *gerror.InvalidVaultProofError
		if errors.As(err, &proofErr) {
			metrics.RecordProofRejection(metrics.ProofKindVault, proofErr.Reason)
		}
		return nil, err
	}
	committedRoot, err := d.roots.GetVaultRoot(ctx)
	if err != nil {
		return nil, err
	}
	if provenRoot.Cmp(committedRoot) != 0 {
		metrics.RecordProofRejection(metrics.ProofKindVault, "uncommitted root")
		return nil, &gerror.InvalidVaultProofError{Reason: "path does not reach the committed root"}
	}
	if record.OwnerKey.Cmp(ownerKey) != 0 || record.AssetID.Cmp(assetID) != 0 {
		metrics.RecordProofRejection(metrics.ProofKindVault, "leaf mismatch")
		return nil, &gerror.InvalidVaultProofError{Reason: "proven leaf does not match the request"}
	}

	association, err := d.registry.GetTokenAssociation(ctx, assetID)
	if errors.Is(err, gerror.ErrStorageNotFound) {
		return nil, gerror.ErrAssetNotMapped
	} else if err != nil {
		return nil, err
	}

	amount := new(big.Int).Mul(record.QuantizedAmount, association.Quantum)

	// The claim is registered before the transfer and both commit in one
	// storage transaction, so a failed transfer leaves no residue and a
	// successful one can never pay twice.
	dbTx, err := d.storage.BeginDBTransaction(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.ledger.Register(ctx, ownerKey, assetID, dbTx); err != nil {
		return nil, d.rollback(ctx, dbTx, err)
	}

	txHash, err := d.transferor.Transfer(ctx, association.Destination, destination, amount)
	if err != nil {
		return nil, d.rollback(ctx, dbTx, err)
	}

	disbursement := &etherman.Disbursement{
		OwnerKey:    new(big.Int).Set(ownerKey),
		AssetID:     new(big.Int).Set(assetID),
		Destination: destination,
		Amount:      amount,
		TxHash:      txHash,
		Time:        time.Now(),
	}
	if err := d.storage.AddDisbursement(ctx, disbursement, dbTx); err != nil {
		return nil, d.rollback(ctx, dbTx, err)
	}
	if err := d.storage.Commit(ctx, dbTx); err != nil {
		return nil, err
	}

	log.Infof("claim disbursed, ownerKey: %s, assetID: %s, destination: %s, amount: %s, tx: %s",
		ownerKey, assetID, destination, amount, txHash)
	metrics.RecordDisbursement(assetID, amount)
	return disbursement, nil
}

func (d *Disburser) rollback(ctx context.Context, dbTx pgx.Tx, err error) error {
	if rollbackErr := d.storage.Rollback(ctx, dbTx); rollbackErr != nil {
		log.Errorf("error rolling back disbursement: %v", rollbackErr)
	}
	return err
}
