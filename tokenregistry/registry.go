package tokenregistry

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
)

var (
	// ErrNoAssets is used when a registration call carries no associations
	ErrNoAssets = errors.New("no assets to register")
	// ErrZeroAssetID is used when an association carries asset id 0
	ErrZeroAssetID = errors.New("asset id cannot be zero")
	// ErrInvalidQuantum is used when the quantum is outside [1, 2^128)
	ErrInvalidQuantum = errors.New("invalid quantum")
	// ErrZeroDestination is used when the destination token address is zero
	ErrZeroDestination = errors.New("destination cannot be zero")
)

// quantumUpperBound is 2^128; quanta must be strictly below it.
var quantumUpperBound = new(big.Int).Lsh(big.NewInt(1), 128)

// Registry maintains the permanent asset id -> (destination token, quantum)
// mapping. Pure lookup besides the one-time registration path.
type Registry struct {
	storage storageInterface
}

// NewRegistry creates the token registry.
func NewRegistry(storage interface{}) *Registry {
	return &Registry{storage: storage.(storageInterface)}
}

func validateAssociation(association *etherman.TokenAssociation) error {
	if association.AssetID == nil || association.AssetID.Sign() == 0 {
		return ErrZeroAssetID
	}
	if association.Quantum == nil || association.Quantum.Sign() <= 0 || association.Quantum.Cmp(quantumUpperBound) >= 0 {
		return ErrInvalidQuantum
	}
	if association.Destination == (common.Address{}) {
		return ErrZeroDestination
	}
	return nil
}

// RegisterTokenMappings registers the given associations. All of them are
// stored or none; a registered mapping is permanent.
func (r *Registry) RegisterTokenMappings(ctx context.Context, associations []etherman.TokenAssociation) error {
	if len(associations) == 0 {
		return ErrNoAssets
	}
	finalized, err := r.storage.IsFinalized(ctx, nil)
	if err != nil {
		return err
	}
	if finalized {
		return gerror.ErrAdminFinalized
	}
	for i := range associations {
		if err := validateAssociation(&associations[i]); err != nil {
			return err
		}
	}

	dbTx, err := r.storage.BeginDBTransaction(ctx)
	if err != nil {
		return err
	}
	for i := range associations {
		if err := r.storage.AddTokenAssociation(ctx, &associations[i], dbTx); err != nil {
			if rollbackErr := r.storage.Rollback(ctx, dbTx); rollbackErr != nil {
				log.Errorf("error rolling back token registration: %v", rollbackErr)
			}
			return err
		}
	}
	if err := r.storage.Commit(ctx, dbTx); err != nil {
		return err
	}

	for i := range associations {
		log.Infof("asset mapped, assetID: %s, destination: %s, quantum: %s",
			associations[i].AssetID, associations[i].Destination, associations[i].Quantum)
	}
	return nil
}

// GetTokenAssociation returns the full mapping of the asset id.
func (r *Registry) GetTokenAssociation(ctx context.Context, assetID *big.Int) (*etherman.TokenAssociation, error) {
	return r.storage.GetTokenAssociation(ctx, assetID, nil)
}

// GetDestinationToken returns the destination token of the asset id.
func (r *Registry) GetDestinationToken(ctx context.Context, assetID *big.Int) (common.Address, error) {
	association, err := r.storage.GetTokenAssociation(ctx, assetID, nil)
	if err != nil {
		return common.Address{}, err
	}
	return association.Destination, nil
}

// GetQuantum returns the scaling factor of the asset id.
func (r *Registry) GetQuantum(ctx context.Context, assetID *big.Int) (*big.Int, error) {
	association, err := r.storage.GetTokenAssociation(ctx, assetID, nil)
	if err != nil {
		return nil, err
	}
	return association.Quantum, nil
}

// IsMapped reports whether the asset id has a registered mapping.
func (r *Registry) IsMapped(ctx context.Context, assetID *big.Int) (bool, error) {
	_, err := r.storage.GetTokenAssociation(ctx, assetID, nil)
	if errors.Is(err, gerror.ErrStorageNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}
