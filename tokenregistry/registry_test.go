package tokenregistry

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storageMock struct {
	associations map[string]etherman.TokenAssociation
	finalized    bool
	pending      map[string]etherman.TokenAssociation
}

func newStorageMock() *storageMock {
	return &storageMock{associations: make(map[string]etherman.TokenAssociation)}
}

func (s *storageMock) AddTokenAssociation(ctx context.Context, association *etherman.TokenAssociation, dbTx pgx.Tx) error {
	key := association.AssetID.String()
	if _, ok := s.associations[key]; ok {
		return gerror.ErrAssetAlreadyRegistered
	}
	if _, ok := s.pending[key]; ok {
		return gerror.ErrAssetAlreadyRegistered
	}
	s.pending[key] = *association
	return nil
}

func (s *storageMock) GetTokenAssociation(ctx context.Context, assetID *big.Int, dbTx pgx.Tx) (*etherman.TokenAssociation, error) {
	association, ok := s.associations[assetID.String()]
	if !ok {
		return nil, gerror.ErrStorageNotFound
	}
	return &association, nil
}

func (s *storageMock) IsFinalized(ctx context.Context, dbTx pgx.Tx) (bool, error) {
	return s.finalized, nil
}

func (s *storageMock) BeginDBTransaction(ctx context.Context) (pgx.Tx, error) {
	s.pending = make(map[string]etherman.TokenAssociation)
	return nil, nil
}

func (s *storageMock) Commit(ctx context.Context, dbTx pgx.Tx) error {
	for key, association := range s.pending {
		s.associations[key] = association
	}
	s.pending = nil
	return nil
}

func (s *storageMock) Rollback(ctx context.Context, dbTx pgx.Tx) error {
	s.pending = nil
	return nil
}

func association(assetID int64, destination string, quantum int64) etherman.TokenAssociation {
	return etherman.TokenAssociation{
		AssetID:     big.NewInt(assetID),
		Quantum:     big.NewInt(quantum),
		Destination: common.HexToAddress(destination),
	}
}

func TestRegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newStorageMock())

	err := registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{
		association(1, "0x000000000000000000000000000000000000beef", 1000000000000000000),
		association(2, etherman.NativeToken.Hex(), 1),
	})
	require.NoError(t, err)

	token, err := registry.GetDestinationToken(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x000000000000000000000000000000000000beef"), token)

	quantum, err := registry.GetQuantum(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000000000000000000), quantum)

	mapped, err := registry.IsMapped(ctx, big.NewInt(2))
	require.NoError(t, err)
	assert.True(t, mapped)

	mapped, err = registry.IsMapped(ctx, big.NewInt(3))
	require.NoError(t, err)
	assert.False(t, mapped)

	_, err = registry.GetTokenAssociation(ctx, big.NewInt(3))
	assert.ErrorIs(t, err, gerror.ErrStorageNotFound)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newStorageMock())

	err := registry.RegisterTokenMappings(ctx, nil)
	assert.ErrorIs(t, err, ErrNoAssets)

	err = registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{
		association(0, "0x000000000000000000000000000000000000beef", 1),
	})
	assert.ErrorIs(t, err, ErrZeroAssetID)

	err = registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{
		association(1, "0x000000000000000000000000000000000000beef", 0),
	})
	assert.ErrorIs(t, err, ErrInvalidQuantum)

	tooLarge := association(1, "0x000000000000000000000000000000000000beef", 1)
	tooLarge.Quantum = new(big.Int).Lsh(big.NewInt(1), 128)
	err = registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{tooLarge})
	assert.ErrorIs(t, err, ErrInvalidQuantum)

	err = registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{
		association(1, "0x0000000000000000000000000000000000000000", 1),
	})
	assert.ErrorIs(t, err, ErrZeroDestination)
}

func TestRegisterAllOrNothing(t *testing.T) {
	ctx := context.Background()
	storage := newStorageMock()
	registry := NewRegistry(storage)

	require.NoError(t, registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{
		association(1, "0x000000000000000000000000000000000000beef", 1),
	}))

	// the second association collides, the first one must not be stored
	err := registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{
		association(2, "0x000000000000000000000000000000000000cafe", 1),
		association(1, "0x000000000000000000000000000000000000beef", 1),
	})
	assert.ErrorIs(t, err, gerror.ErrAssetAlreadyRegistered)

	mapped, err := registry.IsMapped(ctx, big.NewInt(2))
	require.NoError(t, err)
	assert.False(t, mapped)
}

func TestRegisterAfterFinalize(t *testing.T) {
	ctx := context.Background()
	storage := newStorageMock()
	storage.finalized = true
	registry := NewRegistry(storage)

	err := registry.RegisterTokenMappings(ctx, []etherman.TokenAssociation{
		association(1, "0x000000000000000000000000000000000000beef", 1),
	})
	assert.ErrorIs(t, err, gerror.ErrAdminFinalized)
}
