package admin

import (
	"context"
	"errors"
	"math/big"

	"github.com/starkex-recovery/disbursal-service/accounttree"
	"github.com/starkex-recovery/disbursal-service/db"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/starkcrypto"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
)

// ErrInvalidRoot rejects a vault root that is not a field element.
var ErrInvalidRoot = errors.New("root is not a field element")

// Config of the admin surface.
type Config struct {
	// AllowRootOverride permits re-committing a root. Pre-production only.
	AllowRootOverride bool `mapstructure:"AllowRootOverride"`

	// APISecret guards the privileged HTTP endpoints.
	APISecret string `mapstructure:"APISecret"`
}

// Manager owns the one-time admin surface: the committed roots and the
// finalize transition. Once finalized, every mutating call is rejected for
// good.
type Manager struct {
	cfg     Config
	storage storageInterface
}

// NewManager creates the admin manager.
func NewManager(cfg Config, storage interface{}) *Manager {
	return &Manager{cfg: cfg, storage: storage.(storageInterface)}
}

func (m *Manager) guard(ctx context.Context, name db.RootName) error {
	finalized, err := m.storage.IsFinalized(ctx, nil)
	if err != nil {
		return err
	}
	if finalized {
		return gerror.ErrAdminFinalized
	}
	_, err = m.storage.GetRoot(ctx, name, nil)
	if err == nil && !m.cfg.AllowRootOverride {
		return gerror.ErrRootAlreadySet
	}
	if err != nil && !errors.Is(err, gerror.ErrStorageNotFound) {
		return err
	}
	return nil
}

// SetVaultRoot commits the vault root. Settable once unless the override
// flag is enabled.
func (m *Manager) SetVaultRoot(ctx context.Context, root *big.Int) error {
	if root == nil || root.Sign() <= 0 || root.Cmp(starkcrypto.FieldPrime) >= 0 {
		return ErrInvalidRoot
	}
	if err := m.guard(ctx, db.VaultRootName); err != nil {
		return err
	}
	var value [32]byte
	root.FillBytes(value[:])
	if err := m.storage.SetRoot(ctx, db.VaultRootName, value[:], nil); err != nil {
		return err
	}
	log.Infof("vault root committed: %#x", value)
	return nil
}

// SetAccountRoot commits the account root. Settable once unless the override
// flag is enabled.
func (m *Manager) SetAccountRoot(ctx context.Context, root [accounttree.KeyLen]byte) error {
	if root == ([accounttree.KeyLen]byte{}) {
		return ErrInvalidRoot
	}
	if err := m.guard(ctx, db.AccountRootName); err != nil {
		return err
	}
	if err := m.storage.SetRoot(ctx, db.AccountRootName, root[:], nil); err != nil {
		return err
	}
	log.Infof("account root committed: %#x", root)
	return nil
}

// GetVaultRoot returns the committed vault root.
func (m *Manager) GetVaultRoot(ctx context.Context) (*big.Int, error) {
	value, err := m.storage.GetRoot(ctx, db.VaultRootName, nil)
	if errors.Is(err, gerror.ErrStorageNotFound) {
		return nil, gerror.ErrRootNotSet
	} else if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(value), nil
}

// GetAccountRoot returns the committed account root.
func (m *Manager) GetAccountRoot(ctx context.Context) ([accounttree.KeyLen]byte, error) {
	var root [accounttree.KeyLen]byte
	value, err := m.storage.GetRoot(ctx, db.AccountRootName, nil)
	if errors.Is(err, gerror.ErrStorageNotFound) {
		return root, gerror.ErrRootNotSet
	} else if err != nil {
		return root, err
	}
	copy(root[:], value)
	return root, nil
}

// Finalize permanently locks the admin surface. Root commits and token
// registrations fail from here on.
func (m *Manager) Finalize(ctx context.Context) error {
	finalized, err := m.storage.IsFinalized(ctx, nil)
	if err != nil {
		return err
	}
	if finalized {
		return gerror.ErrAdminFinalized
	}
	if err := m.storage.SetFinalized(ctx, nil); err != nil {
		return err
	}
	log.Info("admin surface finalized")
	return nil
}

// IsFinalized reports whether the admin surface was locked.
func (m *Manager) IsFinalized(ctx context.Context) (bool, error) {
	return m.storage.IsFinalized(ctx, nil)
}

// APISecret returns the shared secret of the privileged endpoints.
func (m *Manager) APISecret() string {
	return m.cfg.APISecret
}
