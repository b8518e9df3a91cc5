package gerror

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageNotFound is used when the object is not found in the storage
	ErrStorageNotFound = errors.New("not found in the storage")
	// ErrNilDBTransaction indicates the db transaction has not been properly initialized
	ErrNilDBTransaction = errors.New("database transaction not properly initialized")
	// ErrAlreadyClaimed is used when the (owner, asset) pair was already disbursed
	ErrAlreadyClaimed = errors.New("fund already disbursed for vault")
	// ErrAssetNotMapped is used when no token mapping is registered for the asset id
	ErrAssetNotMapped = errors.New("asset not mapped")
	// ErrAssetAlreadyRegistered is used when a token mapping for the asset id already exists
	ErrAssetAlreadyRegistered = errors.New("asset already registered")
	// ErrRootAlreadySet is used when a committed root is set a second time without the override flag
	ErrRootAlreadySet = errors.New("root already set")
	// ErrRootNotSet is used when a disbursement arrives before the roots are committed
	ErrRootNotSet = errors.New("root not set")
	// ErrAdminFinalized is used when an admin operation arrives after finalization
	ErrAdminFinalized = errors.New("admin surface is finalized")
)

// InvalidVaultProofError rejects a malformed or unauthentic vault proof.
// Reason carries the first failed check.
type InvalidVaultProofError struct {
	Reason string
}

func (e *InvalidVaultProofError) Error() string {
	return fmt.Sprintf("invalid vault proof: %s", e.Reason)
}

// InvalidAccountProofError rejects a malformed or unauthentic account proof.
type InvalidAccountProofError struct {
	Reason string
}

func (e *InvalidAccountProofError) Error() string {
	return fmt.Sprintf("invalid account proof: %s", e.Reason)
}
