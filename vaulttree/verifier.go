package vaulttree

import (
	"math/big"

	"github.com/starkex-recovery/disbursal-service/starkcrypto"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
)

const (
	// leafFieldCount is the number of leaf fields at the head of a proof.
	leafFieldCount = 3
	// MinTreeDepth is the shallowest vault tree a proof may describe.
	MinTreeDepth = 1
	// MaxTreeDepth is the deepest vault tree a proof may describe.
	MaxTreeDepth = 31
	// MinProofLen is the shortest well formed proof: leaf fields, one
	// (sibling, index bit) pair and the root.
	MinProofLen = leafFieldCount + 2*MinTreeDepth + 1
	// MaxProofLen is the longest well formed proof.
	MaxProofLen = leafFieldCount + 2*MaxTreeDepth + 1

	// assetIDBits bounds the source system asset identifier.
	assetIDBits = 250
)

// VaultRecord is one leaf of the frozen vault tree: the owner key of the
// source system, the asset held and its quantized balance.
type VaultRecord struct {
	OwnerKey        *big.Int
	AssetID         *big.Int
	QuantizedAmount *big.Int
}

// Verifier authenticates vault membership proofs against the root embedded
// at the proof tail. It is stateless beyond its hasher configuration and
// performs no writes.
//
// A proof is a flat sequence of field elements:
//
//	[ownerKey, assetID, quantizedAmount, (sibling, indexBit) x depth, root]
//
// The index bit gives the parity of the running node index at that level:
// 0 places the running hash on the left of the sibling, 1 on the right.
type Verifier struct {
	hasher starkcrypto.Hasher
}

// NewVerifier creates a Verifier on top of the given Pedersen hasher.
func NewVerifier(hasher starkcrypto.Hasher) *Verifier {
	return &Verifier{hasher: hasher}
}

func invalid(reason string) error {
	return &gerror.InvalidVaultProofError{Reason: reason}
}

// checkShape rejects out-of-bounds proofs before any hash work is done.
func checkShape(proof []*big.Int) error {
	if len(proof) < MinProofLen {
		return invalid("proof too short")
	}
	if len(proof) > MaxProofLen {
		return invalid("proof too long")
	}
	if len(proof)%2 != 0 {
		return invalid("proof length must be even")
	}
	for _, v := range proof {
		if v == nil || v.Sign() < 0 || v.Cmp(starkcrypto.FieldPrime) >= 0 {
			return invalid("proof element is not a field element")
		}
	}
	return nil
}

func decodeLeaf(proof []*big.Int) (*VaultRecord, error) {
	ownerKey, assetID, amount := proof[0], proof[1], proof[2]
	if ownerKey.Sign() == 0 || ownerKey.Cmp(starkcrypto.FieldPrime) >= 0 {
		return nil, invalid("bad key or asset")
	}
	if assetID.Sign() == 0 || assetID.BitLen() > assetIDBits {
		return nil, invalid("bad key or asset")
	}
	return &VaultRecord{
		OwnerKey:        new(big.Int).Set(ownerKey),
		AssetID:         new(big.Int).Set(assetID),
		QuantizedAmount: new(big.Int).Set(amount),
	}, nil
}

// Verify authenticates the proof. A nil return means the Merkle path folds
// from the leaf hash to the root at the proof tail.
func (v *Verifier) Verify(proof []*big.Int) error {
	_, _, err := v.ExtractLeafAndRoot(proof)
	return err
}

// ExtractLeaf decodes the vault record at the head of the proof. Shape and
// leaf encoding are validated; the Merkle path is not walked.
func (v *Verifier) ExtractLeaf(proof []*big.Int) (*VaultRecord, error) {
	if err := checkShape(proof); err != nil {
		return nil, err
	}
	return decodeLeaf(proof)
}

// ExtractRoot returns the root embedded at the tail of the proof. Shape is
// validated; the Merkle path is not walked.
func (v *Verifier) ExtractRoot(proof []*big.Int) (*big.Int, error) {
	if err := checkShape(proof); err != nil {
		return nil, err
	}
	return new(big.Int).Set(proof[len(proof)-1]), nil
}

// ExtractLeafAndRoot fully authenticates the proof and returns the decoded
// vault record together with the proven root.
func (v *Verifier) ExtractLeafAndRoot(proof []*big.Int) (*VaultRecord, *big.Int, error) {
	if err := checkShape(proof); err != nil {
		return nil, nil, err
	}
	record, err := decodeLeaf(proof)
	if err != nil {
		return nil, nil, err
	}

	cur, err := v.leafHash(record)
	if err != nil {
		return nil, nil, err
	}

	root := proof[len(proof)-1]
	path := proof[leafFieldCount : len(proof)-1]
	for i := 0; i < len(path); i += 2 {
		sibling, indexBit := path[i], path[i+1]
		if indexBit.BitLen() > 1 {
			return nil, nil, invalid("bad Merkle path")
		}
		if indexBit.Sign() == 0 {
			cur, err = v.hasher.Hash(cur, sibling)
		} else {
			cur, err = v.hasher.Hash(sibling, cur)
		}
		if err != nil {
			return nil, nil, invalid("bad Merkle path")
		}
	}
	if cur.Cmp(root) != 0 {
		return nil, nil, invalid("bad Merkle path")
	}
	return record, new(big.Int).Set(root), nil
}

// leafHash computes h(h(ownerKey, assetID), quantizedAmount).
func (v *Verifier) leafHash(record *VaultRecord) (*big.Int, error) {
	inner, err := v.hasher.Hash(record.OwnerKey, record.AssetID)
	if err != nil {
		return nil, invalid("bad key or asset")
	}
	leaf, err := v.hasher.Hash(inner, record.QuantizedAmount)
	if err != nil {
		return nil, invalid("bad key or asset")
	}
	return leaf, nil
}
