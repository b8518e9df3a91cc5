package accounttree

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/keccak256"
)

// KeyLen is the length of a node hash in the account tree.
const KeyLen = 32

// leafHash hashes one (ownerKey -> destination address) association.
func leafHash(ownerKey *big.Int, destination common.Address) [KeyLen]byte {
	var key [KeyLen]byte
	ownerKey.FillBytes(key[:])
	var res [KeyLen]byte
	copy(res[:], keccak256.Hash(key[:], destination.Bytes()))
	return res
}

// nodeHash combines two sibling hashes. The pair is sorted byte-wise before
// hashing; the off-ledger tree builder must apply the identical rule.
func nodeHash(a, b [KeyLen]byte) [KeyLen]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var res [KeyLen]byte
	copy(res[:], keccak256.Hash(a[:], b[:]))
	return res
}
