package accounttree

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/starkex-recovery/disbursal-service/starkcrypto"
	"github.com/starkex-recovery/disbursal-service/utils/gerror"
)

// MaxTreeDepth bounds the number of siblings in an account proof.
const MaxTreeDepth = 64

func invalid(reason string) error {
	return &gerror.InvalidAccountProofError{Reason: reason}
}

// Verify authenticates that ownerKey maps to destination under the given
// account root. The proof is the ordered list of sibling hashes from the
// leaf level up to the root.
func Verify(ownerKey *big.Int, destination common.Address, proof [][KeyLen]byte, root [KeyLen]byte) error {
	if ownerKey == nil || ownerKey.Sign() <= 0 || ownerKey.Cmp(starkcrypto.FieldPrime) >= 0 {
		return invalid("invalid owner key")
	}
	if destination == (common.Address{}) {
		return invalid("invalid destination address")
	}
	if len(proof) == 0 {
		return invalid("proof must not be empty")
	}
	if len(proof) > MaxTreeDepth {
		return invalid("proof too long")
	}

	cur := leafHash(ownerKey, destination)
	for _, sibling := range proof {
		cur = nodeHash(cur, sibling)
	}
	if cur != root {
		return invalid("path does not reach the account root")
	}
	return nil
}
