package etherman

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the sentinel destination denoting the chain's native coin
// instead of a token contract.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// TokenAssociation maps a source system asset id to the destination token
// and the fixed point scaling factor of its quantized balances.
type TokenAssociation struct {
	AssetID     *big.Int
	Quantum     *big.Int
	Destination common.Address
}

// Disbursement is the audit record of one completed payout.
type Disbursement struct {
	OwnerKey    *big.Int
	AssetID     *big.Int
	Destination common.Address
	Amount      *big.Int
	TxHash      common.Hash
	Time        time.Time
}
