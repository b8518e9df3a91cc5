package etherman

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	configtypes "github.com/starkex-recovery/disbursal-service/config/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// miningBackend commits a block after every accepted transaction so that
// waitMined returns without an external miner.
type miningBackend struct {
	*backends.SimulatedBackend
}

func (b *miningBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	err := b.SimulatedBackend.SendTransaction(ctx, tx)
	if err == nil {
		b.Commit()
	}
	return err
}

func newTestClient(t *testing.T) (*Client, *miningBackend) {
	t.Helper()
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, big.NewInt(1337))
	require.NoError(t, err)

	balance, _ := new(big.Int).SetString("10000000000000000000", 10)
	backend := &miningBackend{backends.NewSimulatedBackend(
		core.GenesisAlloc{auth.From: {Balance: balance}}, 10000000,
	)}

	cfg := Config{TxTimeout: configtypes.Duration{Duration: 10 * time.Second}}
	client, err := NewClientWithBackend(cfg, backend, auth)
	require.NoError(t, err)
	return client, backend
}

func TestTreasuryAddress(t *testing.T) {
	client, backend := newTestClient(t)
	defer backend.Close()
	assert.NotEqual(t, common.Address{}, client.TreasuryAddress())
}

func TestTransferNative(t *testing.T) {
	ctx := context.Background()
	client, backend := newTestClient(t)
	defer backend.Close()

	destination := common.HexToAddress("0xabcd0000000000000000000000000000000000cd")
	amount := big.NewInt(5000)

	txHash, err := client.Transfer(ctx, NativeToken, destination, amount)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, txHash)

	balance, err := backend.BalanceAt(ctx, destination, nil)
	require.NoError(t, err)
	assert.Equal(t, amount, balance)

	receipt, err := backend.TransactionReceipt(ctx, txHash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
}
