package etherman

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/starkex-recovery/disbursal-service/log"
)

const erc20TransferABI = `[{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

const nativeTransferGas = uint64(21000)

// ErrTxReverted is returned when a mined transfer ended with a failed receipt.
var ErrTxReverted = errors.New("transfer transaction reverted")

type ethClienter interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client sends value on the destination chain from the treasury signer.
type Client struct {
	cfg         Config
	etherClient ethClienter
	auth        *bind.TransactOpts
	erc20ABI    abi.ABI
}

// NewClient connects to the destination chain node and prepares the treasury
// signer.
func NewClient(cfg Config) (*Client, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		log.Errorf("error connecting to %s: %+v", cfg.URL, err)
		return nil, err
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, err
	}
	chainID, err := ethClient.ChainID(context.Background())
	if err != nil {
		return nil, err
	}
	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, err
	}

	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, err
	}

	return &Client{cfg: cfg, etherClient: ethClient, auth: auth, erc20ABI: parsed}, nil
}

// NewClientWithBackend builds a Client on an existing backend and signer.
// Used by tests with a simulated chain.
func NewClientWithBackend(cfg Config, backend ethClienter, auth *bind.TransactOpts) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, etherClient: backend, auth: auth, erc20ABI: parsed}, nil
}

// TreasuryAddress returns the address funds are disbursed from.
func (c *Client) TreasuryAddress() common.Address {
	return c.auth.From
}

// Transfer sends amount of the given token (or the native coin when token is
// the NativeToken sentinel) to the destination address and waits for the
// transaction to be mined.
func (c *Client) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	var (
		tx  *types.Transaction
		err error
	)
	if token == NativeToken {
		tx, err = c.sendNative(ctx, to, amount)
	} else {
		tx, err = c.sendERC20(ctx, token, to, amount)
	}
	if err != nil {
		return common.Hash{}, err
	}

	log.Infof("transfer tx sent: %s, token: %s, to: %s, amount: %s", tx.Hash(), token, to, amount)
	err = c.waitMined(ctx, tx)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *Client) sendNative(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	nonce, err := c.etherClient.PendingNonceAt(ctx, c.auth.From)
	if err != nil {
		return nil, err
	}
	gasPrice, err := c.etherClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	tx := types.NewTransaction(nonce, to, amount, nativeTransferGas, gasPrice, nil)
	signedTx, err := c.auth.Signer(c.auth.From, tx)
	if err != nil {
		return nil, err
	}
	err = c.etherClient.SendTransaction(ctx, signedTx)
	if err != nil {
		return nil, err
	}
	return signedTx, nil
}

func (c *Client) sendERC20(ctx context.Context, token, to common.Address, amount *big.Int) (*types.Transaction, error) {
	data, err := c.erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(token, c.erc20ABI, c.etherClient, c.etherClient, c.etherClient)
	opts := *c.auth
	opts.Context = ctx
	return contract.RawTransact(&opts, data)
}

func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout.Duration)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, c.etherClient, tx)
	if err != nil {
		return fmt.Errorf("waiting tx %s to be mined: %w", tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ErrTxReverted
	}
	return nil
}
