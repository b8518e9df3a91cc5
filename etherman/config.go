package etherman

import (
	"github.com/starkex-recovery/disbursal-service/config/types"
)

// Config represents the configuration of the etherman
type Config struct {
	// URL of the destination chain JSON-RPC node
	URL string `mapstructure:"URL"`

	// PrivateKey is the hex encoded key of the treasury signer
	PrivateKey string `mapstructure:"PrivateKey"`

	// TxTimeout bounds the wait for a transfer to be mined
	TxTimeout types.Duration `mapstructure:"TxTimeout"`
}
