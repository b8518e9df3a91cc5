package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/starkex-recovery/disbursal-service/accounttree"
	"github.com/starkex-recovery/disbursal-service/admin"
	"github.com/starkex-recovery/disbursal-service/config"
	"github.com/starkex-recovery/disbursal-service/db"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/tokenregistry"
	"github.com/urfave/cli/v2"
)

const (
	flagVaultRoot   = "vault-root"
	flagAccountRoot = "account-root"
	flagTokensFile  = "tokens-file"
)

// tokensFileEntry is one association in the register-tokens input file.
type tokensFileEntry struct {
	AssetID     string `json:"assetId"`
	Quantum     string `json:"quantum"`
	Destination string `json:"destination"`
}

func loadAdmin(ctx *cli.Context) (*admin.Manager, db.Storage, error) {
	c, err := config.Load(ctx.String(flagCfg))
	if err != nil {
		return nil, nil, err
	}
	setupLog(c.Log)

	storage, err := db.NewStorage(c.Database)
	if err != nil {
		return nil, nil, err
	}
	return admin.NewManager(c.Admin, storage), storage, nil
}

func setRoots(ctx *cli.Context) error {
	rawVault := ctx.String(flagVaultRoot)
	rawAccount := ctx.String(flagAccountRoot)
	if rawVault == "" && rawAccount == "" {
		return errors.New("nothing to commit, pass --vault-root and/or --account-root")
	}

	manager, _, err := loadAdmin(ctx)
	if err != nil {
		return err
	}

	if rawVault != "" {
		root, ok := new(big.Int).SetString(strings.TrimPrefix(rawVault, "0x"), 16) //nolint:gomnd
		if !ok {
			return errors.New("malformed vault root")
		}
		if err := manager.SetVaultRoot(context.Background(), root); err != nil {
			return err
		}
	}
	if rawAccount != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(rawAccount, "0x"))
		if err != nil || len(raw) != accounttree.KeyLen {
			return errors.New("malformed account root")
		}
		var root [accounttree.KeyLen]byte
		copy(root[:], raw)
		if err := manager.SetAccountRoot(context.Background(), root); err != nil {
			return err
		}
	}
	return nil
}

func registerTokens(ctx *cli.Context) error {
	data, err := os.ReadFile(ctx.String(flagTokensFile))
	if err != nil {
		return err
	}
	var entries []tokensFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	associations := make([]etherman.TokenAssociation, 0, len(entries))
	for _, entry := range entries {
		assetID, ok := new(big.Int).SetString(strings.TrimPrefix(entry.AssetID, "0x"), base(entry.AssetID))
		if !ok {
			return errors.New("malformed asset id " + entry.AssetID)
		}
		quantum, ok := new(big.Int).SetString(entry.Quantum, 10) //nolint:gomnd
		if !ok {
			return errors.New("malformed quantum " + entry.Quantum)
		}
		if !common.IsHexAddress(entry.Destination) {
			return errors.New("malformed destination " + entry.Destination)
		}
		associations = append(associations, etherman.TokenAssociation{
			AssetID:     assetID,
			Quantum:     quantum,
			Destination: common.HexToAddress(entry.Destination),
		})
	}

	c, err := config.Load(ctx.String(flagCfg))
	if err != nil {
		return err
	}
	setupLog(c.Log)
	storage, err := db.NewStorage(c.Database)
	if err != nil {
		return err
	}
	registry := tokenregistry.NewRegistry(storage)
	return registry.RegisterTokenMappings(context.Background(), associations)
}

func finalize(ctx *cli.Context) error {
	manager, _, err := loadAdmin(ctx)
	if err != nil {
		return err
	}
	log.Info("finalizing the admin surface, this cannot be undone")
	return manager.Finalize(context.Background())
}

func base(s string) int {
	if strings.HasPrefix(s, "0x") {
		return 16 //nolint:gomnd
	}
	return 10 //nolint:gomnd
}
