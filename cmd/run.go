package main

import (
	"github.com/starkex-recovery/disbursal-service/admin"
	"github.com/starkex-recovery/disbursal-service/claims"
	"github.com/starkex-recovery/disbursal-service/config"
	"github.com/starkex-recovery/disbursal-service/db"
	"github.com/starkex-recovery/disbursal-service/disburser"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/metrics"
	"github.com/starkex-recovery/disbursal-service/server"
	"github.com/starkex-recovery/disbursal-service/starkcrypto"
	"github.com/starkex-recovery/disbursal-service/tokenregistry"
	"github.com/starkex-recovery/disbursal-service/vaulttree"
	"github.com/urfave/cli/v2"
)

func start(ctx *cli.Context) error {
	c, err := config.Load(ctx.String(flagCfg))
	if err != nil {
		return err
	}
	setupLog(c.Log)

	err = db.RunMigrations(c.Database)
	if err != nil {
		log.Error(err)
		return err
	}
	storage, err := db.NewStorage(c.Database)
	if err != nil {
		log.Error(err)
		return err
	}

	etherClient, err := etherman.NewClient(c.Etherman)
	if err != nil {
		log.Error(err)
		return err
	}
	log.Infof("treasury signer: %s", etherClient.TreasuryAddress())

	adminManager := admin.NewManager(c.Admin, storage)
	registry := tokenregistry.NewRegistry(storage)
	ledger := claims.NewLedger(storage)
	vaultVerifier := vaulttree.NewVerifier(starkcrypto.NewTableHasher())
	fundDisburser := disburser.NewDisburser(storage, ledger, registry, adminManager, vaultVerifier, etherClient)

	if c.Metrics.Enabled {
		go metrics.StartMetricsHttpServer(c.Metrics)
	}

	return server.RunServer(c.Server, fundDisburser, ledger, registry, adminManager, storage)
}

func setupLog(c log.Config) {
	log.Init(c)
}
