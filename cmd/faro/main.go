package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/faro-wallet/faro-daemon/config"
	"github.com/faro-wallet/faro-daemon/internal/core/application"
	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	dbbadger "github.com/faro-wallet/faro-daemon/internal/infrastructure/storage/db/badger"
	"github.com/faro-wallet/faro-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/faro-wallet/faro-daemon/pkg/electrum"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "faro CLI"
	app.Usage = "Command line interface for the faro wallet daemon"
	app.Commands = append(
		app.Commands,
		&genseed,
		&initwallet,
		&importwif,
		&renamewallet,
		&changepassphrase,
		&deletewallet,
		&newaddress,
		&balance,
		&send,
		&sweep,
		&history,
		&status,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[faro] %v\n", err)
	os.Exit(1)
}

// buildService wires the storage, the electrum client and the wallet engine
// from the environment config. The returned cleanup must be deferred.
func buildService() (*application.Service, *electrum.Client, func(), error) {
	var (
		walletRepo domain.WalletRepository
		utxoRepo   domain.UtxoRepository
		txRepo     domain.TransactionRepository
		closeDb    = func() {}
	)

	switch config.GetString(config.DbTypeKey) {
	case config.DbTypeInMemory:
		walletRepo = inmemory.NewWalletRepositoryImpl()
		utxoRepo = inmemory.NewUtxoRepositoryImpl()
		txRepo = inmemory.NewTransactionRepositoryImpl()
	default:
		dbManager, err := dbbadger.NewDbManager(config.GetDbDir(), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		closeDb = func() { dbManager.Close() }
		walletRepo = dbbadger.NewWalletRepositoryImpl(dbManager)
		utxoRepo = dbbadger.NewUtxoRepositoryImpl(dbManager)
		txRepo = dbbadger.NewTransactionRepositoryImpl(dbManager)
	}

	client, err := electrum.NewClient(electrum.ClientOpts{
		Endpoint: config.GetString(config.ElectrumEndpointKey),
		PingInterval: time.Duration(
			config.GetInt(config.PingIntervalKey),
		) * time.Second,
	})
	if err != nil {
		closeDb()
		return nil, nil, nil, err
	}
	if err := client.Connect(); err != nil {
		closeDb()
		return nil, nil, nil, err
	}

	svc, err := application.NewService(application.ServiceOpts{
		WalletRepository:      walletRepo,
		UtxoRepository:        utxoRepo,
		TransactionRepository: txRepo,
		Blockchain:            client,
		Network:               config.GetNetwork(),
		GapLimit:              config.GetInt(config.GapLimitKey),
		DustThreshold:         uint64(config.GetInt(config.DustThresholdKey)),
	})
	if err != nil {
		client.Disconnect()
		closeDb()
		return nil, nil, nil, err
	}

	cleanup := func() {
		client.Disconnect()
		closeDb()
	}
	return svc, client, cleanup, nil
}

func unlockFromFlag(ctx *cli.Context, svc *application.Service) error {
	return svc.Unlock(context.Background(), ctx.String("passphrase"))
}
