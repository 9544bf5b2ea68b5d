package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/faro-wallet/faro-daemon/config"
	"github.com/faro-wallet/faro-daemon/internal/core/application"
	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	dbbadger "github.com/faro-wallet/faro-daemon/internal/infrastructure/storage/db/badger"
	"github.com/faro-wallet/faro-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/faro-wallet/faro-daemon/pkg/electrum"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	var (
		walletRepo domain.WalletRepository
		utxoRepo   domain.UtxoRepository
		txRepo     domain.TransactionRepository
	)

	switch config.GetString(config.DbTypeKey) {
	case config.DbTypeInMemory:
		walletRepo = inmemory.NewWalletRepositoryImpl()
		utxoRepo = inmemory.NewUtxoRepositoryImpl()
		txRepo = inmemory.NewTransactionRepositoryImpl()
	default:
		dbManager, err := dbbadger.NewDbManager(config.GetDbDir(), nil)
		if err != nil {
			log.WithError(err).Panic("error while opening db")
		}
		defer dbManager.Close()
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
		log.WithError(err).Panic("error while creating electrum client")
	}
	if err := client.Connect(); err != nil {
		log.WithError(err).Panic("error while connecting to electrum server")
	}
	defer client.Disconnect()

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
		log.WithError(err).Panic("error while creating wallet engine")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.StartWatching(ctx); err != nil {
		log.WithError(err).Panic("error while starting watchers")
	}
	defer svc.StopWatching()

	go logStateChanges(client)

	log.Debug("daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("exiting")
}

func logStateChanges(client *electrum.Client) {
	for state := range client.StateChanges() {
		log.Infof("electrum connection state: %s", state)
	}
}
