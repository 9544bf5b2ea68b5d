package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/faro-wallet/faro-daemon/config"
	"github.com/faro-wallet/faro-daemon/internal/core/application"
	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

var initwallet = cli.Command{
	Name:  "init",
	Usage: "initialize the wallet from a mnemonic seed",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "seed",
			Usage:    "the mnemonic seed, words separated by spaces",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the passphrase encrypting the seed at rest",
			Required: true,
		},
		&cli.StringFlag{
			Name: "seed-passphrase",
			Usage: "the optional BIP39 passphrase salting the seed, " +
				"distinct from --passphrase",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "the display name of the wallet",
			Value: "main",
		},
		&cli.BoolFlag{
			Name:  "restore",
			Usage: "discover the used addresses of an existing wallet",
		},
	},
	Action: initWalletAction,
}

var importwif = cli.Command{
	Name:  "importwif",
	Usage: "initialize a single-address wallet from a WIF private key",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "wif",
			Usage:    "the private key in WIF format",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the passphrase encrypting the key at rest",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "the display name of the wallet",
			Value: "main",
		},
	},
	Action: importWIFAction,
}

func importWIFAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.InitWalletFromWIF(
		context.Background(),
		application.InitWalletFromWIFOpts{
			WIF:        ctx.String("wif"),
			Passphrase: ctx.String("passphrase"),
			Name:       ctx.String("name"),
		},
	); err != nil {
		return err
	}

	addresses, err := svc.ListAddresses(context.Background())
	if err != nil {
		return err
	}
	fmt.Println("wallet imported")
	if len(addresses) > 0 {
		fmt.Printf("address: %s\n", addresses[0].Address)
	}
	return nil
}

func initWalletAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	var progress application.DiscoveryProgress
	if ctx.Bool("restore") {
		progress = func(chain domain.Chain, index int, active bool) {
			if active {
				fmt.Printf("found active address at chain %d index %d\n", chain, index)
			}
		}
	}

	if err := svc.InitWallet(context.Background(), application.InitWalletOpts{
		Mnemonic:       strings.Fields(ctx.String("seed")),
		Passphrase:     ctx.String("passphrase"),
		SeedPassphrase: ctx.String("seed-passphrase"),
		Name:           ctx.String("name"),
		CoinType:       wallet.CoinType(config.GetInt(config.CoinTypeKey)),
		Restore:        ctx.Bool("restore"),
		Progress:       progress,
	}); err != nil {
		return err
	}

	fmt.Println("wallet initialized")
	return nil
}
