package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

var renamewallet = cli.Command{
	Name:  "rename",
	Usage: "change the display name of the wallet",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Usage:    "the new display name",
			Required: true,
		},
	},
	Action: renameWalletAction,
}

var changepassphrase = cli.Command{
	Name:  "changepassphrase",
	Usage: "re-encrypt the seed under a new passphrase",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the current wallet passphrase",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "new-passphrase",
			Usage:    "the new wallet passphrase",
			Required: true,
		},
	},
	Action: changePassphraseAction,
}

var deletewallet = cli.Command{
	Name:  "delete",
	Usage: "delete the wallet with its utxo set and history",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the wallet passphrase",
			Required: true,
		},
	},
	Action: deleteWalletAction,
}

func renameWalletAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.RenameWallet(
		context.Background(), ctx.String("name"),
	); err != nil {
		return err
	}

	fmt.Println("wallet renamed")
	return nil
}

func changePassphraseAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.ChangePassphrase(
		context.Background(),
		ctx.String("passphrase"),
		ctx.String("new-passphrase"),
	); err != nil {
		return err
	}

	fmt.Println("passphrase changed")
	return nil
}

func deleteWalletAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.DeleteWallet(
		context.Background(), ctx.String("passphrase"),
	); err != nil {
		return err
	}

	fmt.Println("wallet deleted")
	return nil
}
