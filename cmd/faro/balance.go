package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var balance = cli.Command{
	Name:  "balance",
	Usage: "show the wallet balance",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "sync",
			Usage: "refresh the utxo set from the server first",
		},
		&cli.StringFlag{
			Name:  "passphrase",
			Usage: "the wallet passphrase, required with --sync",
		},
	},
	Action: balanceAction,
}

func balanceAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	if ctx.Bool("sync") {
		progress := func(address string, synced, total int) {
			fmt.Printf("\rsyncing addresses %d/%d", synced, total)
			if synced == total {
				fmt.Println()
			}
		}
		if err := svc.Sync(context.Background(), progress); err != nil {
			return err
		}
	}

	bal, err := svc.Balance(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("confirmed:   %s BTC\n", toBTC(bal.Confirmed))
	fmt.Printf("unconfirmed: %s BTC\n", toBTC(bal.Unconfirmed))
	fmt.Printf("total:       %s BTC\n", toBTC(bal.Total()))
	return nil
}

func toBTC(sats uint64) string {
	return decimal.NewFromInt(int64(sats)).
		Div(decimal.NewFromInt(100000000)).
		StringFixed(8)
}

func toSatoshis(btc string) (uint64, error) {
	amount, err := decimal.NewFromString(btc)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %s", btc)
	}
	sats := amount.Mul(decimal.NewFromInt(100000000)).IntPart()
	if sats <= 0 {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	return uint64(sats), nil
}
