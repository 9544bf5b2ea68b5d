package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/faro-wallet/faro-daemon/config"
	"github.com/faro-wallet/faro-daemon/internal/core/application"
	"github.com/faro-wallet/faro-daemon/pkg/coinselect"
)

var send = cli.Command{
	Name:  "send",
	Usage: "send funds to an address",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "to",
			Usage:    "the destination address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "the amount to send in BTC",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "sats-per-byte",
			Usage: "the fee rate, defaults to the configured one",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "coin selection strategy: bestfit, largestfirst, smallestfirst, random",
			Value: string(coinselect.BestFit),
		},
		&cli.BoolFlag{
			Name:  "subtract-fee",
			Usage: "deduct the fee from the amount instead of adding it on top",
		},
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the wallet passphrase",
			Required: true,
		},
	},
	Action: sendAction,
}

func sendAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := unlockFromFlag(ctx, svc); err != nil {
		return err
	}
	if err := svc.Sync(context.Background(), nil); err != nil {
		return err
	}

	amount, err := toSatoshis(ctx.String("amount"))
	if err != nil {
		return err
	}
	satsPerByte := ctx.Float64("sats-per-byte")
	if satsPerByte <= 0 {
		satsPerByte = config.GetFloat(config.SatsPerByteKey)
	}

	result, err := svc.Send(context.Background(), application.SendOpts{
		Address:               ctx.String("to"),
		Amount:                amount,
		SatsPerByte:           satsPerByte,
		Strategy:              coinselect.Strategy(ctx.String("strategy")),
		SubtractFeeFromAmount: ctx.Bool("subtract-fee"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("txid:   %s\n", result.TxID)
	fmt.Printf("amount: %s BTC\n", toBTC(result.Amount))
	fmt.Printf("fee:    %s BTC\n", toBTC(result.Fee))
	return nil
}
