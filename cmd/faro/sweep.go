package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/faro-wallet/faro-daemon/config"
	"github.com/faro-wallet/faro-daemon/internal/core/application"
)

var sweep = cli.Command{
	Name:  "sweep",
	Usage: "consolidate dust coins into a single output",
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "threshold",
			Usage: "collect coins worth at most this many satoshis",
			Value: 10000,
		},
		&cli.Float64Flag{
			Name:  "sats-per-byte",
			Usage: "the fee rate, defaults to the configured one",
		},
		&cli.IntFlag{
			Name: "change-index",
			Usage: "pin the consolidation output to the internal address " +
				"at this index instead of rotating to a fresh one",
			Value: -1,
		},
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the wallet passphrase",
			Required: true,
		},
	},
	Action: sweepAction,
}

func sweepAction(ctx *cli.Context) error {
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

	satsPerByte := ctx.Float64("sats-per-byte")
	if satsPerByte <= 0 {
		satsPerByte = config.GetFloat(config.SatsPerByteKey)
	}

	opts := application.SweepDustOpts{
		SatsPerByte: satsPerByte,
		Threshold:   ctx.Uint64("threshold"),
	}
	if index := ctx.Int("change-index"); index >= 0 {
		opts.ChangeIndex = &index
	}

	result, err := svc.SweepDust(context.Background(), opts)
	if err != nil {
		return err
	}

	fmt.Printf("txid:         %s\n", result.TxID)
	fmt.Printf("consolidated: %s BTC\n", toBTC(result.Amount))
	fmt.Printf("fee:          %s BTC\n", toBTC(result.Fee))
	return nil
}
