package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

var newaddress = cli.Command{
	Name:  "address",
	Usage: "derive the next unused receiving address",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the wallet passphrase",
			Required: true,
		},
	},
	Action: newAddressAction,
}

func newAddressAction(ctx *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := unlockFromFlag(ctx, svc); err != nil {
		return err
	}

	addr, err := svc.NewAddress(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(addr)
	return nil
}
