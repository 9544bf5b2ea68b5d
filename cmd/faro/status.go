package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/faro-wallet/faro-daemon/config"
)

var status = cli.Command{
	Name:   "status",
	Usage:  "show connection and wallet status",
	Action: statusAction,
}

func statusAction(_ *cli.Context) error {
	svc, client, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("server:     %s\n", config.GetString(config.ElectrumEndpointKey))
	fmt.Printf("connection: %s\n", client.State())
	fmt.Printf("network:    %s\n", config.GetString(config.NetworkKey))

	addresses, err := svc.ListAddresses(context.Background())
	if err != nil {
		fmt.Println("wallet:     not initialized")
		return nil
	}
	fmt.Printf("addresses:  %d\n", len(addresses))

	relayFee, err := client.RelayFee(context.Background())
	if err == nil {
		fmt.Printf("relay fee:  %.8f BTC/kB\n", relayFee)
	}
	return nil
}
