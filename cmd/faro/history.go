package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

var history = cli.Command{
	Name:   "history",
	Usage:  "show the wallet history",
	Action: historyAction,
}

func historyAction(_ *cli.Context) error {
	svc, _, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	txs, err := svc.History(context.Background())
	if err != nil {
		return err
	}

	for _, tx := range txs {
		status := "confirmed"
		if tx.Pending {
			status = "pending"
		}
		kind := string(tx.Type)
		if tx.SelfTransfer {
			kind = "self"
		}
		fmt.Printf(
			"%s  %-7s  %-9s  %s BTC  %s\n",
			time.Unix(tx.Timestamp, 0).Format("2006-01-02 15:04"),
			kind, status, toBTC(tx.Amount), tx.TxID,
		)
	}
	return nil
}
