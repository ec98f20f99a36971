package main

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/monitoring"
)

// FirstAllowedCmd prints when a monitoring service may first call monitor() for a
// channel, the same number the contract's view function returns.
func FirstAllowedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "first-allowed <closed-at-block> <settle-timeout> <participant1> <participant2> <monitoring-service>",
		Short: "print the first block a monitoring service may act on a closed channel",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			closedAt, ok := bigutils.ParseU256(args[0])
			if !ok {
				return errors.New("invalid closed-at-block: " + args[0])
			}
			settleTimeout, ok := bigutils.ParseU256(args[1])
			if !ok {
				return errors.New("invalid settle-timeout: " + args[1])
			}
			addrs := make([]common.Address, 3)
			for i, s := range args[2:] {
				if !common.IsHexAddress(s) {
					return errors.New("invalid address: " + s)
				}
				addrs[i] = common.HexToAddress(s)
			}
			block, err := monitoring.FirstBlockAllowedToMonitor(closedAt, settleTimeout, addrs[0], addrs[1], addrs[2])
			if err != nil {
				return err
			}
			fmt.Println(block.ToBig().String())
			return nil
		},
	}
}
