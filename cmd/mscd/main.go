package main

import (
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/libs/cli"

	"github.com/smartbch/watchtower/param"
)

func main() {
	rootCmd := createMscdCmd()
	executor := cli.PrepareBaseCmd(rootCmd, "MSC", param.DefaultHome())
	if err := executor.Execute(); err != nil {
		panic(err)
	}
}

func createMscdCmd() *cobra.Command {
	cobra.EnableCommandSorting = false
	ctx := NewDefaultContext()
	rootCmd := &cobra.Command{
		Use:               "mscd",
		Short:             "Raiden monitoring service contracts on a local test chain",
		PersistentPreRunE: PersistentPreRunEFn(ctx),
	}
	rootCmd.AddCommand(InitCmd(ctx))
	rootCmd.AddCommand(StartCmd(ctx))
	rootCmd.AddCommand(GenTestKeysCmd())
	rootCmd.AddCommand(FirstAllowedCmd())
	rootCmd.AddCommand(ConfigCmd())
	rootCmd.AddCommand(VersionCmd())
	return rootCmd
}
