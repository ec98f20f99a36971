package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/cli"
)

func ConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [key] [value]",
		Short: "print or modify config/app.toml",
		RunE:  runConfigCmd,
		Args:  cobra.RangeArgs(0, 2),
	}
}

func runConfigCmd(cmd *cobra.Command, args []string) error {
	cfgFile := appConfigFile(viper.GetString(cli.HomeFlag))
	tree, err := loadConfigFile(cfgFile)
	if err != nil {
		return err
	}

	// print the config and exit
	if len(args) == 0 {
		s, err := tree.ToTomlString()
		if err != nil {
			return err
		}
		fmt.Print(s)
		return nil
	}
	if len(args) == 1 {
		fmt.Println(tree.Get(args[0]))
		return nil
	}

	key, value := args[0], args[1]
	switch key {
	case "app_data_path", "watchtower_data_path", "genesis_file", "log_level", "service_deposit",
		"rpc_http_addr", "rpc_ws_addr", "rpc_corsdomain", "metrics_addr",
		"watchtower_key", "watchtower_rpc_url":
		tree.Set(key, value)
	case "watchtower_enabled":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		tree.Set(key, boolVal)
	case "chain_id", "settle_timeout_min", "settle_timeout_max", "registration_duration",
		"withdraw_delay", "get_logs_max_results", "poll_interval_seconds":
		uintVal, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		tree.Set(key, uintVal)
	default:
		return errUnknownConfigKey(key)
	}

	if err := saveConfigFile(cfgFile, tree); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "configuration saved to %s\n", cfgFile)
	return nil
}

func loadConfigFile(cfgFile string) (*toml.Tree, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(os.Stderr, "%s does not exist\n", cfgFile)
		return toml.Load(``)
	}

	bz, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	return toml.LoadBytes(bz)
}

func saveConfigFile(cfgFile string, tree *toml.Tree) error {
	fp, err := os.OpenFile(cfgFile, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer fp.Close()

	_, err = tree.WriteTo(fp)
	return err
}

func errUnknownConfigKey(key string) error {
	return fmt.Errorf("unknown configuration key: %q", key)
}
