package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/cli"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/smartbch/watchtower/app"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/internal/testutils"
	"github.com/smartbch/watchtower/param"
)

const (
	flagChainID      = "chain-id"
	flagOverwrite    = "overwrite"
	flagTestKeys     = "test-keys"
	flagTestKeysFile = "test-keys-file"
	flagInitBal      = "init-balance"
)

func InitCmd(ctx *Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the genesis and configuration files",
		Long:  `Write config/app.toml and a genesis.json which gives every test key a token balance.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			home := viper.GetString(cli.HomeFlag)
			config := ctx.Config
			if s := viper.GetString(flagChainID); s != "" {
				chainID, err := parseChainID(s)
				if err != nil {
					return err
				}
				config.ChainID = chainID
			}
			genFile := config.GenesisFilePath
			if !viper.GetBool(flagOverwrite) && tmos.FileExists(genFile) {
				return fmt.Errorf("genesis.json file already exists: %v", genFile)
			}

			testKeys, err := getTestKeys()
			if err != nil {
				return err
			}
			appState, err := getAppState(testKeys)
			if err != nil {
				return err
			}
			fmt.Println("saving genesis file ...")
			if err = tmos.EnsureDir(filepath.Dir(genFile), 0777); err != nil {
				return err
			}
			tmos.MustWriteFile(genFile, appState, 0644)
			param.WriteConfigFile(appConfigFile(home), config)
			ctx.Logger.Info("initialized", "home", home, "chain_id", config.ChainID, "test_keys", len(testKeys))
			return nil
		},
	}
	cmd.Flags().BoolP(flagOverwrite, "o", false, "overwrite the genesis.json file")
	cmd.Flags().String(flagChainID, "", "chain id, decimal or 0x prefixed hex")
	cmd.Flags().String(flagTestKeys, "", "comma separated list of hex private keys used for test")
	cmd.Flags().String(flagTestKeysFile, "", "file contains hex private keys, one key per line")
	cmd.Flags().String(flagInitBal, "1000000000000000000000", "initial token balance for test accounts")
	return cmd
}

func parseChainID(chainID string) (uint64, error) {
	var id uint64
	var err error
	if strings.HasPrefix(chainID, "0x") {
		id, err = strconv.ParseUint(chainID[2:], 16, 64)
	} else {
		id, err = strconv.ParseUint(chainID, 10, 64)
	}
	if err != nil || id == 0 {
		return 0, errors.New("invalid chain ID: " + chainID)
	}
	return id, nil
}

func getAppState(testKeys []string) ([]byte, error) {
	initBal, ok := bigutils.ParseU256(viper.GetString(flagInitBal))
	if !ok {
		return nil, errors.New("invalid init balance")
	}

	fmt.Println("preparing genesis file ...")
	alloc := testutils.KeysToGenesisAlloc(initBal, testKeys)
	return json.MarshalIndent(app.GenesisData{Alloc: alloc}, "", "  ")
}

// getTestKeys reads --test-keys, or else --test-keys-file which takes file[:count] items.
func getTestKeys() ([]string, error) {
	if testKeysCSV := viper.GetString(flagTestKeys); testKeysCSV != "" {
		return splitKeys(testKeysCSV), nil
	}

	testKeyFiles := viper.GetString(flagTestKeysFile)
	if testKeyFiles == "" {
		return nil, nil
	}
	var allKeys []string
	for _, testKeyFile := range strings.Split(testKeyFiles, ",") {
		count := math.MaxInt32
		if idx := strings.Index(testKeyFile, ":"); idx > 0 {
			n, err := strconv.ParseInt(testKeyFile[idx+1:], 10, 32)
			if err != nil {
				return nil, err
			}
			count = int(n)
			testKeyFile = testKeyFile[:idx]
		}
		keys, err := readKeysFromFile(testKeyFile, count)
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, keys...)
	}
	return allKeys, nil
}
