package main

import (
	"bufio"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/cli"
	tmflags "github.com/tendermint/tendermint/libs/cli/flags"
	"github.com/tendermint/tendermint/libs/log"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/smartbch/watchtower/param"
)

func appConfigFile(home string) string {
	return filepath.Join(home, "config", "app.toml")
}

func TrapSignal(cleanupFunc func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		if cleanupFunc != nil {
			cleanupFunc()
		}
		exitCode := 128
		switch sig {
		case syscall.SIGINT:
			exitCode += int(syscall.SIGINT)
		case syscall.SIGTERM:
			exitCode += int(syscall.SIGTERM)
		}
		os.Exit(exitCode)
	}()
}

func PersistentPreRunEFn(context *Context) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		config, err := interceptLoadConfig(viper.GetString(cli.HomeFlag))
		if err != nil {
			return err
		}
		logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout))
		logger, err = tmflags.ParseLogLevel(config.LogLevel, logger, "info")
		if err != nil {
			return err
		}
		context.Config = config
		context.Logger = logger.With("module", "main")
		return nil
	}
}

// interceptLoadConfig reads home/config/app.toml, writing the defaults first when the
// file does not exist yet.
func interceptLoadConfig(home string) (*param.AppConfig, error) {
	configFilePath := appConfigFile(home)
	if !tmos.FileExists(configFilePath) {
		if err := tmos.EnsureDir(filepath.Dir(configFilePath), 0777); err != nil {
			return nil, err
		}
		param.WriteConfigFile(configFilePath, param.DefaultAppConfigWithHome(home))
	}
	viper.SetConfigFile(configFilePath)
	if err := viper.MergeInConfig(); err != nil {
		return nil, err
	}
	return param.ParseConfig(home)
}

// readKeysFromFile returns at most count hex keys of a file with one key per line.
func readKeysFromFile(file string, count int) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(keys) < count {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			keys = append(keys, line)
		}
	}
	return keys, scanner.Err()
}

func splitKeys(csv string) []string {
	var keys []string
	for _, k := range strings.Split(csv, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
