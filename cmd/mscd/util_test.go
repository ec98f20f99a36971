package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/smartbch/watchtower/param"
)

func TestParseChainID(t *testing.T) {
	id, err := parseChainID("0x2711")
	require.NoError(t, err)
	require.Equal(t, uint64(10001), id)

	id, err = parseChainID("61")
	require.NoError(t, err)
	require.Equal(t, uint64(61), id)

	for _, s := range []string{"0x", "0", "0xZZ", "abc", "-1"} {
		_, err = parseChainID(s)
		require.Error(t, err, s)
	}
}

func TestReadKeysFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keys.txt")
	require.NoError(t, os.WriteFile(file, []byte("0x01\n\n  0x02 \n0x03\n"), 0600))

	keys, err := readKeysFromFile(file, 100)
	require.NoError(t, err)
	require.Equal(t, []string{"0x01", "0x02", "0x03"}, keys)

	keys, err = readKeysFromFile(file, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"0x01", "0x02"}, keys)

	_, err = readKeysFromFile(file+".missing", 1)
	require.Error(t, err)
}

func TestSplitKeys(t *testing.T) {
	require.Nil(t, splitKeys(""))
	require.Equal(t, []string{"0x01", "0x02"}, splitKeys("0x01, ,0x02,"))
}

func TestInterceptLoadConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	home := t.TempDir()

	conf, err := interceptLoadConfig(home)
	require.NoError(t, err)
	require.FileExists(t, appConfigFile(home))
	require.Equal(t, param.DefaultAppConfigWithHome(home), conf)

	viper.Set(flagRpcAddr, "tcp://127.0.0.1:18545")
	viper.Set(flagWatchtower, true)
	applyStartFlags(conf)
	require.Equal(t, "tcp://127.0.0.1:18545", conf.RpcHttpAddr)
	require.True(t, conf.WatchtowerEnabled)
	require.Equal(t, "tcp://:8546", conf.RpcWsAddr)
}
