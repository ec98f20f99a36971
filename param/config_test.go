package param

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultAppConfigWithHome("/tmp/h")
	require.Equal(t, filepath.Join("/tmp/h", "data", "app"), c.AppDataPath)
	require.NoError(t, c.Validate())

	c.SettleTimeoutMin = c.SettleTimeoutMax + 1
	require.Equal(t, ErrSettleTimeoutRange, c.Validate())

	c = DefaultAppConfig()
	c.ServiceDeposit = "-1"
	require.Equal(t, ErrServiceDeposit, c.Validate())

	c = DefaultAppConfig()
	c.ChainID = 0
	require.Equal(t, ErrZeroChainID, c.Validate())
}

func TestWriteAndParseConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.toml")
	c := DefaultAppConfigWithHome(dir)
	c.ChainID = 1234
	c.SettleTimeoutMin = 7
	c.WatchtowerEnabled = true
	c.WatchtowerKey = "0xabcd"
	WriteConfigFile(file, c)

	viper.Reset()
	defer viper.Reset()
	viper.SetConfigFile(file)
	require.NoError(t, viper.ReadInConfig())

	parsed, err := ParseConfig(dir)
	require.NoError(t, err)
	require.Equal(t, c, parsed)
}
