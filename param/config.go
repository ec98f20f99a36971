package param

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/smartbch/watchtower/internal/bigutils"
)

const (
	DefaultRpcEthGetLogsMaxResults = 10000
	DefaultPollIntervalSeconds     = 2
	DefaultLogLevel                = "main:info,chain:info,watchtower:info,*:error"
)

var (
	ErrSettleTimeoutRange = errors.New("settle_timeout_min must be positive and not above settle_timeout_max")
	ErrServiceDeposit     = errors.New("invalid service_deposit")
	ErrZeroChainID        = errors.New("chain_id must not be zero")
)

type AppConfig struct {
	// app config:
	AppDataPath        string `mapstructure:"app_data_path"`
	WatchtowerDataPath string `mapstructure:"watchtower_data_path"`
	GenesisFilePath    string `mapstructure:"genesis_file"`
	LogLevel           string `mapstructure:"log_level"`

	// chain config
	ChainID              uint64 `mapstructure:"chain_id"`
	SettleTimeoutMin     uint64 `mapstructure:"settle_timeout_min"`
	SettleTimeoutMax     uint64 `mapstructure:"settle_timeout_max"`
	ServiceDeposit       string `mapstructure:"service_deposit"`
	RegistrationDuration uint64 `mapstructure:"registration_duration"`
	WithdrawDelay        uint64 `mapstructure:"withdraw_delay"`

	// rpc config
	RpcHttpAddr             string `mapstructure:"rpc_http_addr"`
	RpcWsAddr               string `mapstructure:"rpc_ws_addr"`
	RpcCorsDomain           string `mapstructure:"rpc_corsdomain"`
	RpcEthGetLogsMaxResults int    `mapstructure:"get_logs_max_results"`
	MetricsAddr             string `mapstructure:"metrics_addr"`

	// watchtower config
	WatchtowerEnabled   bool   `mapstructure:"watchtower_enabled"`
	WatchtowerKey       string `mapstructure:"watchtower_key"`
	WatchtowerRpcUrl    string `mapstructure:"watchtower_rpc_url"`
	PollIntervalSeconds uint64 `mapstructure:"poll_interval_seconds"`
}

var defaultHome = os.ExpandEnv("$HOME/.mscd")

func DefaultHome() string {
	return defaultHome
}

func DefaultAppConfig() *AppConfig {
	return DefaultAppConfigWithHome("")
}

func DefaultAppConfigWithHome(home string) *AppConfig {
	if home == "" {
		home = defaultHome
	}
	return &AppConfig{
		AppDataPath:             filepath.Join(home, "data", "app"),
		WatchtowerDataPath:      filepath.Join(home, "data", "watchtower"),
		GenesisFilePath:         filepath.Join(home, "config", "genesis.json"),
		LogLevel:                DefaultLogLevel,
		ChainID:                 DefaultChainID,
		SettleTimeoutMin:        DefaultSettleTimeoutMin,
		SettleTimeoutMax:        DefaultSettleTimeoutMax,
		ServiceDeposit:          DefaultServiceDeposit,
		RegistrationDuration:    DefaultRegistrationDuration,
		WithdrawDelay:           DefaultWithdrawDelay,
		RpcHttpAddr:             "tcp://:8545",
		RpcWsAddr:               "tcp://:8546",
		RpcCorsDomain:           "*",
		RpcEthGetLogsMaxResults: DefaultRpcEthGetLogsMaxResults,
		PollIntervalSeconds:     DefaultPollIntervalSeconds,
	}
}

func (c *AppConfig) Validate() error {
	if c.ChainID == 0 {
		return ErrZeroChainID
	}
	if c.SettleTimeoutMin == 0 || c.SettleTimeoutMin > c.SettleTimeoutMax {
		return ErrSettleTimeoutRange
	}
	if _, ok := bigutils.ParseU256(c.ServiceDeposit); !ok {
		return ErrServiceDeposit
	}
	return nil
}
