package param

import (
	"bytes"
	"text/template"

	"github.com/spf13/viper"
	tmos "github.com/tendermint/tendermint/libs/os"
)

const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

app_data_path = "{{ .AppDataPath }}"
watchtower_data_path = "{{ .WatchtowerDataPath }}"
genesis_file = "{{ .GenesisFilePath }}"
log_level = "{{ .LogLevel }}"

# replay protection of signed transactions and balance proofs
chain_id = {{ .ChainID }}

# settle timeout bounds (in blocks) of new token networks
settle_timeout_min = {{ .SettleTimeoutMin }}
settle_timeout_max = {{ .SettleTimeoutMax }}

# tokens a monitoring service stakes in the service registry
service_deposit = "{{ .ServiceDeposit }}"

# blocks one registration deposit is valid for
registration_duration = {{ .RegistrationDuration }}

# blocks between planWithdraw and withdraw in the user deposit
withdraw_delay = {{ .WithdrawDelay }}

rpc_http_addr = "{{ .RpcHttpAddr }}"
rpc_ws_addr = "{{ .RpcWsAddr }}"
rpc_corsdomain = "{{ .RpcCorsDomain }}"

# eth_getLogs max return items
get_logs_max_results = {{ .RpcEthGetLogsMaxResults }}

# prometheus listen address, empty to disable
metrics_addr = "{{ .MetricsAddr }}"

# run the monitoring service agent inside the node
watchtower_enabled = {{ .WatchtowerEnabled }}

# hex private key of the monitoring service
watchtower_key = "{{ .WatchtowerKey }}"

# JSON-RPC endpoint watched by the agent, empty for the in-process chain
watchtower_rpc_url = "{{ .WatchtowerRpcUrl }}"
poll_interval_seconds = {{ .PollIntervalSeconds }}
`

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appConfigFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// ParseConfig fills the defaults of 'home' with what viper has loaded.
func ParseConfig(home string) (*AppConfig, error) {
	conf := DefaultAppConfigWithHome(home)
	err := viper.Unmarshal(conf)
	return conf, err
}

func WriteConfigFile(configFilePath string, config *AppConfig) {
	var buffer bytes.Buffer
	if err := configTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}
	tmos.MustWriteFile(configFilePath, buffer.Bytes(), 0644)
}
