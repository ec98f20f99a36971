//go:build !params_testnet
// +build !params_testnet

package param

// Protocol defaults of a local test chain. Settle timeouts are measured in blocks and
// every transaction mines one block, so they are kept short.
const (
	DefaultChainID uint64 = 61

	DefaultSettleTimeoutMin uint64 = 20
	DefaultSettleTimeoutMax uint64 = 555428

	// 5000 tokens with 18 decimals
	DefaultServiceDeposit              = "5000000000000000000000"
	DefaultRegistrationDuration uint64 = 1000
	DefaultWithdrawDelay        uint64 = 100

	// the monitoring window, in percent of the settle timeout
	MonitorWindowStartPercent uint64 = 30
	MonitorWindowEndPercent   uint64 = 80
)
