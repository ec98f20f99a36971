//go:build params_testnet
// +build params_testnet

package param

const (
	DefaultChainID uint64 = 0x2711

	DefaultSettleTimeoutMin uint64 = 500
	DefaultSettleTimeoutMax uint64 = 555428

	DefaultServiceDeposit              = "5000000000000000000000"
	DefaultRegistrationDuration uint64 = 180 * 24 * 60 * 60 / 15
	DefaultWithdrawDelay        uint64 = 100

	MonitorWindowStartPercent uint64 = 30
	MonitorWindowEndPercent   uint64 = 80
)
