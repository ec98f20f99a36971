package monitoring

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/param"
)

var (
	ErrBigSettleTimeout      = errors.New("maliciously big settle timeout")
	ErrBigClosedAtBlock      = errors.New("maliciously big closed_at_block")
	ErrSettleTimeoutTooSmall = errors.New("settle timeout too small")
)

// values must stay below this bound so that multiplying them by a percentage cannot overflow
var maxMultiplicand = uint256.NewInt(0).Div(bigutils.MaxU256, uint256.NewInt(100))

// FirstBlockAllowedToMonitor returns the first block at which monitoringService may call
// monitor() for a channel closed at closedAtBlock. The blocks between 30% and 80% of the
// settle timeout are spread over the monitoring services by the sum of the three addresses,
// so different services act first on different channels.
//
// The result lies in (closedAtBlock, closedAtBlock+settleTimeout].
func FirstBlockAllowedToMonitor(closedAtBlock, settleTimeout *uint256.Int,
	participant1, participant2, monitoringService common.Address) (*uint256.Int, error) {
	if !settleTimeout.Lt(maxMultiplicand) {
		return nil, ErrBigSettleTimeout
	}
	if !closedAtBlock.Lt(maxMultiplicand) {
		return nil, ErrBigClosedAtBlock
	}
	hundred := uint256.NewInt(100)
	bestCase := uint256.NewInt(0).Mul(uint256.NewInt(param.MonitorWindowStartPercent), settleTimeout)
	bestCase.Div(bestCase, hundred)
	if bestCase.IsZero() {
		return nil, ErrSettleTimeoutTooSmall
	}
	rangeLength := uint256.NewInt(0).Mul(uint256.NewInt(param.MonitorWindowEndPercent-param.MonitorWindowStartPercent), settleTimeout)
	rangeLength.Div(rangeLength, hundred)

	// three 160-bit values cannot overflow
	offset := bigutils.AddressToU256(participant1)
	offset.Add(offset, bigutils.AddressToU256(participant2))
	offset.Add(offset, bigutils.AddressToU256(monitoringService))
	offset.Mod(offset, rangeLength)

	res := bestCase.Add(bestCase, closedAtBlock)
	return res.Add(res, offset), nil
}
