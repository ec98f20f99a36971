package bigutils

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxU256 is 2^256 - 1
var MaxU256 = uint256.NewInt(0).Not(uint256.NewInt(0))

func NewU256(u64 uint64) *uint256.Int {
	return uint256.NewInt(u64)
}

// ParseU256 accepts both decimal and 0x-prefixed hexadecimal strings.
func ParseU256(s string) (*uint256.Int, bool) {
	i := big.NewInt(0)
	ok := false
	if strings.HasPrefix(s, "0x") {
		i, ok = i.SetString(s[2:], 16)
	} else {
		i, ok = i.SetString(s, 10)
	}
	if ok && i.Sign() >= 0 {
		u, overflow := uint256.FromBig(i)
		return u, !overflow
	}
	return nil, false
}

// AddressToU256 interprets the 20 address bytes as a big-endian unsigned integer,
// like uint256(address) in solidity.
func AddressToU256(addr common.Address) *uint256.Int {
	return uint256.NewInt(0).SetBytes(addr[:])
}

// FromBig converts an ABI-decoded value, the second result is false on overflow or
// negative input.
func FromBig(v *big.Int) (*uint256.Int, bool) {
	if v == nil || v.Sign() < 0 {
		return nil, false
	}
	u, overflow := uint256.FromBig(v)
	return u, !overflow
}

// FromABI converts a decoded uint256 argument, which always fits.
func FromABI(v *big.Int) *uint256.Int {
	u, _ := uint256.FromBig(v)
	return u
}
