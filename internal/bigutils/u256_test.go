package bigutils

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestParseU256(t *testing.T) {
	u, ok := ParseU256("65536")
	require.True(t, ok)
	require.Equal(t, "0x10000", u.Hex())

	u, ok = ParseU256("0x10000")
	require.True(t, ok)
	require.Equal(t, "0x10000", u.Hex())

	_, ok = ParseU256("-1")
	require.False(t, ok)

	_, ok = ParseU256("0x1" + "0000000000000000000000000000000000000000000000000000000000000000")
	require.False(t, ok)
}

func TestAddressToU256(t *testing.T) {
	require.Equal(t, uint64(100), AddressToU256(common.BigToAddress(NewU256(100).ToBig())).Uint64())

	var max common.Address
	for i := range max {
		max[i] = 0xff
	}
	u := AddressToU256(max)
	require.Equal(t, 160, u.BitLen())
}

func TestSlice32(t *testing.T) {
	require.True(t, U256FromSlice32(nil).IsZero())
	bz := U256ToSlice32(NewU256(258))
	require.Len(t, bz, 32)
	require.Equal(t, byte(1), bz[30])
	require.Equal(t, byte(2), bz[31])
	require.Equal(t, uint64(258), U256FromSlice32(bz).Uint64())
	require.Equal(t, 256, MaxU256.BitLen())
}
