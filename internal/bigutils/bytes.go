package bigutils

import (
	"github.com/holiman/uint256"
)

// U256FromSlice32 returns zero for an empty slice, which is how missing storage reads back.
func U256FromSlice32(arr []byte) *uint256.Int {
	if len(arr) == 0 {
		return uint256.NewInt(0)
	}
	return uint256.NewInt(0).SetBytes(arr)
}

func U256ToSlice32(v *uint256.Int) []byte {
	arr := v.Bytes32()
	return arr[:]
}
