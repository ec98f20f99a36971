package userdeposit

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
)

// CallTransfer returns false when the sender's deposit does not cover amount.
func CallTransfer(ctx *types.Context, block *types.BlockInfo, caller, udc, sender, receiver common.Address, amount *uint256.Int) (bool, error) {
	status, outData := ctx.Call(block, caller, udc, PackTransfer(sender, receiver, amount.ToBig()))
	if status != types.StatusSuccess {
		return false, types.NewRevertError(outData)
	}
	res, err := ABI.GetABI().Unpack("transfer", outData)
	if err != nil {
		return false, err
	}
	ok, _ := res[0].(bool)
	return ok, nil
}
