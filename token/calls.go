package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
)

// The helpers below are used by other contracts to call a token with themselves as msg.sender.

func CallTransfer(ctx *types.Context, block *types.BlockInfo, caller, token, to common.Address, value *uint256.Int) error {
	return callBool(ctx, block, caller, token, "transfer", PackTransfer(to, value.ToBig()))
}

func CallTransferFrom(ctx *types.Context, block *types.BlockInfo, caller, token, from, to common.Address, value *uint256.Int) error {
	return callBool(ctx, block, caller, token, "transferFrom", PackTransferFrom(from, to, value.ToBig()))
}

func callBool(ctx *types.Context, block *types.BlockInfo, caller, token common.Address, method string, data []byte) error {
	status, outData := ctx.Call(block, caller, token, data)
	if status != types.StatusSuccess {
		return types.NewRevertError(outData)
	}
	res, err := ABI.GetABI().Unpack(method, outData)
	if err != nil || len(res) != 1 {
		return ErrTransferFailed
	}
	if ok, _ := res[0].(bool); !ok {
		return ErrTransferFailed
	}
	return nil
}
