package servicereg

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartbch/watchtower/chain/types"
)

func CallHasValidRegistration(ctx *types.Context, block *types.BlockInfo, caller, registry, service common.Address) (bool, error) {
	status, outData := ctx.Call(block, caller, registry, PackHasValidRegistration(service))
	if status != types.StatusSuccess {
		return false, types.NewRevertError(outData)
	}
	res, err := ABI.GetABI().Unpack("hasValidRegistration", outData)
	if err != nil {
		return false, err
	}
	valid, _ := res[0].(bool)
	return valid, nil
}
