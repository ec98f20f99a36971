package tokennetwork

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
)

// Helpers used by the monitoring service contract, which talks to token networks and
// their registry through message calls.

func call(ctx *types.Context, block *types.BlockInfo, caller, contract common.Address, data []byte) ([]byte, error) {
	status, outData := ctx.Call(block, caller, contract, data)
	if status != types.StatusSuccess {
		return nil, types.NewRevertError(outData)
	}
	return outData, nil
}

func callUint(ctx *types.Context, block *types.BlockInfo, caller, network common.Address, method string) (*uint256.Int, error) {
	out, err := call(ctx, block, caller, network, ABI.MustPack(method))
	if err != nil {
		return nil, err
	}
	res, err := ABI.GetABI().Unpack(method, out)
	if err != nil {
		return nil, err
	}
	return bigutils.FromABI(res[0].(*big.Int)), nil
}

func CallToken(ctx *types.Context, block *types.BlockInfo, caller, network common.Address) (common.Address, error) {
	out, err := call(ctx, block, caller, network, ABI.MustPack("token"))
	if err != nil {
		return common.Address{}, err
	}
	res, err := ABI.GetABI().Unpack("token", out)
	if err != nil {
		return common.Address{}, err
	}
	return res[0].(common.Address), nil
}

func CallChainID(ctx *types.Context, block *types.BlockInfo, caller, network common.Address) (*uint256.Int, error) {
	return callUint(ctx, block, caller, network, "chain_id")
}

func CallSettlementTimeoutMin(ctx *types.Context, block *types.BlockInfo, caller, network common.Address) (*uint256.Int, error) {
	return callUint(ctx, block, caller, network, "settlement_timeout_min")
}

func CallGetChannelIdentifier(ctx *types.Context, block *types.BlockInfo, caller, network, participant, partner common.Address) (*uint256.Int, error) {
	out, err := call(ctx, block, caller, network, PackGetChannelIdentifier(participant, partner))
	if err != nil {
		return nil, err
	}
	res, err := ABI.GetABI().Unpack("getChannelIdentifier", out)
	if err != nil {
		return nil, err
	}
	return bigutils.FromABI(res[0].(*big.Int)), nil
}

func CallGetChannelInfo(ctx *types.Context, block *types.BlockInfo, caller, network common.Address, channelID *uint256.Int, participant1, participant2 common.Address) (*uint256.Int, uint8, error) {
	out, err := call(ctx, block, caller, network, PackGetChannelInfo(channelID.ToBig(), participant1, participant2))
	if err != nil {
		return nil, 0, err
	}
	res, err := ABI.GetABI().Unpack("getChannelInfo", out)
	if err != nil {
		return nil, 0, err
	}
	return bigutils.FromABI(res[0].(*big.Int)), res[1].(uint8), nil
}

func CallUpdateNonClosingBalanceProof(ctx *types.Context, block *types.BlockInfo, caller, network common.Address,
	bp *BalanceProof, closing, nonClosing common.Address, closingSig, nonClosingSig []byte) error {
	_, err := call(ctx, block, caller, network, PackUpdateNonClosingBalanceProof(bp, closing, nonClosing, closingSig, nonClosingSig))
	return err
}

func CallTokenToTokenNetworks(ctx *types.Context, block *types.BlockInfo, caller, registry, tokenAddr common.Address) (common.Address, error) {
	out, err := call(ctx, block, caller, registry, PackTokenToTokenNetworks(tokenAddr))
	if err != nil {
		return common.Address{}, err
	}
	res, err := RegistryABI.GetABI().Unpack("token_to_token_networks", out)
	if err != nil {
		return common.Address{}, err
	}
	return res[0].(common.Address), nil
}
