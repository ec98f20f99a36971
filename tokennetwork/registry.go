package tokennetwork

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
)

const RegistryKind = "TokenNetworkRegistry"

var (
	ErrTokenAlreadyRegistered = errors.New("token already registered")
	ErrTokenAddressZero       = errors.New("token address zero")
	ErrTokenNotContract       = errors.New("token is not a contract")
)

// slots shared by the registry and the token networks it creates
const (
	SlotChainID             = "chain_id"
	SlotSettleTimeoutMin    = "settlement_timeout_min"
	SlotSettleTimeoutMax    = "settlement_timeout_max"
	SlotTokenNetworkCreated = "token_network_created"
)

func tokenNetworkSlot(tokenAddr common.Address) string {
	return "t" + string(tokenAddr[:])
}

func DeployRegistry(ctx *types.Context, addr common.Address, chainID *uint256.Int, settleTimeoutMin, settleTimeoutMax uint64) {
	ctx.SetContractKind(addr, RegistryKind)
	ctx.SetU256At(addr, SlotChainID, chainID)
	ctx.SetU256At(addr, SlotSettleTimeoutMin, uint256.NewInt(settleTimeoutMin))
	ctx.SetU256At(addr, SlotSettleTimeoutMax, uint256.NewInt(settleTimeoutMax))
}

type RegistryExecutor struct{}

var _ types.SystemContractExecutor = &RegistryExecutor{}

func (_ *RegistryExecutor) Kind() string {
	return RegistryKind
}

func (_ *RegistryExecutor) Execute(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (status int, outData []byte) {
	if len(tx.Data) < 4 {
		return types.Fail(ErrInvalidCallData)
	}
	var selector [4]byte
	copy(selector[:], tx.Data[:4])
	switch selector {
	case SelectorCreateERC20TokenNetwork:
		//createERC20TokenNetwork(address _token_address) returns (address)
		return createTokenNetwork(ctx, tx)
	case SelectorTokenToTokenNetworks:
		values, err := RegistryABI.GetABI().Methods["token_to_token_networks"].Inputs.Unpack(tx.Data[4:])
		if err != nil {
			return types.Fail(ErrInvalidCallData)
		}
		tokenAddr := values[0].(common.Address)
		network := ctx.GetAddressAt(tx.To, tokenNetworkSlot(tokenAddr))
		return types.Success(RegistryABI.MustPackOutput("token_to_token_networks", network))
	case SelectorRegistryChainID:
		return types.Success(RegistryABI.MustPackOutput("chain_id", ctx.GetU256At(tx.To, SlotChainID).ToBig()))
	case SelectorRegistrySettlementTimeoutMin:
		return types.Success(RegistryABI.MustPackOutput("settlement_timeout_min", ctx.GetU256At(tx.To, SlotSettleTimeoutMin).ToBig()))
	case SelectorRegistrySettlementTimeoutMax:
		return types.Success(RegistryABI.MustPackOutput("settlement_timeout_max", ctx.GetU256At(tx.To, SlotSettleTimeoutMax).ToBig()))
	case SelectorTokenNetworkCreated:
		return types.Success(RegistryABI.MustPackOutput("token_network_created", ctx.GetU256At(tx.To, SlotTokenNetworkCreated).ToBig()))
	default:
		return types.Fail(ErrUnknownMethod)
	}
}

func createTokenNetwork(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		TokenAddress common.Address
	}
	if err := RegistryABI.UnpackInput("createERC20TokenNetwork", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	registry := tx.To
	if args.TokenAddress == (common.Address{}) {
		return types.Fail(ErrTokenAddressZero)
	}
	if ctx.GetContractKind(args.TokenAddress) == "" {
		return types.Fail(ErrTokenNotContract)
	}
	slot := tokenNetworkSlot(args.TokenAddress)
	if ctx.GetAddressAt(registry, slot) != (common.Address{}) {
		return types.Fail(ErrTokenAlreadyRegistered)
	}

	// contract creation consumes the creator's nonce
	nonce := ctx.GetNonce(registry)
	network := crypto.CreateAddress(registry, nonce)
	ctx.SetNonce(registry, nonce+1)
	Deploy(ctx, network, args.TokenAddress, registry,
		ctx.GetU256At(registry, SlotChainID),
		ctx.GetU256At(registry, SlotSettleTimeoutMin).Uint64(),
		ctx.GetU256At(registry, SlotSettleTimeoutMax).Uint64())
	ctx.SetAddressAt(registry, slot, network)
	count := ctx.GetU256At(registry, SlotTokenNetworkCreated)
	ctx.SetU256At(registry, SlotTokenNetworkCreated, count.AddUint64(count, 1))

	ctx.AddLog(RegistryABI.MustBuildLog(registry, "TokenNetworkCreated", args.TokenAddress, network))
	return types.Success(RegistryABI.MustPackOutput("createERC20TokenNetwork", network))
}
