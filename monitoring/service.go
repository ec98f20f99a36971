package monitoring

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/servicereg"
	"github.com/smartbch/watchtower/tokennetwork"
	"github.com/smartbch/watchtower/userdeposit"
)

const (
	Kind          = "MonitoringService"
	InternalsKind = "MonitoringServiceInternals"
)

var (
	ErrInvalidCallData      = errors.New("invalid call data")
	ErrUnknownMethod        = errors.New("unknown method")
	ErrServiceNotRegistered = errors.New("service not registered")
	ErrUnknownTokenNetwork  = errors.New("Unknown TokenNetwork")
	ErrBadRewardProof       = errors.New("Bad reward proof")
	ErrStaleNonce           = errors.New("stale nonce")
	ErrChannelNotClosed     = errors.New("channel not closed")
	ErrTooLowSettleBlock    = errors.New("too low settle block number")
	ErrNotAllowedToMonitor  = errors.New("not allowed to monitor")
	ErrChannelNotSettled    = errors.New("channel not settled yet")
	ErrRewardSenderZero     = errors.New("reward_sender is zero")
	ErrUDCNotTransferred    = errors.New("UDC did not transfer")

	ErrTokenNoCode           = errors.New("Token has no code")
	ErrServiceRegistryNoCode = errors.New("ServiceRegistry has no code")
	ErrUDCNoCode             = errors.New("UDC has no code")
	ErrTNRegistryNoCode      = errors.New("TokenNetworkRegistry has no code")
	ErrServiceRegistryToken  = errors.New("ServiceRegistry uses a different token")
	ErrUDCToken              = errors.New("UDC uses a different token")
)

const (
	SlotToken                = "token"
	SlotServiceRegistry      = "service_registry"
	SlotUserDeposit          = "user_deposit"
	SlotTokenNetworkRegistry = "token_network_registry"
)

func rewardSlot(rewardID common.Hash) string {
	return "r" + string(rewardID[:])
}

// Deploy installs a monitoring service contract at addr. The service registry and the
// user deposit contract must use tokenAddr.
func Deploy(ctx *types.Context, addr, tokenAddr, serviceRegistry, userDeposit, tokenNetworkRegistry common.Address) error {
	return deploy(ctx, Kind, addr, tokenAddr, serviceRegistry, userDeposit, tokenNetworkRegistry)
}

// DeployInternals installs a contract which also exposes updateRewardPublic,
// recoverAddressFromRewardProofPublic and rewardNonce.
func DeployInternals(ctx *types.Context, addr, tokenAddr, serviceRegistry, userDeposit, tokenNetworkRegistry common.Address) error {
	return deploy(ctx, InternalsKind, addr, tokenAddr, serviceRegistry, userDeposit, tokenNetworkRegistry)
}

func deploy(ctx *types.Context, kind string, addr, tokenAddr, serviceRegistry, userDeposit, tokenNetworkRegistry common.Address) error {
	for _, c := range []struct {
		addr common.Address
		err  error
	}{
		{tokenAddr, ErrTokenNoCode},
		{serviceRegistry, ErrServiceRegistryNoCode},
		{userDeposit, ErrUDCNoCode},
		{tokenNetworkRegistry, ErrTNRegistryNoCode},
	} {
		if ctx.GetContractKind(c.addr) == "" {
			return c.err
		}
	}
	if ctx.GetAddressAt(serviceRegistry, servicereg.SlotToken) != tokenAddr {
		return ErrServiceRegistryToken
	}
	if ctx.GetAddressAt(userDeposit, userdeposit.SlotToken) != tokenAddr {
		return ErrUDCToken
	}
	ctx.SetContractKind(addr, kind)
	ctx.SetAddressAt(addr, SlotToken, tokenAddr)
	ctx.SetAddressAt(addr, SlotServiceRegistry, serviceRegistry)
	ctx.SetAddressAt(addr, SlotUserDeposit, userDeposit)
	ctx.SetAddressAt(addr, SlotTokenNetworkRegistry, tokenNetworkRegistry)
	return nil
}

// LoadReward returns nil when no balance proof was submitted for rewardID, or its reward
// was already claimed.
func LoadReward(ctx *types.Context, msc common.Address, rewardID common.Hash) *Reward {
	bz := ctx.GetStorageAt(msc, rewardSlot(rewardID))
	if len(bz) == 0 {
		return nil
	}
	r := &Reward{}
	if _, err := r.UnmarshalMsg(bz); err != nil {
		panic(err)
	}
	return r
}

func saveReward(ctx *types.Context, msc common.Address, rewardID common.Hash, r *Reward) {
	bz, err := r.MarshalMsg(nil)
	if err != nil {
		panic(err)
	}
	ctx.SetStorageAt(msc, rewardSlot(rewardID), bz)
}

type Executor struct{}

var _ types.SystemContractExecutor = &Executor{}

func (_ *Executor) Kind() string {
	return Kind
}

func (_ *Executor) Execute(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (status int, outData []byte) {
	return execute(ctx, block, tx, false)
}

type InternalsExecutor struct{}

var _ types.SystemContractExecutor = &InternalsExecutor{}

func (_ *InternalsExecutor) Kind() string {
	return InternalsKind
}

func (_ *InternalsExecutor) Execute(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (status int, outData []byte) {
	return execute(ctx, block, tx, true)
}

func execute(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun, internals bool) (int, []byte) {
	if len(tx.Data) < 4 {
		return types.Fail(ErrInvalidCallData)
	}
	var selector [4]byte
	copy(selector[:], tx.Data[:4])
	switch selector {
	case SelectorMonitor:
		return monitor(ctx, block, tx)
	case SelectorClaimReward:
		return claimReward(ctx, block, tx)
	case SelectorFirstBlockAllowedToMonitor:
		return firstBlockAllowedToMonitor(tx)
	case SelectorRewards:
		return rewards(ctx, tx)
	case SelectorToken:
		return types.Success(ABI.MustPackOutput("token", ctx.GetAddressAt(tx.To, SlotToken)))
	case SelectorServiceRegistry:
		return types.Success(ABI.MustPackOutput("service_registry", ctx.GetAddressAt(tx.To, SlotServiceRegistry)))
	case SelectorUserDeposit:
		return types.Success(ABI.MustPackOutput("user_deposit", ctx.GetAddressAt(tx.To, SlotUserDeposit)))
	case SelectorTokenNetworkRegistry:
		return types.Success(ABI.MustPackOutput("token_network_registry", ctx.GetAddressAt(tx.To, SlotTokenNetworkRegistry)))
	}
	if internals {
		switch selector {
		case SelectorUpdateRewardPublic:
			return updateRewardPublic(ctx, block, tx)
		case SelectorRecoverAddressFromRewardProofPublic:
			return recoverAddressFromRewardProofPublic(tx)
		case SelectorRewardNonce:
			return rewardNonce(ctx, tx)
		}
	}
	return types.Fail(ErrUnknownMethod)
}

type rewardUpdate struct {
	tokenNetwork          common.Address
	closingParticipant    common.Address
	nonClosingParticipant common.Address
	rewardAmount          *uint256.Int
	nonce                 *uint256.Int
	monitoringService     common.Address
	nonClosingSignature   []byte
	rewardProofSignature  []byte
}

// updateReward records the reward offered for the newest balance proof of a channel and
// returns the channel's identifier.
func updateReward(ctx *types.Context, block *types.BlockInfo, msc common.Address, u *rewardUpdate) (*uint256.Int, error) {
	tokenAddr, err := tokennetwork.CallToken(ctx, block, msc, u.tokenNetwork)
	if err != nil {
		return nil, err
	}
	registry := ctx.GetAddressAt(msc, SlotTokenNetworkRegistry)
	registered, err := tokennetwork.CallTokenToTokenNetworks(ctx, block, msc, registry, tokenAddr)
	if err != nil {
		return nil, err
	}
	if registered != u.tokenNetwork {
		return nil, ErrUnknownTokenNetwork
	}
	channelID, err := tokennetwork.CallGetChannelIdentifier(ctx, block, msc, u.tokenNetwork, u.closingParticipant, u.nonClosingParticipant)
	if err != nil {
		return nil, err
	}
	chainID, err := tokennetwork.CallChainID(ctx, block, msc, u.tokenNetwork)
	if err != nil {
		return nil, err
	}
	proof := &RewardProof{
		MonitoringServiceContract: msc,
		ChainID:                   chainID,
		TokenNetwork:              u.tokenNetwork,
		NonClosingParticipant:     u.nonClosingParticipant,
		NonClosingSignature:       u.nonClosingSignature,
		RewardAmount:              u.rewardAmount,
	}
	signer, err := proof.RecoverSigner(u.rewardProofSignature)
	if err != nil || signer != u.nonClosingParticipant {
		return nil, ErrBadRewardProof
	}

	rewardID := RewardIdentifier(channelID, u.tokenNetwork)
	stored := uint256.NewInt(0)
	if r := LoadReward(ctx, msc, rewardID); r != nil {
		stored = bigutils.U256FromSlice32(r.Nonce)
	}
	if !stored.Lt(u.nonce) {
		return nil, ErrStaleNonce
	}
	saveReward(ctx, msc, rewardID, &Reward{
		RewardAmount:             bigutils.U256ToSlice32(u.rewardAmount),
		Nonce:                    bigutils.U256ToSlice32(u.nonce),
		RewardSenderAddress:      u.nonClosingParticipant.Bytes(),
		MonitoringServiceAddress: u.monitoringService.Bytes(),
	})
	return channelID, nil
}

// monitor submits the closing participant's balance proof on behalf of the non-closing
// participant, who pays the monitoring service through the reward proof.
func monitor(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		ClosingParticipant    common.Address
		NonClosingParticipant common.Address
		BalanceHash           [32]byte
		Nonce                 *big.Int
		AdditionalHash        [32]byte
		ClosingSignature      []byte
		NonClosingSignature   []byte
		RewardAmount          *big.Int
		TokenNetworkAddress   common.Address
		RewardProofSignature  []byte
	}
	if err := ABI.UnpackInput("monitor", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	msc := tx.To
	registered, err := servicereg.CallHasValidRegistration(ctx, block, msc,
		ctx.GetAddressAt(msc, SlotServiceRegistry), tx.From)
	if err != nil {
		return types.Fail(err)
	}
	if !registered {
		return types.Fail(ErrServiceNotRegistered)
	}

	nonce := bigutils.FromABI(args.Nonce)
	channelID, err := updateReward(ctx, block, msc, &rewardUpdate{
		tokenNetwork:          args.TokenNetworkAddress,
		closingParticipant:    args.ClosingParticipant,
		nonClosingParticipant: args.NonClosingParticipant,
		rewardAmount:          bigutils.FromABI(args.RewardAmount),
		nonce:                 nonce,
		monitoringService:     tx.From,
		nonClosingSignature:   args.NonClosingSignature,
		rewardProofSignature:  args.RewardProofSignature,
	})
	if err != nil {
		return types.Fail(err)
	}

	network := args.TokenNetworkAddress
	settleBlock, state, err := tokennetwork.CallGetChannelInfo(ctx, block, msc, network, channelID,
		args.ClosingParticipant, args.NonClosingParticipant)
	if err != nil {
		return types.Fail(err)
	}
	if state != tokennetwork.StateClosed {
		return types.Fail(ErrChannelNotClosed)
	}
	// the channel's own settle timeout is not known here, the minimum is assumed
	settleTimeout, err := tokennetwork.CallSettlementTimeoutMin(ctx, block, msc, network)
	if err != nil {
		return types.Fail(err)
	}
	if settleBlock.Lt(settleTimeout) {
		return types.Fail(ErrTooLowSettleBlock)
	}
	closedAt := uint256.NewInt(0).Sub(settleBlock, settleTimeout)
	firstAllowed, err := FirstBlockAllowedToMonitor(closedAt, settleTimeout,
		args.ClosingParticipant, args.NonClosingParticipant, tx.From)
	if err != nil {
		return types.Fail(err)
	}
	if firstAllowed.Gt(uint256.NewInt(block.Number)) {
		return types.Fail(ErrNotAllowedToMonitor)
	}

	bp := &tokennetwork.BalanceProof{
		TokenNetwork:   network,
		ChannelID:      channelID,
		BalanceHash:    args.BalanceHash,
		Nonce:          nonce,
		AdditionalHash: args.AdditionalHash,
	}
	err = tokennetwork.CallUpdateNonClosingBalanceProof(ctx, block, msc, network, bp,
		args.ClosingParticipant, args.NonClosingParticipant, args.ClosingSignature, args.NonClosingSignature)
	if err != nil {
		return types.Fail(err)
	}
	ctx.AddLog(ABI.MustBuildLog(msc, "NewBalanceProofReceived", network, channelID.ToBig(),
		args.RewardAmount, args.Nonce, tx.From, args.NonClosingParticipant))
	return types.Success(nil)
}

func claimReward(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		ChannelIdentifier     *big.Int
		TokenNetworkAddress   common.Address
		ClosingParticipant    common.Address
		NonClosingParticipant common.Address
	}
	if err := ABI.UnpackInput("claimReward", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	msc := tx.To
	channelID := bigutils.FromABI(args.ChannelIdentifier)
	rewardID := RewardIdentifier(channelID, args.TokenNetworkAddress)

	// settled channels are deleted, so their settle block reads as zero
	settleBlock, state, err := tokennetwork.CallGetChannelInfo(ctx, block, msc, args.TokenNetworkAddress, channelID,
		args.ClosingParticipant, args.NonClosingParticipant)
	if err != nil {
		return types.Fail(err)
	}
	if state != tokennetwork.StateClosed && state != tokennetwork.StateSettled && state != tokennetwork.StateRemoved {
		return types.Fail(ErrChannelNotClosed)
	}
	if !settleBlock.Lt(uint256.NewInt(block.Number)) {
		return types.Fail(ErrChannelNotSettled)
	}

	reward := LoadReward(ctx, msc, rewardID)
	if reward == nil || common.BytesToAddress(reward.RewardSenderAddress) == (common.Address{}) {
		return types.Fail(ErrRewardSenderZero)
	}
	ms := common.BytesToAddress(reward.MonitoringServiceAddress)
	amount := bigutils.U256FromSlice32(reward.RewardAmount)
	ok, err := userdeposit.CallTransfer(ctx, block, msc, ctx.GetAddressAt(msc, SlotUserDeposit),
		common.BytesToAddress(reward.RewardSenderAddress), ms, amount)
	if err != nil {
		return types.Fail(err)
	}
	if !ok {
		return types.Fail(ErrUDCNotTransferred)
	}
	ctx.AddLog(ABI.MustBuildLog(msc, "RewardClaimed", ms, amount.ToBig(), rewardID))
	ctx.DeleteStorageAt(msc, rewardSlot(rewardID))
	return types.Success(ABI.MustPackOutput("claimReward", true))
}

func firstBlockAllowedToMonitor(tx *types.TxToRun) (int, []byte) {
	var args struct {
		ClosedAtBlock            *big.Int
		SettleTimeout            *big.Int
		Participant1             common.Address
		Participant2             common.Address
		MonitoringServiceAddress common.Address
	}
	if err := ABI.UnpackInput("firstBlockAllowedToMonitor", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	res, err := FirstBlockAllowedToMonitor(bigutils.FromABI(args.ClosedAtBlock), bigutils.FromABI(args.SettleTimeout),
		args.Participant1, args.Participant2, args.MonitoringServiceAddress)
	if err != nil {
		return types.Fail(err)
	}
	return types.Success(ABI.MustPackOutput("firstBlockAllowedToMonitor", res.ToBig()))
}

func rewards(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	values, err := ABI.GetABI().Methods["rewards"].Inputs.Unpack(tx.Data[4:])
	if err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	reward := LoadReward(ctx, tx.To, values[0].([32]byte))
	if reward == nil {
		reward = &Reward{}
	}
	return types.Success(ABI.MustPackOutput("rewards",
		bigutils.U256FromSlice32(reward.RewardAmount).ToBig(),
		bigutils.U256FromSlice32(reward.Nonce).ToBig(),
		common.BytesToAddress(reward.RewardSenderAddress),
		common.BytesToAddress(reward.MonitoringServiceAddress)))
}

func updateRewardPublic(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		TokenNetworkAddress      common.Address
		ClosingParticipant       common.Address
		NonClosingParticipant    common.Address
		RewardAmount             *big.Int
		Nonce                    *big.Int
		MonitoringServiceAddress common.Address
		NonClosingSignature      []byte
		RewardProofSignature     []byte
	}
	if err := ABI.UnpackInput("updateRewardPublic", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	_, err := updateReward(ctx, block, tx.To, &rewardUpdate{
		tokenNetwork:          args.TokenNetworkAddress,
		closingParticipant:    args.ClosingParticipant,
		nonClosingParticipant: args.NonClosingParticipant,
		rewardAmount:          bigutils.FromABI(args.RewardAmount),
		nonce:                 bigutils.FromABI(args.Nonce),
		monitoringService:     args.MonitoringServiceAddress,
		nonClosingSignature:   args.NonClosingSignature,
		rewardProofSignature:  args.RewardProofSignature,
	})
	if err != nil {
		return types.Fail(err)
	}
	return types.Success(nil)
}

func recoverAddressFromRewardProofPublic(tx *types.TxToRun) (int, []byte) {
	var args struct {
		ChainId               *big.Int
		TokenNetworkAddress   common.Address
		NonClosingParticipant common.Address
		NonClosingSignature   []byte
		RewardAmount          *big.Int
		Signature             []byte
	}
	if err := ABI.UnpackInput("recoverAddressFromRewardProofPublic", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	proof := &RewardProof{
		MonitoringServiceContract: tx.To,
		ChainID:                   bigutils.FromABI(args.ChainId),
		TokenNetwork:              args.TokenNetworkAddress,
		NonClosingParticipant:     args.NonClosingParticipant,
		NonClosingSignature:       args.NonClosingSignature,
		RewardAmount:              bigutils.FromABI(args.RewardAmount),
	}
	signer, err := proof.RecoverSigner(args.Signature)
	if err != nil {
		return types.Fail(err)
	}
	return types.Success(ABI.MustPackOutput("recoverAddressFromRewardProofPublic", signer))
}

func rewardNonce(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		RewardIdentifier [32]byte
	}
	if err := ABI.UnpackInput("rewardNonce", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	nonce := uint256.NewInt(0)
	if reward := LoadReward(ctx, tx.To, args.RewardIdentifier); reward != nil {
		nonce = bigutils.U256FromSlice32(reward.Nonce)
	}
	return types.Success(ABI.MustPackOutput("rewardNonce", nonce.ToBig()))
}
