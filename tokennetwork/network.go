package tokennetwork

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/token"
)

const Kind = "TokenNetwork"

var (
	ErrInvalidCallData         = errors.New("invalid call data")
	ErrUnknownMethod           = errors.New("unknown method")
	ErrParticipantZero         = errors.New("participant address zero")
	ErrPartnerZero             = errors.New("partner address zero")
	ErrSameParticipants        = errors.New("participants must differ")
	ErrSettleTimeoutOutOfRange = errors.New("settle timeout out of range")
	ErrChannelExists           = errors.New("channel already exists")
	ErrChannelIDMismatch       = errors.New("channel id mismatch")
	ErrChannelNotOpen          = errors.New("channel not open")
	ErrChannelNotClosed        = errors.New("channel not closed")
	ErrDepositNotIncreasing    = errors.New("deposit did not increase")
	ErrInvalidClosingSig       = errors.New("Invalid closing sig")
	ErrInvalidNonClosingSig    = errors.New("Invalid non-closing sig")
	ErrZeroBalanceHash         = errors.New("balance hash should not be zero")
	ErrZeroNonce               = errors.New("nonce should not be zero")
	ErrSettleTimeoutExpired    = errors.New("channel settle timeout expired")
	ErrNotCloser               = errors.New("closing participant is not the closer")
	ErrNonceReused             = errors.New("nonce reused")
	ErrSettleTimeoutNotOver    = errors.New("settlement timeout not over")
	ErrBalanceHashMismatch     = errors.New("balance hash mismatch")
)

const (
	SlotToken          = "token"
	SlotRegistry       = "registry"
	SlotChannelCounter = "channel_counter"
)

func pairSlot(participant, partner common.Address) string {
	return "p" + string(ParticipantsHash(participant, partner).Bytes())
}

func channelSlot(channelID *uint256.Int) string {
	return "c" + string(bigutils.U256ToSlice32(channelID))
}

// locked amounts left in the contract by settlement
func lockedSlot(channelID *uint256.Int, participant common.Address) string {
	return "l" + string(bigutils.U256ToSlice32(channelID)) + string(participant[:])
}

// Deploy installs a token network of 'tokenAddr' at addr.
func Deploy(ctx *types.Context, addr, tokenAddr, registry common.Address, chainID *uint256.Int, settleTimeoutMin, settleTimeoutMax uint64) {
	ctx.SetContractKind(addr, Kind)
	ctx.SetAddressAt(addr, SlotToken, tokenAddr)
	ctx.SetAddressAt(addr, SlotRegistry, registry)
	ctx.SetU256At(addr, SlotChainID, chainID)
	ctx.SetU256At(addr, SlotSettleTimeoutMin, uint256.NewInt(settleTimeoutMin))
	ctx.SetU256At(addr, SlotSettleTimeoutMax, uint256.NewInt(settleTimeoutMax))
}

// LoadChannel returns nil for channels which were never opened or are already settled.
func LoadChannel(ctx *types.Context, network common.Address, channelID *uint256.Int) *Channel {
	bz := ctx.GetStorageAt(network, channelSlot(channelID))
	if len(bz) == 0 {
		return nil
	}
	ch := &Channel{}
	if _, err := ch.UnmarshalMsg(bz); err != nil {
		panic(err)
	}
	return ch
}

func saveChannel(ctx *types.Context, network common.Address, channelID *uint256.Int, ch *Channel) {
	bz, err := ch.MarshalMsg(nil)
	if err != nil {
		panic(err)
	}
	ctx.SetStorageAt(network, channelSlot(channelID), bz)
}

// ChannelIdentifier returns zero when the pair has no channel.
func ChannelIdentifier(ctx *types.Context, network, participant, partner common.Address) (*uint256.Int, error) {
	if participant == (common.Address{}) {
		return nil, ErrParticipantZero
	}
	if partner == (common.Address{}) {
		return nil, ErrPartnerZero
	}
	if participant == partner {
		return nil, ErrSameParticipants
	}
	return ctx.GetU256At(network, pairSlot(participant, partner)), nil
}

type Executor struct{}

var _ types.SystemContractExecutor = &Executor{}

func (_ *Executor) Kind() string {
	return Kind
}

func (_ *Executor) Execute(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (status int, outData []byte) {
	if len(tx.Data) < 4 {
		return types.Fail(ErrInvalidCallData)
	}
	var selector [4]byte
	copy(selector[:], tx.Data[:4])
	switch selector {
	case SelectorOpenChannel:
		return openChannel(ctx, tx)
	case SelectorSetTotalDeposit:
		return setTotalDeposit(ctx, block, tx)
	case SelectorCloseChannel:
		return closeChannel(ctx, block, tx)
	case SelectorUpdateNonClosingBalanceProof:
		return updateNonClosingBalanceProof(ctx, block, tx)
	case SelectorSettleChannel:
		return settleChannel(ctx, block, tx)
	case SelectorGetChannelIdentifier:
		return getChannelIdentifier(ctx, tx)
	case SelectorGetChannelInfo:
		return getChannelInfo(ctx, tx)
	case SelectorGetChannelParticipantInfo:
		return getChannelParticipantInfo(ctx, tx)
	case SelectorChannelCounter:
		return types.Success(ABI.MustPackOutput("channel_counter", ctx.GetU256At(tx.To, SlotChannelCounter).ToBig()))
	case SelectorChainID:
		return types.Success(ABI.MustPackOutput("chain_id", ctx.GetU256At(tx.To, SlotChainID).ToBig()))
	case SelectorSettlementTimeoutMin:
		return types.Success(ABI.MustPackOutput("settlement_timeout_min", ctx.GetU256At(tx.To, SlotSettleTimeoutMin).ToBig()))
	case SelectorSettlementTimeoutMax:
		return types.Success(ABI.MustPackOutput("settlement_timeout_max", ctx.GetU256At(tx.To, SlotSettleTimeoutMax).ToBig()))
	case SelectorToken:
		return types.Success(ABI.MustPackOutput("token", ctx.GetAddressAt(tx.To, SlotToken)))
	case SelectorTokenNetworkRegistry:
		return types.Success(ABI.MustPackOutput("token_network_registry", ctx.GetAddressAt(tx.To, SlotRegistry)))
	default:
		return types.Fail(ErrUnknownMethod)
	}
}

func openChannel(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Participant1  common.Address
		Participant2  common.Address
		SettleTimeout *big.Int
	}
	if err := ABI.UnpackInput("openChannel", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	network := tx.To
	settleTimeout := bigutils.FromABI(args.SettleTimeout)
	if settleTimeout.Lt(ctx.GetU256At(network, SlotSettleTimeoutMin)) ||
		settleTimeout.Gt(ctx.GetU256At(network, SlotSettleTimeoutMax)) {
		return types.Fail(ErrSettleTimeoutOutOfRange)
	}
	existing, err := ChannelIdentifier(ctx, network, args.Participant1, args.Participant2)
	if err != nil {
		return types.Fail(err)
	}
	if !existing.IsZero() {
		return types.Fail(ErrChannelExists)
	}

	counter := ctx.GetU256At(network, SlotChannelCounter)
	channelID := counter.AddUint64(counter, 1)
	ctx.SetU256At(network, SlotChannelCounter, channelID)
	ctx.SetU256At(network, pairSlot(args.Participant1, args.Participant2), channelID)
	saveChannel(ctx, network, channelID, &Channel{
		SettleBlockNumber: settleTimeout.Uint64(),
		State:             StateOpened,
		Participant1:      Participant{Address: args.Participant1.Bytes()},
		Participant2:      Participant{Address: args.Participant2.Bytes()},
	})
	ctx.AddLog(ABI.MustBuildLog(network, "ChannelOpened", channelID.ToBig(),
		args.Participant1, args.Participant2, args.SettleTimeout))
	return types.Success(ABI.MustPackOutput("openChannel", channelID.ToBig()))
}

// loadChannelOfPair checks that channelID is the channel of the two participants.
func loadChannelOfPair(ctx *types.Context, network common.Address, channelID *uint256.Int, participant, partner common.Address) (*Channel, error) {
	id, err := ChannelIdentifier(ctx, network, participant, partner)
	if err != nil {
		return nil, err
	}
	if !id.Eq(channelID) {
		return nil, ErrChannelIDMismatch
	}
	return LoadChannel(ctx, network, channelID), nil
}

func setTotalDeposit(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		ChannelIdentifier *big.Int
		Participant       common.Address
		TotalDeposit      *big.Int
		Partner           common.Address
	}
	if err := ABI.UnpackInput("setTotalDeposit", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	network := tx.To
	channelID := bigutils.FromABI(args.ChannelIdentifier)
	ch, err := loadChannelOfPair(ctx, network, channelID, args.Participant, args.Partner)
	if err != nil {
		return types.Fail(err)
	}
	if ch == nil || ch.State != StateOpened {
		return types.Fail(ErrChannelNotOpen)
	}
	p := ch.GetParticipant(args.Participant)
	deposit := bigutils.U256FromSlice32(p.Deposit)
	totalDeposit := bigutils.FromABI(args.TotalDeposit)
	if !totalDeposit.Gt(deposit) {
		return types.Fail(ErrDepositNotIncreasing)
	}
	added := uint256.NewInt(0).Sub(totalDeposit, deposit)
	p.Deposit = bigutils.U256ToSlice32(totalDeposit)
	saveChannel(ctx, network, channelID, ch)

	tokenAddr := ctx.GetAddressAt(network, SlotToken)
	if err := token.CallTransferFrom(ctx, block, network, tokenAddr, tx.From, network, added); err != nil {
		return types.Fail(err)
	}
	ctx.AddLog(ABI.MustBuildLog(network, "ChannelNewDeposit", args.ChannelIdentifier, args.Participant, args.TotalDeposit))
	return types.Success(nil)
}

type balanceProofArgs struct {
	ChannelIdentifier     *big.Int
	ClosingParticipant    common.Address
	NonClosingParticipant common.Address
	BalanceHash           [32]byte
	Nonce                 *big.Int
	AdditionalHash        [32]byte
	ClosingSignature      []byte
	NonClosingSignature   []byte
}

func (args *balanceProofArgs) balanceProof(ctx *types.Context, network common.Address) *BalanceProof {
	return &BalanceProof{
		TokenNetwork:   network,
		ChainID:        ctx.GetU256At(network, SlotChainID),
		ChannelID:      bigutils.FromABI(args.ChannelIdentifier),
		BalanceHash:    args.BalanceHash,
		Nonce:          bigutils.FromABI(args.Nonce),
		AdditionalHash: args.AdditionalHash,
	}
}

func updateBalanceProofData(p *Participant, nonce *uint256.Int, balanceHash common.Hash) error {
	if !nonce.Gt(bigutils.U256FromSlice32(p.Nonce)) {
		return ErrNonceReused
	}
	p.Nonce = bigutils.U256ToSlice32(nonce)
	p.BalanceHash = balanceHash.Bytes()
	return nil
}

// closeChannel is called with the closing participant's signature over the partner's
// balance proof, so anybody holding both signatures can close.
func closeChannel(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args balanceProofArgs
	if err := ABI.UnpackInput("closeChannel", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	network := tx.To
	bp := args.balanceProof(ctx, network)
	ch, err := loadChannelOfPair(ctx, network, bp.ChannelID, args.ClosingParticipant, args.NonClosingParticipant)
	if err != nil {
		return types.Fail(err)
	}
	if ch == nil || ch.State != StateOpened {
		return types.Fail(ErrChannelNotOpen)
	}
	ch.State = StateClosed
	ch.SettleBlockNumber += block.Number
	ch.GetParticipant(args.ClosingParticipant).IsCloser = true

	signer, err := bp.RecoverCounterSigner(MessageTypeBalanceProof, args.NonClosingSignature, args.ClosingSignature)
	if err != nil || signer != args.ClosingParticipant {
		return types.Fail(ErrInvalidClosingSig)
	}
	if !bp.Nonce.IsZero() {
		signer, err = bp.RecoverSigner(args.NonClosingSignature)
		if err != nil || signer != args.NonClosingParticipant {
			return types.Fail(ErrInvalidNonClosingSig)
		}
		if err := updateBalanceProofData(ch.GetParticipant(args.NonClosingParticipant), bp.Nonce, bp.BalanceHash); err != nil {
			return types.Fail(err)
		}
	}
	saveChannel(ctx, network, bp.ChannelID, ch)
	ctx.AddLog(ABI.MustBuildLog(network, "ChannelClosed", args.ChannelIdentifier,
		args.ClosingParticipant, args.Nonce, common.Hash(args.BalanceHash)))
	return types.Success(nil)
}

// updateNonClosingBalanceProof records the closing participant's latest balance proof.
// The non-closing participant's signature lets third parties such as monitoring services
// submit it.
func updateNonClosingBalanceProof(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args balanceProofArgs
	if err := ABI.UnpackInput("updateNonClosingBalanceProof", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	network := tx.To
	bp := args.balanceProof(ctx, network)
	if bp.BalanceHash == (common.Hash{}) {
		return types.Fail(ErrZeroBalanceHash)
	}
	if bp.Nonce.IsZero() {
		return types.Fail(ErrZeroNonce)
	}
	signer, err := bp.RecoverCounterSigner(MessageTypeBalanceProofUpdate, args.ClosingSignature, args.NonClosingSignature)
	if err != nil || signer != args.NonClosingParticipant {
		return types.Fail(ErrInvalidNonClosingSig)
	}
	signer, err = bp.RecoverSigner(args.ClosingSignature)
	if err != nil || signer != args.ClosingParticipant {
		return types.Fail(ErrInvalidClosingSig)
	}

	ch, err := loadChannelOfPair(ctx, network, bp.ChannelID, args.ClosingParticipant, args.NonClosingParticipant)
	if err != nil {
		return types.Fail(err)
	}
	if ch == nil || ch.State != StateClosed {
		return types.Fail(ErrChannelNotClosed)
	}
	if ch.SettleBlockNumber < block.Number {
		return types.Fail(ErrSettleTimeoutExpired)
	}
	closing := ch.GetParticipant(args.ClosingParticipant)
	if !closing.IsCloser {
		return types.Fail(ErrNotCloser)
	}
	if err := updateBalanceProofData(closing, bp.Nonce, bp.BalanceHash); err != nil {
		return types.Fail(err)
	}
	saveChannel(ctx, network, bp.ChannelID, ch)
	ctx.AddLog(ABI.MustBuildLog(network, "NonClosingBalanceProofUpdated", args.ChannelIdentifier,
		args.ClosingParticipant, args.Nonce, common.Hash(args.BalanceHash)))
	return types.Success(nil)
}

func verifyBalanceHashData(p *Participant, transferred, locked *uint256.Int, locksroot common.Hash) bool {
	stored := common.BytesToHash(p.BalanceHash)
	if stored == (common.Hash{}) && transferred.IsZero() && locked.IsZero() {
		return true
	}
	return stored == BalanceHash(transferred, locked, locksroot)
}

// settleAmounts splits the deposits. Each side receives its deposit plus what it was sent
// minus what it sent, clamped to the channel's total, and its own locked amount stays in
// the contract.
func settleAmounts(d1, t1, l1, d2, t2, l2 *uint256.Int) (a1, lock1, a2, lock2 *uint256.Int) {
	total := uint256.NewInt(0).Add(d1, d2)
	a1, overflow := uint256.NewInt(0).AddOverflow(d1, t2)
	if overflow {
		a1 = bigutils.MaxU256.Clone()
	}
	if a1.Lt(t1) {
		a1.Clear()
	} else {
		a1.Sub(a1, t1)
	}
	if a1.Gt(total) {
		a1.Set(total)
	}
	a2 = uint256.NewInt(0).Sub(total, a1)

	lock1 = l1.Clone()
	if lock1.Gt(a1) {
		lock1.Set(a1)
	}
	a1.Sub(a1, lock1)
	lock2 = l2.Clone()
	if lock2.Gt(a2) {
		lock2.Set(a2)
	}
	a2.Sub(a2, lock2)
	return
}

func settleChannel(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		ChannelIdentifier             *big.Int
		Participant1                  common.Address
		Participant1TransferredAmount *big.Int
		Participant1LockedAmount      *big.Int
		Participant1Locksroot         [32]byte
		Participant2                  common.Address
		Participant2TransferredAmount *big.Int
		Participant2LockedAmount      *big.Int
		Participant2Locksroot         [32]byte
	}
	if err := ABI.UnpackInput("settleChannel", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	network := tx.To
	channelID := bigutils.FromABI(args.ChannelIdentifier)
	ch, err := loadChannelOfPair(ctx, network, channelID, args.Participant1, args.Participant2)
	if err != nil {
		return types.Fail(err)
	}
	if ch == nil || ch.State != StateClosed {
		return types.Fail(ErrChannelNotClosed)
	}
	if ch.SettleBlockNumber >= block.Number {
		return types.Fail(ErrSettleTimeoutNotOver)
	}
	p1, p2 := ch.GetParticipant(args.Participant1), ch.GetParticipant(args.Participant2)
	t1, l1 := bigutils.FromABI(args.Participant1TransferredAmount), bigutils.FromABI(args.Participant1LockedAmount)
	t2, l2 := bigutils.FromABI(args.Participant2TransferredAmount), bigutils.FromABI(args.Participant2LockedAmount)
	if !verifyBalanceHashData(p1, t1, l1, args.Participant1Locksroot) ||
		!verifyBalanceHashData(p2, t2, l2, args.Participant2Locksroot) {
		return types.Fail(ErrBalanceHashMismatch)
	}

	a1, lock1, a2, lock2 := settleAmounts(bigutils.U256FromSlice32(p1.Deposit), t1, l1,
		bigutils.U256FromSlice32(p2.Deposit), t2, l2)
	ctx.DeleteStorageAt(network, channelSlot(channelID))
	ctx.DeleteStorageAt(network, pairSlot(args.Participant1, args.Participant2))
	ctx.SetU256At(network, lockedSlot(channelID, args.Participant1), lock1)
	ctx.SetU256At(network, lockedSlot(channelID, args.Participant2), lock2)

	ctx.AddLog(ABI.MustBuildLog(network, "ChannelSettled", args.ChannelIdentifier,
		args.Participant1, a1.ToBig(), args.Participant1Locksroot,
		args.Participant2, a2.ToBig(), args.Participant2Locksroot))

	tokenAddr := ctx.GetAddressAt(network, SlotToken)
	for _, payout := range []struct {
		to     common.Address
		amount *uint256.Int
	}{{args.Participant1, a1}, {args.Participant2, a2}} {
		if payout.amount.IsZero() {
			continue
		}
		if err := token.CallTransfer(ctx, block, network, tokenAddr, payout.to, payout.amount); err != nil {
			return types.Fail(err)
		}
	}
	return types.Success(nil)
}

func getChannelIdentifier(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Participant common.Address
		Partner     common.Address
	}
	if err := ABI.UnpackInput("getChannelIdentifier", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	id, err := ChannelIdentifier(ctx, tx.To, args.Participant, args.Partner)
	if err != nil {
		return types.Fail(err)
	}
	return types.Success(ABI.MustPackOutput("getChannelIdentifier", id.ToBig()))
}

// ChannelInfo reports settled channels, whose records are deleted, as Settled, or as
// Removed while locked amounts remain.
func ChannelInfo(ctx *types.Context, network common.Address, channelID *uint256.Int, participant1, participant2 common.Address) (settleBlockNumber uint64, state uint8) {
	ch := LoadChannel(ctx, network, channelID)
	if ch != nil {
		return ch.SettleBlockNumber, ch.State
	}
	counter := ctx.GetU256At(network, SlotChannelCounter)
	if channelID.IsZero() || channelID.Gt(counter) {
		return 0, StateNonExistent
	}
	if !ctx.GetU256At(network, lockedSlot(channelID, participant1)).IsZero() ||
		!ctx.GetU256At(network, lockedSlot(channelID, participant2)).IsZero() {
		return 0, StateRemoved
	}
	return 0, StateSettled
}

func getChannelInfo(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		ChannelIdentifier *big.Int
		Participant1      common.Address
		Participant2      common.Address
	}
	if err := ABI.UnpackInput("getChannelInfo", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	settleBlockNumber, state := ChannelInfo(ctx, tx.To, bigutils.FromABI(args.ChannelIdentifier), args.Participant1, args.Participant2)
	return types.Success(ABI.MustPackOutput("getChannelInfo", new(big.Int).SetUint64(settleBlockNumber), state))
}

func getChannelParticipantInfo(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		ChannelIdentifier *big.Int
		Participant       common.Address
		Partner           common.Address
	}
	if err := ABI.UnpackInput("getChannelParticipantInfo", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	channelID := bigutils.FromABI(args.ChannelIdentifier)
	p := &Participant{}
	if ch := LoadChannel(ctx, tx.To, channelID); ch != nil {
		if found := ch.GetParticipant(args.Participant); found != nil {
			p = found
		}
	}
	locked := ctx.GetU256At(tx.To, lockedSlot(channelID, args.Participant))
	return types.Success(ABI.MustPackOutput("getChannelParticipantInfo",
		bigutils.U256FromSlice32(p.Deposit).ToBig(), p.IsCloser,
		common.BytesToHash(p.BalanceHash), bigutils.U256FromSlice32(p.Nonce).ToBig(), locked.ToBig()))
}
