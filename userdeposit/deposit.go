package userdeposit

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/token"
)

const Kind = "UserDeposit"

var (
	ErrInvalidCallData         = errors.New("invalid call data")
	ErrUnknownMethod           = errors.New("unknown method")
	ErrAlreadyInitialized      = errors.New("already initialized")
	ErrZeroMSC                 = errors.New("MS contract at address zero")
	ErrMSCNoCode               = errors.New("MS contract has no code")
	ErrDepositNotIncreasing    = errors.New("deposit not increasing")
	ErrUnknownCaller           = errors.New("unknown caller")
	ErrSelfTransfer            = errors.New("sender == receiver")
	ErrWithdrawingZero         = errors.New("withdrawing zero tokens")
	ErrWithdrawingTooMuch      = errors.New("withdrawing too much")
	ErrWithdrawingMoreThanPlan = errors.New("withdrawing more than planned")
	ErrWithdrawingTooEarly     = errors.New("withdrawing too early")
	ErrBalanceOverflow         = errors.New("balance overflow")
)

const (
	SlotToken         = "token"
	SlotMSC           = "msc_address"
	SlotWithdrawDelay = "withdraw_delay"
)

func balanceSlot(owner common.Address) string {
	return "b" + string(owner[:])
}

func totalDepositSlot(owner common.Address) string {
	return "t" + string(owner[:])
}

func planSlot(owner common.Address) string {
	return "w" + string(owner[:])
}

// Deploy installs a user deposit of 'tokenAddr'. It cannot pay rewards until init names
// the monitoring service contract.
func Deploy(ctx *types.Context, addr, tokenAddr common.Address, withdrawDelay uint64) {
	ctx.SetContractKind(addr, Kind)
	ctx.SetAddressAt(addr, SlotToken, tokenAddr)
	ctx.SetU256At(addr, SlotWithdrawDelay, uint256.NewInt(withdrawDelay))
}

func LoadWithdrawPlan(ctx *types.Context, udc, owner common.Address) *WithdrawPlan {
	plan := &WithdrawPlan{}
	bz := ctx.GetStorageAt(udc, planSlot(owner))
	if len(bz) == 0 {
		return plan
	}
	if _, err := plan.UnmarshalMsg(bz); err != nil {
		panic(err)
	}
	return plan
}

func saveWithdrawPlan(ctx *types.Context, udc, owner common.Address, plan *WithdrawPlan) {
	bz, err := plan.MarshalMsg(nil)
	if err != nil {
		panic(err)
	}
	ctx.SetStorageAt(udc, planSlot(owner), bz)
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
	case SelectorInit:
		//init(address _msc_address)
		return initMSC(ctx, tx)
	case SelectorDeposit:
		//deposit(address beneficiary, uint256 new_total_deposit)
		return deposit(ctx, block, tx)
	case SelectorTransfer:
		//transfer(address sender, address receiver, uint256 amount) returns (bool)
		return transfer(ctx, tx)
	case SelectorPlanWithdraw:
		return planWithdraw(ctx, block, tx)
	case SelectorWithdraw:
		return withdraw(ctx, block, tx)
	case SelectorBalances:
		return viewU256(ctx, tx, "balances", balanceSlot)
	case SelectorTotalDeposit:
		return viewU256(ctx, tx, "total_deposit", totalDepositSlot)
	case SelectorEffectiveBalance:
		return effectiveBalance(ctx, tx)
	case SelectorWithdrawPlans:
		return withdrawPlans(ctx, tx)
	case SelectorToken:
		return types.Success(ABI.MustPackOutput("token", ctx.GetAddressAt(tx.To, SlotToken)))
	case SelectorMscAddress:
		return types.Success(ABI.MustPackOutput("msc_address", ctx.GetAddressAt(tx.To, SlotMSC)))
	case SelectorWithdrawDelay:
		return types.Success(ABI.MustPackOutput("withdraw_delay", ctx.GetU256At(tx.To, SlotWithdrawDelay).ToBig()))
	default:
		return types.Fail(ErrUnknownMethod)
	}
}

func initMSC(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		MscAddress common.Address
	}
	if err := ABI.UnpackInput("init", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	if ctx.GetAddressAt(tx.To, SlotMSC) != (common.Address{}) {
		return types.Fail(ErrAlreadyInitialized)
	}
	if args.MscAddress == (common.Address{}) {
		return types.Fail(ErrZeroMSC)
	}
	if ctx.GetContractKind(args.MscAddress) == "" {
		return types.Fail(ErrMSCNoCode)
	}
	ctx.SetAddressAt(tx.To, SlotMSC, args.MscAddress)
	return types.Success(nil)
}

func deposit(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Beneficiary     common.Address
		NewTotalDeposit *big.Int
	}
	if err := ABI.UnpackInput("deposit", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	udc := tx.To
	newTotal := bigutils.FromABI(args.NewTotalDeposit)
	total := ctx.GetU256At(udc, totalDepositSlot(args.Beneficiary))
	if !newTotal.Gt(total) {
		return types.Fail(ErrDepositNotIncreasing)
	}
	added := uint256.NewInt(0).Sub(newTotal, total)
	balance, overflow := uint256.NewInt(0).AddOverflow(ctx.GetU256At(udc, balanceSlot(args.Beneficiary)), added)
	if overflow {
		return types.Fail(ErrBalanceOverflow)
	}
	ctx.SetU256At(udc, totalDepositSlot(args.Beneficiary), newTotal)
	ctx.SetU256At(udc, balanceSlot(args.Beneficiary), balance)

	tokenAddr := ctx.GetAddressAt(udc, SlotToken)
	if err := token.CallTransferFrom(ctx, block, udc, tokenAddr, tx.From, udc, added); err != nil {
		return types.Fail(err)
	}
	return types.Success(nil)
}

// transfer moves deposits between users on behalf of the monitoring service contract.
// An uncovered amount is not an error, the result is false.
func transfer(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Sender   common.Address
		Receiver common.Address
		Amount   *big.Int
	}
	if err := ABI.UnpackInput("transfer", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	udc := tx.To
	if msc := ctx.GetAddressAt(udc, SlotMSC); msc == (common.Address{}) || tx.From != msc {
		return types.Fail(ErrUnknownCaller)
	}
	if args.Sender == args.Receiver {
		return types.Fail(ErrSelfTransfer)
	}
	amount := bigutils.FromABI(args.Amount)
	senderBalance := ctx.GetU256At(udc, balanceSlot(args.Sender))
	if amount.IsZero() || senderBalance.Lt(amount) {
		return types.Success(ABI.MustPackOutput("transfer", false))
	}
	receiverBalance, overflow := uint256.NewInt(0).AddOverflow(ctx.GetU256At(udc, balanceSlot(args.Receiver)), amount)
	if overflow {
		return types.Fail(ErrBalanceOverflow)
	}
	senderBalance.Sub(senderBalance, amount)
	ctx.SetU256At(udc, balanceSlot(args.Sender), senderBalance)
	ctx.SetU256At(udc, balanceSlot(args.Receiver), receiverBalance)
	ctx.AddLog(ABI.MustBuildLog(udc, "BalanceReduced", args.Sender, senderBalance.ToBig()))
	return types.Success(ABI.MustPackOutput("transfer", true))
}

func planWithdraw(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Amount *big.Int
	}
	if err := ABI.UnpackInput("planWithdraw", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	amount := bigutils.FromABI(args.Amount)
	if amount.IsZero() {
		return types.Fail(ErrWithdrawingZero)
	}
	balance := ctx.GetU256At(tx.To, balanceSlot(tx.From))
	if balance.Lt(amount) {
		return types.Fail(ErrWithdrawingTooMuch)
	}
	delay := ctx.GetU256At(tx.To, SlotWithdrawDelay).Uint64()
	saveWithdrawPlan(ctx, tx.To, tx.From, &WithdrawPlan{
		Amount:        bigutils.U256ToSlice32(amount),
		WithdrawBlock: block.Number + delay,
	})
	planned := uint256.NewInt(0).Sub(balance, amount)
	ctx.AddLog(ABI.MustBuildLog(tx.To, "WithdrawPlanned", tx.From, planned.ToBig()))
	return types.Success(nil)
}

func withdraw(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Amount *big.Int
	}
	if err := ABI.UnpackInput("withdraw", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	udc := tx.To
	amount := bigutils.FromABI(args.Amount)
	plan := LoadWithdrawPlan(ctx, udc, tx.From)
	if amount.Gt(bigutils.U256FromSlice32(plan.Amount)) {
		return types.Fail(ErrWithdrawingMoreThanPlan)
	}
	if plan.WithdrawBlock > block.Number {
		return types.Fail(ErrWithdrawingTooEarly)
	}
	// rewards may have been paid from the balance since the plan was made
	balance := ctx.GetU256At(udc, balanceSlot(tx.From))
	withdrawable := amount
	if balance.Lt(withdrawable) {
		withdrawable = balance.Clone()
	}
	balance.Sub(balance, withdrawable)
	ctx.SetU256At(udc, balanceSlot(tx.From), balance)
	ctx.DeleteStorageAt(udc, planSlot(tx.From))
	ctx.AddLog(ABI.MustBuildLog(udc, "BalanceReduced", tx.From, balance.ToBig()))

	tokenAddr := ctx.GetAddressAt(udc, SlotToken)
	if err := token.CallTransfer(ctx, block, udc, tokenAddr, tx.From, withdrawable); err != nil {
		return types.Fail(err)
	}
	return types.Success(nil)
}

func unpackOwner(method string, data []byte) (common.Address, error) {
	values, err := ABI.GetABI().Methods[method].Inputs.Unpack(data)
	if err != nil || len(values) != 1 {
		return common.Address{}, ErrInvalidCallData
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, ErrInvalidCallData
	}
	return owner, nil
}

func viewU256(ctx *types.Context, tx *types.TxToRun, method string, slot func(common.Address) string) (int, []byte) {
	owner, err := unpackOwner(method, tx.Data[4:])
	if err != nil {
		return types.Fail(err)
	}
	return types.Success(ABI.MustPackOutput(method, ctx.GetU256At(tx.To, slot(owner)).ToBig()))
}

// EffectiveBalance is the balance not covered by a withdraw plan.
func EffectiveBalance(ctx *types.Context, udc, owner common.Address) *uint256.Int {
	balance := ctx.GetU256At(udc, balanceSlot(owner))
	planned := bigutils.U256FromSlice32(LoadWithdrawPlan(ctx, udc, owner).Amount)
	if planned.Gt(balance) {
		return uint256.NewInt(0)
	}
	return balance.Sub(balance, planned)
}

func effectiveBalance(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	owner, err := unpackOwner("effectiveBalance", tx.Data[4:])
	if err != nil {
		return types.Fail(err)
	}
	return types.Success(ABI.MustPackOutput("effectiveBalance", EffectiveBalance(ctx, tx.To, owner).ToBig()))
}

func withdrawPlans(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	owner, err := unpackOwner("withdraw_plans", tx.Data[4:])
	if err != nil {
		return types.Fail(err)
	}
	plan := LoadWithdrawPlan(ctx, tx.To, owner)
	return types.Success(ABI.MustPackOutput("withdraw_plans",
		bigutils.U256FromSlice32(plan.Amount).ToBig(), new(big.Int).SetUint64(plan.WithdrawBlock)))
}
