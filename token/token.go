package token

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
)

const Kind = "CustomToken"

var (
	ErrInvalidCallData       = errors.New("invalid call data")
	ErrUnknownMethod         = errors.New("unknown method")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrSupplyOverflow        = errors.New("total supply overflow")
	ErrTransferFailed        = errors.New("token transfer failed")
)

const (
	SlotName        = "name"
	SlotSymbol      = "symbol"
	SlotDecimals    = "decimals"
	SlotTotalSupply = "total_supply"
)

func balanceSlot(owner common.Address) string {
	return "b" + string(owner[:])
}

func allowanceSlot(owner, spender common.Address) string {
	return "a" + string(owner[:]) + string(spender[:])
}

// Deploy installs a token at addr. Anybody may mint it, which is what the test suites need.
func Deploy(ctx *types.Context, addr common.Address, name, symbol string, decimals uint8) {
	ctx.SetContractKind(addr, Kind)
	ctx.SetStorageAt(addr, SlotName, []byte(name))
	ctx.SetStorageAt(addr, SlotSymbol, []byte(symbol))
	ctx.SetStorageAt(addr, SlotDecimals, []byte{decimals})
}

// Mint credits target outside of any transaction, genesis allocations use it.
func Mint(ctx *types.Context, contract, target common.Address, num *uint256.Int) error {
	if status, outData := doMint(ctx, contract, target, num); status != types.StatusSuccess {
		return errors.New(string(outData))
	}
	return nil
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
	case SelectorMint:
		return mint(ctx, tx)
	case SelectorMintFor:
		return mintFor(ctx, tx)
	case SelectorTransfer:
		return transfer(ctx, tx)
	case SelectorTransferFrom:
		return transferFrom(ctx, tx)
	case SelectorApprove:
		return approve(ctx, tx)
	case SelectorBalanceOf:
		return balanceOf(ctx, tx)
	case SelectorAllowance:
		return allowance(ctx, tx)
	case SelectorTotalSupply:
		return types.Success(ABI.MustPackOutput("totalSupply", ctx.GetU256At(tx.To, SlotTotalSupply).ToBig()))
	case SelectorName:
		return types.Success(ABI.MustPackOutput("name", string(ctx.GetStorageAt(tx.To, SlotName))))
	case SelectorSymbol:
		return types.Success(ABI.MustPackOutput("symbol", string(ctx.GetStorageAt(tx.To, SlotSymbol))))
	case SelectorDecimals:
		var decimals uint8
		if bz := ctx.GetStorageAt(tx.To, SlotDecimals); len(bz) == 1 {
			decimals = bz[0]
		}
		return types.Success(ABI.MustPackOutput("decimals", decimals))
	default:
		return types.Fail(ErrUnknownMethod)
	}
}

func mint(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Num *big.Int
	}
	if err := ABI.UnpackInput("mint", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	return doMint(ctx, tx.To, tx.From, bigutils.FromABI(args.Num))
}

func mintFor(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Num    *big.Int
		Target common.Address
	}
	if err := ABI.UnpackInput("mintFor", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	return doMint(ctx, tx.To, args.Target, bigutils.FromABI(args.Num))
}

func doMint(ctx *types.Context, contract, target common.Address, num *uint256.Int) (int, []byte) {
	supply, overflow := uint256.NewInt(0).AddOverflow(ctx.GetU256At(contract, SlotTotalSupply), num)
	if overflow {
		return types.Fail(ErrSupplyOverflow)
	}
	// balances never exceed the supply
	balance := uint256.NewInt(0).Add(ctx.GetU256At(contract, balanceSlot(target)), num)
	ctx.SetU256At(contract, SlotTotalSupply, supply)
	ctx.SetU256At(contract, balanceSlot(target), balance)
	ctx.AddLog(ABI.MustBuildLog(contract, "Transfer", common.Address{}, target, num.ToBig()))
	return types.Success(nil)
}

func move(ctx *types.Context, contract, from, to common.Address, value *uint256.Int) error {
	fromBalance := ctx.GetU256At(contract, balanceSlot(from))
	if fromBalance.Lt(value) {
		return ErrInsufficientBalance
	}
	ctx.SetU256At(contract, balanceSlot(from), fromBalance.Sub(fromBalance, value))
	toBalance := ctx.GetU256At(contract, balanceSlot(to))
	ctx.SetU256At(contract, balanceSlot(to), toBalance.Add(toBalance, value))
	ctx.AddLog(ABI.MustBuildLog(contract, "Transfer", from, to, value.ToBig()))
	return nil
}

func transfer(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		To    common.Address
		Value *big.Int
	}
	if err := ABI.UnpackInput("transfer", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	if err := move(ctx, tx.To, tx.From, args.To, bigutils.FromABI(args.Value)); err != nil {
		return types.Fail(err)
	}
	return types.Success(ABI.MustPackOutput("transfer", true))
}

func transferFrom(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		From  common.Address
		To    common.Address
		Value *big.Int
	}
	if err := ABI.UnpackInput("transferFrom", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	value := bigutils.FromABI(args.Value)
	slot := allowanceSlot(args.From, tx.From)
	allowed := ctx.GetU256At(tx.To, slot)
	if allowed.Lt(value) {
		return types.Fail(ErrInsufficientAllowance)
	}
	if err := move(ctx, tx.To, args.From, args.To, value); err != nil {
		return types.Fail(err)
	}
	ctx.SetU256At(tx.To, slot, allowed.Sub(allowed, value))
	return types.Success(ABI.MustPackOutput("transferFrom", true))
}

func approve(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Spender common.Address
		Value   *big.Int
	}
	if err := ABI.UnpackInput("approve", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	ctx.SetU256At(tx.To, allowanceSlot(tx.From, args.Spender), bigutils.FromABI(args.Value))
	ctx.AddLog(ABI.MustBuildLog(tx.To, "Approval", tx.From, args.Spender, args.Value))
	return types.Success(ABI.MustPackOutput("approve", true))
}

func balanceOf(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Owner common.Address
	}
	if err := ABI.UnpackInput("balanceOf", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	balance := ctx.GetU256At(tx.To, balanceSlot(args.Owner))
	return types.Success(ABI.MustPackOutput("balanceOf", balance.ToBig()))
}

func allowance(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Owner   common.Address
		Spender common.Address
	}
	if err := ABI.UnpackInput("allowance", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	remaining := ctx.GetU256At(tx.To, allowanceSlot(args.Owner, args.Spender))
	return types.Success(ABI.MustPackOutput("allowance", remaining.ToBig()))
}
