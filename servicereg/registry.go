package servicereg

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/token"
)

const Kind = "ServiceRegistry"

var (
	ErrInvalidCallData     = errors.New("invalid call data")
	ErrUnknownMethod       = errors.New("unknown method")
	ErrLimitTooLow         = errors.New("not enough limit")
	ErrRegistrationExpired = errors.New("registration expired")
	ErrEmptyURL            = errors.New("new url is empty string")
)

const (
	SlotToken    = "token"
	SlotPrice    = "price"
	SlotDuration = "duration"
)

func registrationSlot(service common.Address) string {
	return "r" + string(service[:])
}

func urlSlot(service common.Address) string {
	return "u" + string(service[:])
}

// Deploy installs a registry which charges 'price' tokens for every 'duration' blocks of registration.
func Deploy(ctx *types.Context, addr, tokenAddr common.Address, price *uint256.Int, duration uint64) {
	ctx.SetContractKind(addr, Kind)
	ctx.SetAddressAt(addr, SlotToken, tokenAddr)
	ctx.SetU256At(addr, SlotPrice, price)
	ctx.SetU256At(addr, SlotDuration, uint256.NewInt(duration))
}

func LoadRegistration(ctx *types.Context, registry, service common.Address) *Registration {
	reg := &Registration{}
	bz := ctx.GetStorageAt(registry, registrationSlot(service))
	if len(bz) == 0 {
		return reg
	}
	if _, err := reg.UnmarshalMsg(bz); err != nil {
		panic(err)
	}
	return reg
}

func SaveRegistration(ctx *types.Context, registry, service common.Address, reg *Registration) {
	bz, err := reg.MarshalMsg(nil)
	if err != nil {
		panic(err)
	}
	ctx.SetStorageAt(registry, registrationSlot(service), bz)
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
	case SelectorDeposit:
		//deposit(uint256 limit_amount)
		return deposit(ctx, block, tx)
	case SelectorHasValidRegistration:
		//hasValidRegistration(address _address) returns (bool)
		return hasValidRegistration(ctx, block, tx)
	case SelectorServiceValidTill:
		return serviceValidTill(ctx, tx)
	case SelectorSetURL:
		//setURL(string new_url)
		return setURL(ctx, block, tx)
	case SelectorURLs:
		return urls(ctx, tx)
	case SelectorCurrentPrice:
		return types.Success(ABI.MustPackOutput("currentPrice", ctx.GetU256At(tx.To, SlotPrice).ToBig()))
	case SelectorRegistrationDuration:
		return types.Success(ABI.MustPackOutput("registration_duration", ctx.GetU256At(tx.To, SlotDuration).ToBig()))
	case SelectorToken:
		return types.Success(ABI.MustPackOutput("token", ctx.GetAddressAt(tx.To, SlotToken)))
	default:
		return types.Fail(ErrUnknownMethod)
	}
}

func deposit(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		LimitAmount *big.Int
	}
	if err := ABI.UnpackInput("deposit", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	registry := tx.To
	price := ctx.GetU256At(registry, SlotPrice)
	if bigutils.FromABI(args.LimitAmount).Lt(price) {
		return types.Fail(ErrLimitTooLow)
	}
	tokenAddr := ctx.GetAddressAt(registry, SlotToken)
	if err := token.CallTransferFrom(ctx, block, registry, tokenAddr, tx.From, registry, price); err != nil {
		return types.Fail(err)
	}

	reg := LoadRegistration(ctx, registry, tx.From)
	// a renewal extends the current registration
	validFrom := reg.ValidTill
	if validFrom < block.Number {
		validFrom = block.Number
	}
	reg.ValidTill = validFrom + ctx.GetU256At(registry, SlotDuration).Uint64()
	total := bigutils.U256FromSlice32(reg.Deposit)
	reg.Deposit = bigutils.U256ToSlice32(total.Add(total, price))
	reg.Count++
	SaveRegistration(ctx, registry, tx.From, reg)

	ctx.AddLog(ABI.MustBuildLog(registry, "RegisteredService", tx.From,
		new(big.Int).SetUint64(reg.ValidTill), price.ToBig(), registry))
	return types.Success(nil)
}

func isValid(ctx *types.Context, block *types.BlockInfo, registry, service common.Address) bool {
	return LoadRegistration(ctx, registry, service).ValidTill > block.Number
}

func hasValidRegistration(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		Address common.Address
	}
	if err := ABI.UnpackInput("hasValidRegistration", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	return types.Success(ABI.MustPackOutput("hasValidRegistration", isValid(ctx, block, tx.To, args.Address)))
}

func unpackAddress(method string, data []byte) (common.Address, error) {
	values, err := ABI.GetABI().Methods[method].Inputs.Unpack(data)
	if err != nil || len(values) != 1 {
		return common.Address{}, ErrInvalidCallData
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, ErrInvalidCallData
	}
	return addr, nil
}

func serviceValidTill(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	service, err := unpackAddress("service_valid_till", tx.Data[4:])
	if err != nil {
		return types.Fail(err)
	}
	validTill := LoadRegistration(ctx, tx.To, service).ValidTill
	return types.Success(ABI.MustPackOutput("service_valid_till", new(big.Int).SetUint64(validTill)))
}

func setURL(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	var args struct {
		NewUrl string
	}
	if err := ABI.UnpackInput("setURL", tx.Data[4:], &args); err != nil {
		return types.Fail(ErrInvalidCallData)
	}
	if !isValid(ctx, block, tx.To, tx.From) {
		return types.Fail(ErrRegistrationExpired)
	}
	if len(args.NewUrl) == 0 {
		return types.Fail(ErrEmptyURL)
	}
	ctx.SetStorageAt(tx.To, urlSlot(tx.From), []byte(args.NewUrl))
	return types.Success(nil)
}

func urls(ctx *types.Context, tx *types.TxToRun) (int, []byte) {
	service, err := unpackAddress("urls", tx.Data[4:])
	if err != nil {
		return types.Fail(err)
	}
	return types.Success(ABI.MustPackOutput("urls", string(ctx.GetStorageAt(tx.To, urlSlot(service)))))
}
