package servicereg_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/chain"
	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/servicereg"
	"github.com/smartbch/watchtower/token"
)

var (
	tokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000a0001")
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000a0002")
	ms           = common.HexToAddress("0x5e41")
)

const duration = 50

func newRegistryChain(t *testing.T) *chain.Chain {
	c := chain.NewChain(chain.NewMemStore(), uint256.NewInt(1), log.NewNopLogger())
	c.RegisterExecutor(&token.Executor{})
	c.RegisterExecutor(&servicereg.Executor{})
	require.NoError(t, c.ApplyGenesis(func(ctx *types.Context) error {
		token.Deploy(ctx, tokenAddr, "CustomToken", "TKN", 18)
		servicereg.Deploy(ctx, registryAddr, tokenAddr, uint256.NewInt(1000), duration)
		return nil
	}))
	_, err := c.SendTx(ms, tokenAddr, token.PackMint(big.NewInt(5000)))
	require.NoError(t, err)
	_, err = c.SendTx(ms, tokenAddr, token.PackApprove(registryAddr, big.NewInt(5000)))
	require.NoError(t, err)
	return c
}

func isRegistered(t *testing.T, c *chain.Chain, addr common.Address) bool {
	out, err := c.Call(addr, registryAddr, servicereg.PackHasValidRegistration(addr))
	require.NoError(t, err)
	return servicereg.ABI.MustUnpack("hasValidRegistration", out)[0].(bool)
}

func validTill(t *testing.T, c *chain.Chain, addr common.Address) uint64 {
	out, err := c.Call(addr, registryAddr, servicereg.PackServiceValidTill(addr))
	require.NoError(t, err)
	return servicereg.ABI.MustUnpack("service_valid_till", out)[0].(*big.Int).Uint64()
}

func TestDeposit(t *testing.T) {
	c := newRegistryChain(t)
	require.False(t, isRegistered(t, c, ms))
	out, err := c.Call(ms, registryAddr, servicereg.PackCurrentPrice())
	require.NoError(t, err)
	require.Equal(t, int64(1000), servicereg.ABI.MustUnpack("currentPrice", out)[0].(*big.Int).Int64())

	_, err = c.SendTx(ms, registryAddr, servicereg.PackDeposit(big.NewInt(999)))
	require.EqualError(t, err, "execution reverted: "+servicereg.ErrLimitTooLow.Error())

	receipt, err := c.SendTx(ms, registryAddr, servicereg.PackDeposit(big.NewInt(1000)))
	require.NoError(t, err)
	require.True(t, isRegistered(t, c, ms))
	require.Equal(t, receipt.BlockNumber+duration, validTill(t, c, ms))

	// token transfer then registration event
	require.Len(t, receipt.Logs, 2)
	ev, err := servicereg.ABI.UnpackLog("RegisteredService", receipt.Logs[1])
	require.NoError(t, err)
	require.Equal(t, ms, ev["service"])
	require.Equal(t, big.NewInt(1000), ev["deposit_amount"])
	require.Equal(t, registryAddr, ev["deposit_contract"])

	out, err = c.Call(ms, tokenAddr, token.PackBalanceOf(registryAddr))
	require.NoError(t, err)
	require.Equal(t, int64(1000), token.UnpackBalance(out).Int64())

	// renewing extends the running registration
	_, err = c.SendTx(ms, registryAddr, servicereg.PackDeposit(big.NewInt(1000)))
	require.NoError(t, err)
	require.Equal(t, receipt.BlockNumber+2*duration, validTill(t, c, ms))

	c.View(func(ctx *types.Context) {
		reg := servicereg.LoadRegistration(ctx, registryAddr, ms)
		require.Equal(t, uint64(2), reg.Count)
		require.Equal(t, uint64(2000), uint256.NewInt(0).SetBytes(reg.Deposit).Uint64())
	})
}

func TestRegistrationExpires(t *testing.T) {
	c := newRegistryChain(t)
	receipt, err := c.SendTx(ms, registryAddr, servicereg.PackDeposit(big.NewInt(1000)))
	require.NoError(t, err)
	// the pending block is receipt.BlockNumber + duration - 1 + 1
	require.NoError(t, c.Mine(duration-2))
	require.True(t, isRegistered(t, c, ms))
	require.NoError(t, c.Mine(1))
	require.Equal(t, receipt.BlockNumber+duration, c.BlockNumber()+1)
	require.False(t, isRegistered(t, c, ms))
}

func TestNotEnoughTokens(t *testing.T) {
	c := newRegistryChain(t)
	other := common.HexToAddress("0x07")
	_, err := c.SendTx(other, registryAddr, servicereg.PackDeposit(big.NewInt(1000)))
	require.EqualError(t, err, "execution reverted: "+token.ErrInsufficientAllowance.Error())
	require.False(t, isRegistered(t, c, other))
}

func TestSetURL(t *testing.T) {
	c := newRegistryChain(t)
	_, err := c.SendTx(ms, registryAddr, servicereg.PackSetURL("https://ms.example"))
	require.EqualError(t, err, "execution reverted: "+servicereg.ErrRegistrationExpired.Error())

	_, err = c.SendTx(ms, registryAddr, servicereg.PackDeposit(big.NewInt(1000)))
	require.NoError(t, err)
	_, err = c.SendTx(ms, registryAddr, servicereg.PackSetURL(""))
	require.EqualError(t, err, "execution reverted: "+servicereg.ErrEmptyURL.Error())
	_, err = c.SendTx(ms, registryAddr, servicereg.PackSetURL("https://ms.example"))
	require.NoError(t, err)

	out, err := c.Call(ms, registryAddr, servicereg.ABI.MustPack("urls", ms))
	require.NoError(t, err)
	require.Equal(t, "https://ms.example", servicereg.ABI.MustUnpack("urls", out)[0])
}
