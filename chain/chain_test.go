package chain_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/chain"
	"github.com/smartbch/watchtower/chain/types"
)

var (
	counterAddr = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	topicIncr   = common.HexToHash("0x01")
)

// counter increments a slot on every call and fails when asked to
type counter struct{}

func (counter) Kind() string { return "Counter" }

func (counter) Execute(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (int, []byte) {
	if len(tx.Data) > 0 && tx.Data[0] == 0xff {
		ctx.SetStorageAt(counterAddr, "n", []byte{0xff})
		return types.StatusFailed, []byte("boom")
	}
	bz := ctx.GetStorageAt(counterAddr, "n")
	n := byte(0)
	if len(bz) > 0 {
		n = bz[0]
	}
	n++
	ctx.SetStorageAt(counterAddr, "n", []byte{n})
	ctx.AddLog(&gethtypes.Log{Address: counterAddr, Topics: []common.Hash{topicIncr}})
	return types.StatusSuccess, []byte{n, byte(block.Number)}
}

func newTestChain(t *testing.T) *chain.Chain {
	c := chain.NewChain(chain.NewMemStore(), uint256.NewInt(337), log.NewNopLogger())
	c.RegisterExecutor(counter{})
	err := c.ApplyGenesis(func(ctx *types.Context) error {
		ctx.SetContractKind(counterAddr, "Counter")
		return nil
	})
	require.NoError(t, err)
	return c
}

func TestSendTxMinesOneBlock(t *testing.T) {
	c := newTestChain(t)
	sender := common.HexToAddress("0x0a")
	require.Equal(t, uint64(0), c.BlockNumber())

	receipt, err := c.SendTx(sender, counterAddr, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.BlockNumber())
	require.Equal(t, uint64(1), receipt.BlockNumber)
	require.Equal(t, []byte{1, 1}, receipt.OutData)
	require.Len(t, receipt.Logs, 1)
	require.Equal(t, receipt.TxHash, receipt.Logs[0].TxHash)
	require.Equal(t, uint64(1), c.GetNonce(sender))

	r, ok := c.GetReceipt(receipt.TxHash)
	require.True(t, ok)
	require.Equal(t, receipt.BlockNumber, r.BlockNumber)
	require.Equal(t, sender, r.From)
	require.Equal(t, counterAddr, r.To)
	require.Equal(t, receipt.OutData, r.OutData)
	require.Len(t, r.Logs, 1)
	require.Equal(t, receipt.Logs[0].Topics, r.Logs[0].Topics)
	require.Equal(t, receipt.TxHash, r.Logs[0].TxHash)

	_, ok = c.GetReceipt(common.HexToHash("0x1234"))
	require.False(t, ok)
}

func TestFailedTxIsDropped(t *testing.T) {
	c := newTestChain(t)
	sender := common.HexToAddress("0x0a")
	_, err := c.SendTx(sender, counterAddr, []byte{0xff})
	var revert *types.RevertError
	require.True(t, errors.As(err, &revert))
	require.Equal(t, "boom", revert.Reason)
	require.Equal(t, uint64(0), c.BlockNumber())
	require.Equal(t, uint64(0), c.GetNonce(sender))

	out, err := c.Call(sender, counterAddr, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 1}, out)
}

func TestCallDoesNotPersist(t *testing.T) {
	c := newTestChain(t)
	for i := 0; i < 3; i++ {
		out, err := c.Call(common.Address{}, counterAddr, nil)
		require.NoError(t, err)
		require.Equal(t, byte(1), out[0])
	}
	require.Equal(t, uint64(0), c.BlockNumber())
}

func TestNoContract(t *testing.T) {
	c := newTestChain(t)
	_, err := c.Call(common.Address{}, common.HexToAddress("0xdead"), nil)
	require.EqualError(t, err, "execution reverted: "+chain.ErrNoContract.Error())
}

func TestNonceCheck(t *testing.T) {
	c := newTestChain(t)
	sender := common.HexToAddress("0x0b")
	_, err := c.ApplyTx(types.NewTxToRun(sender, counterAddr, 1, nil))
	require.Equal(t, chain.ErrNonceTooHigh, err)
	_, err = c.ApplyTx(types.NewTxToRun(sender, counterAddr, 0, nil))
	require.NoError(t, err)
	_, err = c.ApplyTx(types.NewTxToRun(sender, counterAddr, 0, nil))
	require.Equal(t, chain.ErrNonceTooLow, err)
}

func TestMineAndFilterLogs(t *testing.T) {
	c := newTestChain(t)
	sender := common.HexToAddress("0x0a")
	_, err := c.SendTx(sender, counterAddr, nil) // block 1
	require.NoError(t, err)
	require.NoError(t, c.Mine(5))
	require.Equal(t, uint64(6), c.BlockNumber())
	_, err = c.SendTx(sender, counterAddr, nil) // block 7
	require.NoError(t, err)

	logs := c.FilterLogs(ethereum.FilterQuery{})
	require.Len(t, logs, 2)
	require.Equal(t, uint64(1), logs[0].BlockNumber)
	require.Equal(t, uint64(7), logs[1].BlockNumber)
	// log indexes count within a block
	require.Equal(t, uint(0), logs[0].Index)
	require.Equal(t, uint(0), logs[1].Index)

	logs = c.FilterLogs(ethereum.FilterQuery{FromBlock: big.NewInt(5), ToBlock: big.NewInt(3)})
	require.Len(t, logs, 0)

	logs = c.FilterLogs(ethereum.FilterQuery{FromBlock: big.NewInt(2)})
	require.Len(t, logs, 1)

	logs = c.FilterLogs(ethereum.FilterQuery{
		Addresses: []common.Address{counterAddr},
		Topics:    [][]common.Hash{{common.HexToHash("0x02")}},
	})
	require.Len(t, logs, 0)

	logs = c.FilterLogs(ethereum.FilterQuery{
		ToBlock: big.NewInt(6),
		Topics:  [][]common.Hash{{topicIncr}},
	})
	require.Len(t, logs, 1)
}

func TestHeightSurvivesRestart(t *testing.T) {
	store := chain.NewMemStore()
	c := chain.NewChain(store, uint256.NewInt(1), log.NewNopLogger())
	require.NoError(t, c.Mine(3))
	c2 := chain.NewChain(store, uint256.NewInt(1), log.NewNopLogger())
	require.Equal(t, uint64(3), c2.BlockNumber())
}

func TestLogsAndReceiptsSurviveRestart(t *testing.T) {
	store := chain.NewMemStore()
	c := chain.NewChain(store, uint256.NewInt(1), log.NewNopLogger())
	c.RegisterExecutor(counter{})
	require.NoError(t, c.ApplyGenesis(func(ctx *types.Context) error {
		ctx.SetContractKind(counterAddr, "Counter")
		return nil
	}))
	receipt, err := c.SendTx(common.HexToAddress("0x0a"), counterAddr, nil)
	require.NoError(t, err)
	require.NoError(t, c.Mine(2))
	_, err = c.SendTx(common.HexToAddress("0x0a"), counterAddr, nil)
	require.NoError(t, err)

	c2 := chain.NewChain(store, uint256.NewInt(1), log.NewNopLogger())
	require.Equal(t, uint64(4), c2.BlockNumber())
	r, ok := c2.GetReceipt(receipt.TxHash)
	require.True(t, ok)
	require.Equal(t, uint64(1), r.BlockNumber)
	logs := c2.FilterLogs(ethereum.FilterQuery{Topics: [][]common.Hash{{topicIncr}}})
	require.Len(t, logs, 2)
	require.Equal(t, receipt.TxHash, logs[0].TxHash)
	require.Equal(t, uint64(4), logs[1].BlockNumber)
}

func TestSubscribeLogsEvent(t *testing.T) {
	c := newTestChain(t)
	ch := make(chan []*gethtypes.Log, 4)
	sub := c.SubscribeLogsEvent(ch)
	defer sub.Unsubscribe()

	receipt, err := c.SendTx(common.HexToAddress("0x0a"), counterAddr, nil)
	require.NoError(t, err)
	logs := <-ch
	require.Len(t, logs, 1)
	require.Equal(t, receipt.TxHash, logs[0].TxHash)

	// failed transactions and empty blocks publish nothing
	_, err = c.SendTx(common.HexToAddress("0x0a"), counterAddr, []byte{0xff})
	require.Error(t, err)
	require.NoError(t, c.Mine(1))
	require.Len(t, ch, 0)
}
