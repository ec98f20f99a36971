package api

import (
	"math/big"
	"testing"

	gethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	wtapi "github.com/smartbch/watchtower/api"
	"github.com/smartbch/watchtower/app"
	"github.com/smartbch/watchtower/chain"
	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/ethutils"
	"github.com/smartbch/watchtower/internal/testutils"
	"github.com/smartbch/watchtower/token"
)

func createEthAPI(t *testing.T, testKeys ...string) (*testutils.TestApp, *ethAPI) {
	_app := testutils.CreateTestApp(t, testKeys...)
	backend := wtapi.NewBackend(_app.App, nil)
	return _app, newEthAPI(backend, testKeys, log.NewNopLogger())
}

func bytesPtr(bz []byte) *hexutil.Bytes {
	return (*hexutil.Bytes)(&bz)
}

func TestAccounts(t *testing.T) {
	key1, addr1 := testutils.GenKeyAndAddr()
	key2, addr2 := testutils.GenKeyAndAddr()
	_, _api := createEthAPI(t, key1, key2, "not a key")

	addrs, err := _api.Accounts()
	require.NoError(t, err)
	require.ElementsMatch(t, testutils.KeysToAddrs(key1, key2), addrs)
	require.Contains(t, addrs, addr1)
	require.Contains(t, addrs, addr2)
	require.True(t, bytesLess(addrs[0][:], addrs[1][:]))
}

func TestChainId(t *testing.T) {
	_app, _api := createEthAPI(t)
	require.Equal(t, hexutil.Uint64(_app.ChainID.Uint64()), _api.ChainId())
	require.Equal(t, hexutil.Uint(63), _api.ProtocolVersion())
	require.Equal(t, "0x0", _api.GasPrice().String())
	syncing, err := _api.Syncing()
	require.NoError(t, err)
	require.Equal(t, false, syncing)
}

func TestBlockNum(t *testing.T) {
	_app, _api := createEthAPI(t)
	start := _app.BlockNumber()
	_app.Mine(3)
	num, err := _api.BlockNumber()
	require.NoError(t, err)
	require.Equal(t, hexutil.Uint64(start+3), num)
}

func TestCall(t *testing.T) {
	key, addr := testutils.GenKeyAndAddr()
	_, _api := createEthAPI(t, key)

	out, err := _api.Call(CallArgs{
		From: &addr,
		To:   &app.TokenAddress,
		Data: bytesPtr(token.PackBalanceOf(addr)),
	}, gethrpc.LatestBlockNumber)
	require.NoError(t, err)
	require.Equal(t, int64(testutils.DefaultInitBalance), token.UnpackBalance(out).Int64())

	// input wins and must agree with data
	out, err = _api.Call(CallArgs{
		To:    &app.TokenAddress,
		Input: bytesPtr(token.PackBalanceOf(addr)),
	}, gethrpc.LatestBlockNumber)
	require.NoError(t, err)
	require.Equal(t, int64(testutils.DefaultInitBalance), token.UnpackBalance(out).Int64())
	_, err = _api.Call(CallArgs{
		To:    &app.TokenAddress,
		Data:  bytesPtr(token.PackBalanceOf(addr)),
		Input: bytesPtr(token.PackTotalSupply()),
	}, gethrpc.LatestBlockNumber)
	require.Equal(t, errConflictingInputs, err)

	_, err = _api.Call(CallArgs{From: &addr}, gethrpc.LatestBlockNumber)
	require.Equal(t, errNoRecipient, err)

	_, err = _api.Call(CallArgs{
		To:   &app.TokenAddress,
		Data: bytesPtr([]byte{0x12, 0x34, 0x56, 0x78}),
	}, gethrpc.LatestBlockNumber)
	require.Error(t, err)
	require.IsType(t, &types.RevertError{}, err)
}

func TestEstimateGas(t *testing.T) {
	_, addr := testutils.GenKeyAndAddr()
	_, _api := createEthAPI(t)

	gas, err := _api.EstimateGas(CallArgs{
		To:   &app.TokenAddress,
		Data: bytesPtr(token.PackMint(big.NewInt(5))),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, hexutil.Uint64(ethutils.DefaultGasLimit), gas)

	_, err = _api.EstimateGas(CallArgs{
		From: &addr,
		To:   &app.TokenAddress,
		Data: bytesPtr(token.PackTransfer(gethcmn.Address{0x01}, big.NewInt(5))),
	}, nil)
	require.Error(t, err)
}

func TestSendTransaction(t *testing.T) {
	key, addr := testutils.GenKeyAndAddr()
	_app, _api := createEthAPI(t, key)

	txHash, err := _api.SendTransaction(SendTxArgs{
		From: addr,
		To:   &app.TokenAddress,
		Data: bytesPtr(token.PackMint(big.NewInt(100))),
	})
	require.NoError(t, err)

	resp, err := _api.GetTransactionReceipt(txHash)
	require.NoError(t, err)
	require.Equal(t, txHash, resp["transactionHash"])
	require.Equal(t, hexutil.Uint64(_app.BlockNumber()), resp["blockNumber"])
	require.Equal(t, addr, resp["from"])
	require.Equal(t, app.TokenAddress, resp["to"])
	require.Equal(t, hexutil.Uint64(gethtypes.ReceiptStatusSuccessful), resp["status"])
	logs := resp["logs"].([]*gethtypes.Log)
	require.Len(t, logs, 1)
	require.Equal(t, token.ABI.EventID("Transfer"), logs[0].Topics[0])
	require.True(t, gethtypes.BloomLookup(resp["logsBloom"].(gethtypes.Bloom), app.TokenAddress))

	require.Equal(t, int64(testutils.DefaultInitBalance+100), _app.TokenBalance(addr))
	nonce, err := _api.GetTransactionCount(addr, gethrpc.LatestBlockNumber)
	require.NoError(t, err)
	require.Equal(t, hexutil.Uint64(1), *nonce)

	// an explicit stale nonce is rejected
	stale := hexutil.Uint64(0)
	_, err = _api.SendTransaction(SendTxArgs{
		From:  addr,
		To:    &app.TokenAddress,
		Nonce: &stale,
		Data:  bytesPtr(token.PackMint(big.NewInt(100))),
	})
	require.Equal(t, chain.ErrNonceTooLow, err)
}

func TestSendTransactionErrors(t *testing.T) {
	key, addr := testutils.GenKeyAndAddr()
	_, other := testutils.GenKeyAndAddr()
	_, _api := createEthAPI(t, key)
	data := bytesPtr(token.PackMint(big.NewInt(1)))

	_, err := _api.SendTransaction(SendTxArgs{From: other, To: &app.TokenAddress, Data: data})
	require.EqualError(t, err, "unknown account: "+other.Hex())
	require.Equal(t, defaultErrorCode, err.(gethrpc.Error).ErrorCode())

	_, err = _api.SendTransaction(SendTxArgs{From: addr, Data: data})
	require.Equal(t, errNoRecipient, err)

	_, err = _api.SendTransaction(SendTxArgs{From: addr, To: &app.TokenAddress, Data: data,
		Value: (*hexutil.Big)(big.NewInt(1))})
	require.Equal(t, errNonZeroValue, err)

	// reverted transactions are not mined
	_, err = _api.SendTransaction(SendTxArgs{From: addr, To: &app.TokenAddress,
		Data: bytesPtr(token.PackTransfer(other, big.NewInt(int64(testutils.DefaultInitBalance+1))))})
	require.Error(t, err)
	nonce, _ := _api.GetTransactionCount(addr, gethrpc.LatestBlockNumber)
	require.Equal(t, hexutil.Uint64(0), *nonce)
}

func TestSendRawTransaction(t *testing.T) {
	key, addr := testutils.GenKeyAndAddr()
	_app, _api := createEthAPI(t)

	rawTx := testutils.MustMakeRawTx(key, _app.ChainID.ToBig(), 0, app.TokenAddress, token.PackMint(big.NewInt(7)))
	txHash, err := _api.SendRawTransaction(rawTx)
	require.NoError(t, err)
	resp, err := _api.GetTransactionReceipt(txHash)
	require.NoError(t, err)
	require.Equal(t, addr, resp["from"])
	require.Equal(t, int64(7), _app.TokenBalance(addr))

	// replay
	_, err = _api.SendRawTransaction(rawTx)
	require.Equal(t, chain.ErrNonceTooLow, err)

	// signed for another chain
	rawTx = testutils.MustMakeRawTx(key, big.NewInt(1), 1, app.TokenAddress, token.PackMint(big.NewInt(7)))
	_, err = _api.SendRawTransaction(rawTx)
	require.Error(t, err)

	_, err = _api.SendRawTransaction([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestGetTransactionReceiptNotFound(t *testing.T) {
	_, _api := createEthAPI(t)
	resp, err := _api.GetTransactionReceipt(gethcmn.Hash{0x12})
	require.NoError(t, err)
	require.Nil(t, resp)
}
