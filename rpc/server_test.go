package rpc

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	gethcmn "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/api"
	"github.com/smartbch/watchtower/app"
	"github.com/smartbch/watchtower/internal/testutils"
	"github.com/smartbch/watchtower/rpc/client"
	"github.com/smartbch/watchtower/token"
	"github.com/smartbch/watchtower/tokennetwork"
	"github.com/smartbch/watchtower/watchtower"
)

func startServer(t *testing.T, backend api.BackendService, testKeys ...string) *Server {
	server := NewServer("tcp://127.0.0.1:0", "tcp://127.0.0.1:0", "*", 100,
		backend, log.NewNopLogger(), testKeys)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dial(t *testing.T, url string) *client.Client {
	c, err := client.Dial(url)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestSplitAndTrim(t *testing.T) {
	require.Equal(t, []string{}, splitAndTrim(""))
	require.Equal(t, []string{"*"}, splitAndTrim("*"))
	require.Equal(t, []string{"http://a.com", "http://b.com"}, splitAndTrim(" http://a.com, ,http://b.com "))
}

func TestServerHTTP(t *testing.T) {
	key, addr := testutils.GenKeyAndAddr()
	_app := testutils.CreateTestApp(t, key)
	server := startServer(t, api.NewBackend(_app.App, nil), key)
	url := "http://" + server.HTTPAddr().String()
	c := dial(t, url)
	rc, err := gethrpc.Dial(url)
	require.NoError(t, err)
	defer rc.Close()
	ctx := context.Background()

	chainID, err := c.ChainID(ctx)
	require.NoError(t, err)
	require.Equal(t, _app.ChainID.ToBig(), chainID)

	height, err := c.Mine(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, _app.BlockNumber(), height)
	num, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, height, num)

	var version string
	require.NoError(t, rc.CallContext(ctx, &version, "web3_clientVersion"))
	require.Contains(t, version, app.ClientID+"/"+app.GitTag)
	var accounts []gethcmn.Address
	require.NoError(t, rc.CallContext(ctx, &accounts, "eth_accounts"))
	require.Equal(t, []gethcmn.Address{addr}, accounts)

	var txHash gethcmn.Hash
	require.NoError(t, rc.CallContext(ctx, &txHash, "eth_sendTransaction", map[string]interface{}{
		"from": addr,
		"to":   app.TokenAddress,
		"data": "0x" + gethcmn.Bytes2Hex(token.PackMint(big.NewInt(9))),
	}))
	receipt, err := c.TransactionReceipt(ctx, txHash)
	require.NoError(t, err)
	require.Equal(t, gethtypes.ReceiptStatusSuccessful, receipt.Status)
	require.Len(t, receipt.Logs, 1)

	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &app.TokenAddress, Data: token.PackBalanceOf(addr)}, nil)
	require.NoError(t, err)
	require.Equal(t, int64(testutils.DefaultInitBalance+9), token.UnpackBalance(out).Int64())

	_, err = c.TransactionReceipt(ctx, gethcmn.Hash{0x01})
	require.Equal(t, ethereum.NotFound, err)

	// the node runs without a watchtower
	err = c.SubmitMonitorRequest(ctx, &watchtower.MonitorRequest{})
	require.EqualError(t, err, api.ErrWatchtowerDisabled.Error())
}

func TestServerWebSocket(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	server := startServer(t, api.NewBackend(_app.App, nil))
	c := dial(t, "ws://"+server.WSAddr().String())

	ch := make(chan gethtypes.Log, 1)
	sub, err := c.SubscribeFilterLogs(context.Background(),
		testutils.NewFilterBuilder().Addresses(app.TokenAddress).Build(), ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_app.Mint(gethcmn.Address{0x01}, 1)
	select {
	case l := <-ch:
		require.Equal(t, _app.BlockNumber(), l.BlockNumber)
	case err := <-sub.Err():
		t.Fatal(err)
	case <-time.After(5 * time.Second):
		t.Fatal("no log received")
	}
}

// The watchtower talks to the chain over JSON-RPC like it would to a remote node,
// raiden nodes reach it through a second endpoint.
func TestWatchtowerOverRPC(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	ctx := context.Background()
	chainServer := startServer(t, api.NewBackend(_app.App, nil))
	chainClient := dial(t, "http://"+chainServer.HTTPAddr().String())

	db, err := watchtower.OpenDB("")
	require.NoError(t, err)
	defer db.Close()
	wt, err := watchtower.NewWatchtower(ctx, chainClient.Client, db, app.MonitoringServiceAddress,
		testutils.MustHexToPrivKey(testutils.KeyMS), time.Second, log.NewNopLogger())
	require.NoError(t, err)
	wtServer := startServer(t, api.NewBackend(_app.App, wt))
	wtClient := dial(t, "http://"+wtServer.HTTPAddr().String())

	d := _app.PrepareMonitorData(app.MonitoringServiceAddress, wt.Address())
	require.NoError(t, wtClient.SubmitMonitorRequest(ctx, d.MonitorRequest()))
	reqs, err := wtClient.MonitorRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, d.ChannelID.String(), reqs[0].ChannelID.ToInt().String())

	_app.CloseByA(app.MonitoringServiceAddress, d)
	_app.MineTo(d.FirstAllowed - 1)
	require.NoError(t, wt.Process(ctx))
	require.Equal(t, d.FirstAllowed, _app.BlockNumber())
	out := _app.MustCall(d.A, _app.TokenNetwork, tokennetwork.PackGetChannelParticipantInfo(d.ChannelID, d.A, d.B))
	require.Equal(t, int64(2), tokennetwork.ABI.MustUnpack("getChannelParticipantInfo", out)[3].(*big.Int).Int64())

	_app.MineTo(d.SettleBlockNumber)
	require.NoError(t, wt.Process(ctx))
	reqs, err = wtClient.MonitorRequests(ctx)
	require.NoError(t, err)
	require.Empty(t, reqs)
	require.Equal(t, int64(testutils.RewardAmount), _app.UDCBalance(wt.Address()))
}
