package monitoring_test

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/smartbch/watchtower/app"
	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/internal/testutils"
	"github.com/smartbch/watchtower/monitoring"
	"github.com/smartbch/watchtower/tokennetwork"
)

var (
	ms  = testutils.HexKeyToAddr(testutils.KeyMS)
	msc = app.MonitoringServiceAddress
	// the same contract with its internals exposed
	msi = app.MonitoringServiceInternalsAddress
)

func revert(err error) string {
	return "execution reverted: " + err.Error()
}

func findLog(t *testing.T, receipt *types.Receipt, contract common.Address, event string) map[string]interface{} {
	for _, l := range receipt.Logs {
		if l.Address != contract || len(l.Topics) == 0 || l.Topics[0] != monitoring.ABI.EventID(event) {
			continue
		}
		args, err := monitoring.ABI.UnpackLog(event, l)
		require.NoError(t, err)
		return args
	}
	require.Failf(t, "event not found", "%s of %s", event, contract.Hex())
	return nil
}

func rewardID(_app *testutils.TestApp, d *testutils.MonitorData) common.Hash {
	return monitoring.RewardIdentifier(bigutils.FromABI(d.ChannelID), _app.TokenNetwork)
}

func settle(_app *testutils.TestApp, d *testutils.MonitorData) {
	_app.MustSendTx(d.A, _app.TokenNetwork, tokennetwork.PackSettleChannel(d.ChannelID,
		tokennetwork.SettleData{Participant: d.B, Transferred: big.NewInt(10), Locked: big.NewInt(0)},
		tokennetwork.SettleData{Participant: d.A, Transferred: big.NewInt(20), Locked: big.NewInt(0)}))
}

func TestClaimReward(t *testing.T) {
	for _, withSettle := range []bool{true, false} {
		t.Run(fmt.Sprintf("withSettle=%v", withSettle), func(t *testing.T) {
			_app := testutils.CreateTestApp(t)
			d := _app.SetupMonitorData(msc, ms)

			// wait until the service is allowed to monitor
			_app.MineTo(d.FirstAllowed)
			_app.MustSendTx(ms, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount))

			claim := monitoring.PackClaimReward(d.ChannelID, _app.TokenNetwork, d.A, d.B)
			_, err := _app.Chain.Call(ms, msc, claim)
			require.EqualError(t, err, revert(monitoring.ErrChannelNotSettled))

			_app.Mine(4)
			if withSettle {
				settle(_app, d)
				_, state := _app.ChannelInfo(_app.TokenNetwork, d.ChannelID, d.A, d.B)
				require.Equal(t, tokennetwork.StateSettled, state)
			}

			receipt := _app.MustSendTx(ms, msc, claim)
			require.True(t, monitoring.ABI.MustUnpack("claimReward", receipt.OutData)[0].(bool))
			ev := findLog(t, receipt, msc, "RewardClaimed")
			require.Equal(t, ms, ev["ms_address"])
			require.Equal(t, int64(testutils.RewardAmount), ev["amount"].(*big.Int).Int64())
			require.Equal(t, [32]byte(rewardID(_app, d)), ev["reward_identifier"])

			require.Equal(t, int64(testutils.RewardAmount), _app.UDCBalance(ms))
			require.Equal(t, int64(0), _app.UDCBalance(d.B))

			// the record is gone, a second claim finds no reward sender
			_, err = _app.Chain.SendTx(ms, msc, claim)
			require.EqualError(t, err, revert(monitoring.ErrRewardSenderZero))
		})
	}
}

func TestClaimRewardWithoutMonitoring(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	// a channel of other participants which stays open
	A, C := testutils.HexKeyToAddr(testutils.KeyA), testutils.HexKeyToAddr(testutils.TestKeys[0])
	id := _app.CreateChannel(A, C)
	claim := monitoring.PackClaimReward(id, _app.TokenNetwork, A, C)
	_, err := _app.Chain.Call(ms, msc, claim)
	require.EqualError(t, err, revert(monitoring.ErrChannelNotClosed))

	// unknown channels are not closed either
	_, err = _app.Chain.Call(ms, msc, monitoring.PackClaimReward(big.NewInt(99), _app.TokenNetwork, A, C))
	require.EqualError(t, err, revert(monitoring.ErrChannelNotClosed))

	d := _app.SetupMonitorData(msc, ms)
	_app.MineTo(d.SettleBlockNumber + 1)
	_, err = _app.Chain.Call(ms, msc, monitoring.PackClaimReward(d.ChannelID, _app.TokenNetwork, d.A, d.B))
	require.EqualError(t, err, revert(monitoring.ErrRewardSenderZero))
}

func TestMonitor(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	d := _app.SetupMonitorData(msc, ms)

	// a changed reward amount breaks the reward proof
	_, err := _app.Chain.Call(ms, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount+1))
	require.EqualError(t, err, revert(monitoring.ErrBadRewardProof))

	// monitoring too early must fail
	require.Less(t, _app.BlockNumber()+1, d.FirstAllowed)
	_, err = _app.Chain.SendTx(ms, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount))
	require.EqualError(t, err, revert(monitoring.ErrNotAllowedToMonitor))

	_app.MineTo(d.FirstAllowed)
	receipt := _app.MustSendTx(ms, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount))

	ev := findLog(t, receipt, msc, "NewBalanceProofReceived")
	require.Equal(t, _app.TokenNetwork, ev["token_network_address"])
	require.Equal(t, d.ChannelID.Int64(), ev["channel_identifier"].(*big.Int).Int64())
	require.Equal(t, int64(testutils.RewardAmount), ev["reward_amount"].(*big.Int).Int64())
	require.Equal(t, d.BalanceProofB.Nonce.Uint64(), ev["nonce"].(*big.Int).Uint64())
	require.Equal(t, ms, ev["ms_address"])
	require.Equal(t, d.B, ev["raiden_node_address"])

	// the token network took the closing participant's newer balance proof
	out := _app.MustCall(d.A, _app.TokenNetwork, tokennetwork.PackGetChannelParticipantInfo(d.ChannelID, d.A, d.B))
	info := tokennetwork.ABI.MustUnpack("getChannelParticipantInfo", out)
	require.Equal(t, [32]byte(d.BalanceProofB.BalanceHash), info[2])
	require.Equal(t, uint64(2), info[3].(*big.Int).Uint64())

	out = _app.MustCall(ms, msc, monitoring.PackRewards(rewardID(_app, d)))
	reward := monitoring.ABI.MustUnpack("rewards", out)
	require.Equal(t, int64(testutils.RewardAmount), reward[0].(*big.Int).Int64())
	require.Equal(t, uint64(2), reward[1].(*big.Int).Uint64())
	require.Equal(t, d.B, reward[2])
	require.Equal(t, ms, reward[3])

	// the same balance proof cannot be submitted twice
	_, err = _app.Chain.SendTx(ms, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount))
	require.EqualError(t, err, revert(monitoring.ErrStaleNonce))
}

func TestMonitorOpenChannel(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	keyA, keyB := testutils.MustHexToPrivKey(testutils.KeyA), testutils.MustHexToPrivKey(testutils.KeyB)
	A, B := testutils.HexKeyToAddr(testutils.KeyA), testutils.HexKeyToAddr(testutils.KeyB)
	_app.RegisterService(ms)
	id := _app.CreateChannel(A, B)

	bp := _app.NewBalanceProof(id, 20, 2)
	sig, err := bp.Sign(keyA)
	require.NoError(t, err)
	nonClosingSig, err := bp.CounterSign(keyB, tokennetwork.MessageTypeBalanceProofUpdate, sig)
	require.NoError(t, err)
	rewardSig, err := (&monitoring.RewardProof{
		MonitoringServiceContract: msc,
		ChainID:                   _app.ChainID,
		TokenNetwork:              _app.TokenNetwork,
		NonClosingParticipant:     B,
		NonClosingSignature:       nonClosingSig,
		RewardAmount:              uint256.NewInt(testutils.RewardAmount),
	}).Sign(keyB)
	require.NoError(t, err)

	_, err = _app.Chain.Call(ms, msc, monitoring.PackMonitor(A, B, bp, sig, nonClosingSig,
		big.NewInt(testutils.RewardAmount), _app.TokenNetwork, rewardSig))
	require.EqualError(t, err, revert(monitoring.ErrChannelNotClosed))
}

func TestMonitorByUnregisteredService(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	d := _app.SetupMonitorData(msc, ms)
	_app.MineTo(d.FirstAllowed)

	_, err := _app.Chain.Call(d.B, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount))
	require.EqualError(t, err, revert(monitoring.ErrServiceNotRegistered))

	// the failure above is not spurious
	_app.MustSendTx(ms, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount))
}

func TestMonitorOnWrongTokenNetworkRegistry(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	d := _app.SetupMonitorData(msc, ms)
	network := _app.TokenNetworkInAnotherRegistry()
	require.NotEqual(t, _app.TokenNetwork, network)
	_app.MineTo(d.FirstAllowed)

	_, err := _app.Chain.SendTx(ms, msc, d.PackMonitor(network, testutils.RewardAmount))
	require.EqualError(t, err, revert(monitoring.ErrUnknownTokenNetwork))
}

func TestUpdateReward(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	d := _app.SetupMonitorData(msi, ms)
	id := rewardID(_app, d)

	updateWithNonce := func(nonce int64) error {
		_, err := _app.Chain.SendTx(ms, msi, monitoring.PackUpdateRewardPublic(_app.TokenNetwork, d.A, d.B,
			big.NewInt(testutils.RewardAmount), big.NewInt(nonce), ms, d.NonClosingSignature, d.RewardProofSignature))
		return err
	}
	rewardNonce := func() uint64 {
		return monitoring.UnpackUint("rewardNonce", _app.MustCall(ms, msi, monitoring.PackRewardNonce(id))).Uint64()
	}

	require.Equal(t, uint64(0), rewardNonce())
	require.NoError(t, updateWithNonce(2))
	require.Equal(t, uint64(2), rewardNonce())

	require.EqualError(t, updateWithNonce(2), revert(monitoring.ErrStaleNonce))
	require.EqualError(t, updateWithNonce(1), revert(monitoring.ErrStaleNonce))

	require.NoError(t, updateWithNonce(3))
	require.Equal(t, uint64(3), rewardNonce())

	// the internals are not exposed by the external contract
	_, err := _app.Chain.Call(ms, msc, monitoring.PackRewardNonce(id))
	require.EqualError(t, err, revert(monitoring.ErrUnknownMethod))
}

func TestFirstAllowedBlock(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	call := func(addresses [3]*big.Int, closedAtBlock int64, settleTimeout *big.Int) (*big.Int, error) {
		out, err := _app.Chain.Call(ms, msc, monitoring.PackFirstBlockAllowedToMonitor(big.NewInt(closedAtBlock), settleTimeout,
			common.BigToAddress(addresses[0]), common.BigToAddress(addresses[1]), common.BigToAddress(addresses[2])))
		if err != nil {
			return nil, err
		}
		res := monitoring.UnpackUint("firstBlockAllowedToMonitor", out)
		require.True(t, res.Cmp(big.NewInt(closedAtBlock)) > 0)
		require.True(t, res.Cmp(new(big.Int).Add(big.NewInt(closedAtBlock), settleTimeout)) <= 0)
		return res, nil
	}
	addrs := func(a, b, c int64) [3]*big.Int {
		return [3]*big.Int{big.NewInt(a), big.NewInt(b), big.NewInt(c)}
	}
	mustCall := func(addresses [3]*big.Int) int64 {
		res, err := call(addresses, 1000, big.NewInt(100))
		require.NoError(t, err)
		return res.Int64()
	}

	require.Equal(t, int64(1000+30+(1+2+3)), mustCall(addrs(1, 2, 3)))
	// modulo used for one address
	require.Equal(t, int64(1000+30+(100%50+2+3)), mustCall(addrs(100, 2, 3)))
	// modulo applied to the sum only
	require.Equal(t, int64(1000+30+(40+40+40)%50), mustCall(addrs(40, 40, 40)))

	// high addresses don't overflow
	maxAddress := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))
	sum := new(big.Int).Mul(maxAddress, big.NewInt(3))
	require.Equal(t, 1000+30+new(big.Int).Mod(sum, big.NewInt(50)).Int64(),
		mustCall([3]*big.Int{maxAddress, maxAddress, maxAddress}))

	// the highest settle timeout does not overflow
	maxSettleTimeout := new(big.Int).Div(bigutils.MaxU256.ToBig(), big.NewInt(100))
	maxSettleTimeout.Sub(maxSettleTimeout, big.NewInt(1))
	res, err := call(addrs(1, 2, 3), 1000, maxSettleTimeout)
	require.NoError(t, err)
	expected := new(big.Int).Div(new(big.Int).Mul(maxSettleTimeout, big.NewInt(30)), big.NewInt(100))
	expected.Add(expected, big.NewInt(1000+1+2+3))
	require.Equal(t, expected.String(), res.String())

	_, err = call(addrs(1, 2, 3), 1000, new(big.Int).Add(maxSettleTimeout, big.NewInt(1)))
	require.EqualError(t, err, revert(monitoring.ErrBigSettleTimeout))
}

func TestRecoverAddressFromRewardProof(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	d := _app.SetupMonitorData(msi, ms)
	out := _app.MustCall(ms, msi, monitoring.PackRecoverAddressFromRewardProofPublic(_app.ChainID.ToBig(),
		_app.TokenNetwork, d.B, d.NonClosingSignature, big.NewInt(testutils.RewardAmount), d.RewardProofSignature))
	require.Equal(t, d.B, monitoring.ABI.MustUnpack("recoverAddressFromRewardProofPublic", out)[0])

	// a different chain id recovers somebody else
	out = _app.MustCall(ms, msi, monitoring.PackRecoverAddressFromRewardProofPublic(big.NewInt(1),
		_app.TokenNetwork, d.B, d.NonClosingSignature, big.NewInt(testutils.RewardAmount), d.RewardProofSignature))
	require.NotEqual(t, d.B, monitoring.ABI.MustUnpack("recoverAddressFromRewardProofPublic", out)[0])
}

func TestViews(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	for method, expected := range map[string]common.Address{
		"token":                  app.TokenAddress,
		"service_registry":       app.ServiceRegistryAddress,
		"user_deposit":           app.UserDepositAddress,
		"token_network_registry": app.TokenNetworkRegistryAddress,
	} {
		out := _app.MustCall(ms, msc, monitoring.ABI.MustPack(method))
		require.Equal(t, expected, monitoring.ABI.MustUnpack(method, out)[0], method)
	}
}

func TestDeploy(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	nowhere := common.HexToAddress("0x0bad")
	addr := common.HexToAddress("0x2800")
	for _, tc := range []struct {
		token, registry, udc, tnRegistry common.Address
		err                              error
	}{
		{nowhere, app.ServiceRegistryAddress, app.UserDepositAddress, app.TokenNetworkRegistryAddress, monitoring.ErrTokenNoCode},
		{app.TokenAddress, nowhere, app.UserDepositAddress, app.TokenNetworkRegistryAddress, monitoring.ErrServiceRegistryNoCode},
		{app.TokenAddress, app.ServiceRegistryAddress, nowhere, app.TokenNetworkRegistryAddress, monitoring.ErrUDCNoCode},
		{app.TokenAddress, app.ServiceRegistryAddress, app.UserDepositAddress, nowhere, monitoring.ErrTNRegistryNoCode},
		// the token network registry stands in for a token here
		{app.TokenNetworkRegistryAddress, app.ServiceRegistryAddress, app.UserDepositAddress, app.TokenNetworkRegistryAddress, monitoring.ErrServiceRegistryToken},
	} {
		err := _app.Chain.ApplyGenesis(func(ctx *types.Context) error {
			return monitoring.Deploy(ctx, addr, tc.token, tc.registry, tc.udc, tc.tnRegistry)
		})
		require.Equal(t, tc.err, err)
	}
}

func TestMonitorLogPosition(t *testing.T) {
	_app := testutils.CreateTestApp(t)
	d := _app.SetupMonitorData(msc, ms)
	_app.MineTo(d.FirstAllowed)
	receipt := _app.MustSendTx(ms, msc, d.PackMonitor(_app.TokenNetwork, testutils.RewardAmount))
	var found []*gethtypes.Log
	for _, l := range receipt.Logs {
		require.Equal(t, receipt.BlockNumber, l.BlockNumber)
		require.Equal(t, receipt.TxHash, l.TxHash)
		if l.Address == msc {
			found = append(found, l)
		}
	}
	require.Len(t, found, 1)
	require.Equal(t, d.FirstAllowed+1, receipt.BlockNumber)
	require.Equal(t, common.BytesToHash(ms.Bytes()), found[0].Topics[2])
	require.Equal(t, common.BigToHash(uint256.NewInt(2).ToBig()), found[0].Topics[1])
}
