package testutils

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcore "github.com/ethereum/go-ethereum/core"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/app"
	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/monitoring"
	"github.com/smartbch/watchtower/param"
	"github.com/smartbch/watchtower/servicereg"
	"github.com/smartbch/watchtower/token"
	"github.com/smartbch/watchtower/tokennetwork"
	"github.com/smartbch/watchtower/userdeposit"
	"github.com/smartbch/watchtower/watchtower"
)

const (
	DefaultInitBalance = uint64(10000000)

	TestSettleTimeoutMin = 5
	TestSettleTimeoutMax = 100000
	ServiceDeposit       = 5000
	RewardAmount         = 10
)

// AnotherRegistryAddress hosts a second token network registry which the monitoring
// service contracts do not know about.
var AnotherRegistryAddress = common.HexToAddress("0x0000000000000000000000000000000000002799")

var nopLogger = log.NewNopLogger()

type TestApp struct {
	*app.App
	t *testing.T
}

func TestAppConfig() *param.AppConfig {
	config := param.DefaultAppConfig()
	config.AppDataPath = ""
	config.WatchtowerDataPath = ""
	config.GenesisFilePath = ""
	config.SettleTimeoutMin = TestSettleTimeoutMin
	config.SettleTimeoutMax = TestSettleTimeoutMax
	config.ServiceDeposit = big.NewInt(ServiceDeposit).String()
	config.WithdrawDelay = 10
	return config
}

// CreateTestApp starts an in-memory app whose genesis gives every key DefaultInitBalance tokens.
func CreateTestApp(t *testing.T, keys ...string) *TestApp {
	config := TestAppConfig()
	_app, err := app.NewApp(config, nopLogger)
	require.NoError(t, err)
	alloc := KeysToGenesisAlloc(bigutils.NewU256(DefaultInitBalance), keys)
	require.NoError(t, _app.Chain.ApplyGenesis(func(ctx *types.Context) error {
		for addr, acc := range alloc {
			amt, _ := uint256.FromBig(acc.Balance)
			if err := token.Mint(ctx, app.TokenAddress, addr, amt); err != nil {
				return err
			}
		}
		return nil
	}))
	t.Cleanup(func() { _ = _app.Close() })
	return &TestApp{App: _app, t: t}
}

func KeysToGenesisAlloc(balance *uint256.Int, keys []string) gethcore.GenesisAlloc {
	alloc := gethcore.GenesisAlloc{}
	for _, k := range keys {
		addr := HexKeyToAddr(k)
		alloc[addr] = gethcore.GenesisAccount{Balance: balance.ToBig()}
	}
	return alloc
}

func (_app *TestApp) MustSendTx(from, to common.Address, data []byte) *types.Receipt {
	receipt, err := _app.Chain.SendTx(from, to, data)
	require.NoError(_app.t, err)
	return receipt
}

func (_app *TestApp) MustCall(from, to common.Address, data []byte) []byte {
	out, err := _app.Chain.Call(from, to, data)
	require.NoError(_app.t, err)
	return out
}

func (_app *TestApp) BlockNumber() uint64 {
	return _app.Chain.BlockNumber()
}

// MineTo mines empty blocks until the latest block is 'height'.
func (_app *TestApp) MineTo(height uint64) {
	if current := _app.Chain.BlockNumber(); height > current {
		require.NoError(_app.t, _app.Chain.Mine(height-current))
	}
}

func (_app *TestApp) Mine(n uint64) {
	require.NoError(_app.t, _app.Chain.Mine(n))
}

func (_app *TestApp) Mint(addr common.Address, amount int64) {
	_app.MustSendTx(addr, app.TokenAddress, token.PackMint(big.NewInt(amount)))
}

func (_app *TestApp) Approve(owner, spender common.Address, amount int64) {
	_app.MustSendTx(owner, app.TokenAddress, token.PackApprove(spender, big.NewInt(amount)))
}

func (_app *TestApp) TokenBalance(addr common.Address) int64 {
	out := _app.MustCall(addr, app.TokenAddress, token.PackBalanceOf(addr))
	return token.UnpackBalance(out).Int64()
}

// RegisterService stakes the service deposit for ms in the service registry.
func (_app *TestApp) RegisterService(ms common.Address) {
	_app.Mint(ms, 2*ServiceDeposit)
	_app.Approve(ms, app.ServiceRegistryAddress, ServiceDeposit)
	_app.MustSendTx(ms, app.ServiceRegistryAddress, servicereg.PackDeposit(big.NewInt(ServiceDeposit)))
}

// DepositToUDC adds amount to the user deposit of receiver.
func (_app *TestApp) DepositToUDC(receiver common.Address, amount int64) {
	total := _app.MustCall(receiver, app.UserDepositAddress, userdeposit.PackTotalDeposit(receiver))
	newTotal := new(big.Int).Add(userdeposit.UnpackUint("total_deposit", total), big.NewInt(amount))
	_app.Mint(receiver, amount)
	_app.Approve(receiver, app.UserDepositAddress, amount)
	_app.MustSendTx(receiver, app.UserDepositAddress, userdeposit.PackDeposit(receiver, newTotal))
}

func (_app *TestApp) UDCBalance(addr common.Address) int64 {
	out := _app.MustCall(addr, app.UserDepositAddress, userdeposit.PackBalances(addr))
	return userdeposit.UnpackUint("balances", out).Int64()
}

// CreateChannel opens a channel of the genesis token network with the minimal settle timeout.
func (_app *TestApp) CreateChannel(p1, p2 common.Address) *big.Int {
	receipt := _app.MustSendTx(p1, _app.TokenNetwork, tokennetwork.PackOpenChannel(p1, p2, TestSettleTimeoutMin))
	return tokennetwork.ABI.MustUnpack("openChannel", receipt.OutData)[0].(*big.Int)
}

func (_app *TestApp) ChannelInfo(network common.Address, id *big.Int, p1, p2 common.Address) (uint64, uint8) {
	out := _app.MustCall(p1, network, tokennetwork.PackGetChannelInfo(id, p1, p2))
	settleBlock, state := tokennetwork.UnpackChannelInfo(out)
	return settleBlock.Uint64(), state
}

// TokenNetworkInAnotherRegistry creates a token network of the genesis token which is not
// registered in the registry the monitoring services trust.
func (_app *TestApp) TokenNetworkInAnotherRegistry() common.Address {
	require.NoError(_app.t, _app.Chain.ApplyGenesis(func(ctx *types.Context) error {
		tokennetwork.DeployRegistry(ctx, AnotherRegistryAddress, _app.ChainID, TestSettleTimeoutMin, TestSettleTimeoutMax)
		return nil
	}))
	receipt := _app.MustSendTx(app.DeployerAddress, AnotherRegistryAddress, tokennetwork.PackCreateERC20TokenNetwork(app.TokenAddress))
	return tokennetwork.RegistryABI.MustUnpack("createERC20TokenNetwork", receipt.OutData)[0].(common.Address)
}

func (_app *TestApp) NewBalanceProof(id *big.Int, transferred int64, nonce uint64) *tokennetwork.BalanceProof {
	return &tokennetwork.BalanceProof{
		TokenNetwork: _app.TokenNetwork,
		ChainID:      _app.ChainID,
		ChannelID:    bigutils.FromABI(id),
		BalanceHash:  tokennetwork.BalanceHash(uint256.NewInt(uint64(transferred)), uint256.NewInt(0), common.Hash{}),
		Nonce:        uint256.NewInt(nonce),
	}
}

// MonitorData holds the arguments of monitor() for a channel of A and B which A closes.
// The monitoring service acts on behalf of B, the non-closing participant.
type MonitorData struct {
	A, B      common.Address
	ChannelID *big.Int

	// sent by B, used by A to close
	BalanceProofA *tokennetwork.BalanceProof
	// sent by A, countersigned by B for the update
	BalanceProofB         *tokennetwork.BalanceProof
	ClosingSignature      []byte
	NonClosingSignature   []byte
	RewardProofSignature  []byte
	MonitoringServiceAddr common.Address

	// known once A has closed the channel
	FirstAllowed      uint64
	SettleBlockNumber uint64

	closeSignature        []byte
	closeCounterSignature []byte
}

// PrepareMonitorData registers ms, lets B fund its reward and opens a fresh channel of A
// and B with the balance proofs both sides hold. msc is the monitoring service contract
// the reward proof is signed for.
func (_app *TestApp) PrepareMonitorData(msc, ms common.Address) *MonitorData {
	t := _app.t
	keyA, keyB := MustHexToPrivKey(KeyA), MustHexToPrivKey(KeyB)
	A, B := HexKeyToAddr(KeyA), HexKeyToAddr(KeyB)
	_app.RegisterService(ms)
	_app.DepositToUDC(B, RewardAmount)
	id := _app.CreateChannel(A, B)

	bpA := _app.NewBalanceProof(id, 10, 1)
	bpB := _app.NewBalanceProof(id, 20, 2)
	sigA, err := bpA.Sign(keyB)
	require.NoError(t, err)
	closingSig, err := bpA.CounterSign(keyA, tokennetwork.MessageTypeBalanceProof, sigA)
	require.NoError(t, err)
	sigB, err := bpB.Sign(keyA)
	require.NoError(t, err)
	nonClosingSig, err := bpB.CounterSign(keyB, tokennetwork.MessageTypeBalanceProofUpdate, sigB)
	require.NoError(t, err)
	rewardProof := &monitoring.RewardProof{
		MonitoringServiceContract: msc,
		ChainID:                   _app.ChainID,
		TokenNetwork:              _app.TokenNetwork,
		NonClosingParticipant:     B,
		NonClosingSignature:       nonClosingSig,
		RewardAmount:              uint256.NewInt(RewardAmount),
	}
	rewardSig, err := rewardProof.Sign(keyB)
	require.NoError(t, err)
	return &MonitorData{
		A:                     A,
		B:                     B,
		ChannelID:             id,
		BalanceProofA:         bpA,
		BalanceProofB:         bpB,
		ClosingSignature:      sigB,
		NonClosingSignature:   nonClosingSig,
		RewardProofSignature:  rewardSig,
		MonitoringServiceAddr: ms,
		closeSignature:        sigA,
		closeCounterSignature: closingSig,
	}
}

// CloseByA closes the channel with the older balance proof and fills in the settle
// block and the first block ms may call monitor() at.
func (_app *TestApp) CloseByA(msc common.Address, d *MonitorData) {
	_app.MustSendTx(d.A, _app.TokenNetwork, tokennetwork.PackCloseChannel(d.BalanceProofA, d.B, d.A,
		d.closeSignature, d.closeCounterSignature))
	settleBlock, _ := _app.ChannelInfo(_app.TokenNetwork, d.ChannelID, d.A, d.B)
	out := _app.MustCall(d.MonitoringServiceAddr, msc, monitoring.PackFirstBlockAllowedToMonitor(
		new(big.Int).SetUint64(settleBlock-TestSettleTimeoutMin), big.NewInt(TestSettleTimeoutMin),
		d.A, d.B, d.MonitoringServiceAddr))
	d.FirstAllowed = monitoring.UnpackUint("firstBlockAllowedToMonitor", out).Uint64()
	d.SettleBlockNumber = settleBlock
}

// SetupMonitorData is PrepareMonitorData followed by CloseByA.
func (_app *TestApp) SetupMonitorData(msc, ms common.Address) *MonitorData {
	d := _app.PrepareMonitorData(msc, ms)
	_app.CloseByA(msc, d)
	return d
}

// PackMonitor builds the monitor() call of the monitoring service with the given reward.
func (d *MonitorData) PackMonitor(network common.Address, rewardAmount int64) []byte {
	return monitoring.PackMonitor(d.A, d.B, d.BalanceProofB, d.ClosingSignature, d.NonClosingSignature,
		big.NewInt(rewardAmount), network, d.RewardProofSignature)
}

// MonitorRequest is what B sends to its watchtower.
func (d *MonitorData) MonitorRequest() *watchtower.MonitorRequest {
	bp := d.BalanceProofB
	return &watchtower.MonitorRequest{
		TokenNetwork:          bp.TokenNetwork,
		ChannelID:             (*hexutil.Big)(d.ChannelID),
		ClosingParticipant:    d.A,
		NonClosingParticipant: d.B,
		BalanceHash:           bp.BalanceHash,
		Nonce:                 (*hexutil.Big)(bp.Nonce.ToBig()),
		AdditionalHash:        bp.AdditionalHash,
		ClosingSignature:      d.ClosingSignature,
		NonClosingSignature:   d.NonClosingSignature,
		RewardAmount:          (*hexutil.Big)(big.NewInt(RewardAmount)),
		RewardProofSignature:  d.RewardProofSignature,
	}
}
