package tokennetwork_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/chain"
	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/internal/testutils"
	"github.com/smartbch/watchtower/token"
	"github.com/smartbch/watchtower/tokennetwork"
)

const (
	chainID          = 61
	settleTimeoutMin = 5
	settleTimeoutMax = 100
	settleTimeout    = 10
)

var (
	tokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000a0001")
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000a0005")

	keyA, keyB = testutils.MustHexToPrivKey(testutils.KeyA), testutils.MustHexToPrivKey(testutils.KeyB)
	A, B       = testutils.HexKeyToAddr(testutils.KeyA), testutils.HexKeyToAddr(testutils.KeyB)
)

func newChain(t *testing.T) *chain.Chain {
	c := chain.NewChain(chain.NewMemStore(), uint256.NewInt(chainID), log.NewNopLogger())
	c.RegisterExecutor(&token.Executor{})
	c.RegisterExecutor(&tokennetwork.RegistryExecutor{})
	c.RegisterExecutor(&tokennetwork.Executor{})
	require.NoError(t, c.ApplyGenesis(func(ctx *types.Context) error {
		token.Deploy(ctx, tokenAddr, "CustomToken", "TKN", 18)
		tokennetwork.DeployRegistry(ctx, registryAddr, uint256.NewInt(chainID), settleTimeoutMin, settleTimeoutMax)
		return nil
	}))
	return c
}

// newNetworkChain returns a chain with a token network whose participants A and B can
// deposit up to 1000 tokens each.
func newNetworkChain(t *testing.T) (*chain.Chain, common.Address) {
	c := newChain(t)
	receipt, err := c.SendTx(A, registryAddr, tokennetwork.PackCreateERC20TokenNetwork(tokenAddr))
	require.NoError(t, err)
	network := tokennetwork.RegistryABI.MustUnpack("createERC20TokenNetwork", receipt.OutData)[0].(common.Address)
	for _, addr := range []common.Address{A, B} {
		_, err = c.SendTx(addr, tokenAddr, token.PackMint(big.NewInt(1000)))
		require.NoError(t, err)
		_, err = c.SendTx(addr, tokenAddr, token.PackApprove(network, big.NewInt(1000)))
		require.NoError(t, err)
	}
	return c, network
}

func openChannel(t *testing.T, c *chain.Chain, network common.Address) *big.Int {
	receipt, err := c.SendTx(A, network, tokennetwork.PackOpenChannel(A, B, settleTimeout))
	require.NoError(t, err)
	return tokennetwork.ABI.MustUnpack("openChannel", receipt.OutData)[0].(*big.Int)
}

func channelInfo(t *testing.T, c *chain.Chain, network common.Address, id *big.Int) (uint64, uint8) {
	out, err := c.Call(A, network, tokennetwork.PackGetChannelInfo(id, A, B))
	require.NoError(t, err)
	settleBlock, state := tokennetwork.UnpackChannelInfo(out)
	return settleBlock.Uint64(), state
}

func balanceOf(t *testing.T, c *chain.Chain, addr common.Address) int64 {
	out, err := c.Call(addr, tokenAddr, token.PackBalanceOf(addr))
	require.NoError(t, err)
	return token.UnpackBalance(out).Int64()
}

func newBalanceProof(network common.Address, id *big.Int, transferred, locked int64, nonce uint64) *tokennetwork.BalanceProof {
	return &tokennetwork.BalanceProof{
		TokenNetwork: network,
		ChainID:      uint256.NewInt(chainID),
		ChannelID:    bigutils.FromABI(id),
		BalanceHash:  tokennetwork.BalanceHash(uint256.NewInt(uint64(transferred)), uint256.NewInt(uint64(locked)), common.Hash{}),
		Nonce:        uint256.NewInt(nonce),
	}
}

func TestCreateTokenNetwork(t *testing.T) {
	c := newChain(t)
	_, err := c.SendTx(A, registryAddr, tokennetwork.PackCreateERC20TokenNetwork(common.Address{}))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrTokenAddressZero.Error())
	_, err = c.SendTx(A, registryAddr, tokennetwork.PackCreateERC20TokenNetwork(B))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrTokenNotContract.Error())

	receipt, err := c.SendTx(A, registryAddr, tokennetwork.PackCreateERC20TokenNetwork(tokenAddr))
	require.NoError(t, err)
	network := tokennetwork.RegistryABI.MustUnpack("createERC20TokenNetwork", receipt.OutData)[0].(common.Address)
	require.NotEqual(t, common.Address{}, network)
	ev, err := tokennetwork.RegistryABI.UnpackLog("TokenNetworkCreated", receipt.Logs[0])
	require.NoError(t, err)
	require.Equal(t, tokenAddr, ev["token_address"])
	require.Equal(t, network, ev["token_network_address"])

	_, err = c.SendTx(A, registryAddr, tokennetwork.PackCreateERC20TokenNetwork(tokenAddr))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrTokenAlreadyRegistered.Error())

	out, err := c.Call(A, registryAddr, tokennetwork.PackTokenToTokenNetworks(tokenAddr))
	require.NoError(t, err)
	require.Equal(t, network, tokennetwork.RegistryABI.MustUnpack("token_to_token_networks", out)[0])
	out, err = c.Call(A, registryAddr, tokennetwork.RegistryABI.MustPack("token_network_created"))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), tokennetwork.RegistryABI.MustUnpack("token_network_created", out)[0])

	// the new network inherits the registry's parameters
	for method, want := range map[string]interface{}{
		"token":                  tokenAddr,
		"token_network_registry": registryAddr,
		"chain_id":               big.NewInt(chainID),
		"settlement_timeout_min": big.NewInt(settleTimeoutMin),
		"settlement_timeout_max": big.NewInt(settleTimeoutMax),
	} {
		out, err := c.Call(A, network, tokennetwork.ABI.MustPack(method))
		require.NoError(t, err)
		require.Equal(t, want, tokennetwork.ABI.MustUnpack(method, out)[0], method)
	}
	out, err = c.Call(A, network, tokennetwork.ABI.MustPack("channel_counter"))
	require.NoError(t, err)
	require.Zero(t, tokennetwork.ABI.MustUnpack("channel_counter", out)[0].(*big.Int).Sign())
}

func TestOpenChannel(t *testing.T) {
	c, network := newNetworkChain(t)
	_, err := c.SendTx(A, network, tokennetwork.PackOpenChannel(A, B, settleTimeoutMin-1))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrSettleTimeoutOutOfRange.Error())
	_, err = c.SendTx(A, network, tokennetwork.PackOpenChannel(A, B, settleTimeoutMax+1))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrSettleTimeoutOutOfRange.Error())
	_, err = c.SendTx(A, network, tokennetwork.PackOpenChannel(A, A, settleTimeout))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrSameParticipants.Error())
	_, err = c.SendTx(A, network, tokennetwork.PackOpenChannel(common.Address{}, B, settleTimeout))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrParticipantZero.Error())

	receipt, err := c.SendTx(A, network, tokennetwork.PackOpenChannel(A, B, settleTimeout))
	require.NoError(t, err)
	ev, err := tokennetwork.ABI.UnpackLog("ChannelOpened", receipt.Logs[0])
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), ev["channel_identifier"])
	require.Equal(t, A, ev["participant1"])
	require.Equal(t, B, ev["participant2"])
	require.Equal(t, big.NewInt(settleTimeout), ev["settle_timeout"])

	// the pair is unordered
	_, err = c.SendTx(B, network, tokennetwork.PackOpenChannel(B, A, settleTimeout))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrChannelExists.Error())

	out, err := c.Call(A, network, tokennetwork.PackGetChannelIdentifier(B, A))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), tokennetwork.ABI.MustUnpack("getChannelIdentifier", out)[0])
	settleBlock, state := channelInfo(t, c, network, big.NewInt(1))
	require.Equal(t, uint64(settleTimeout), settleBlock)
	require.Equal(t, tokennetwork.StateOpened, state)
	_, state = channelInfo(t, c, network, big.NewInt(2))
	require.Equal(t, tokennetwork.StateNonExistent, state)

	id := openChannelBetween(t, c, network, A, common.HexToAddress("0xc0ffee"))
	require.Equal(t, big.NewInt(2), id)
}

func openChannelBetween(t *testing.T, c *chain.Chain, network, p1, p2 common.Address) *big.Int {
	receipt, err := c.SendTx(p1, network, tokennetwork.PackOpenChannel(p1, p2, settleTimeout))
	require.NoError(t, err)
	return tokennetwork.ABI.MustUnpack("openChannel", receipt.OutData)[0].(*big.Int)
}

func TestSetTotalDeposit(t *testing.T) {
	c, network := newNetworkChain(t)
	id := openChannel(t, c, network)

	_, err := c.SendTx(A, network, tokennetwork.PackSetTotalDeposit(big.NewInt(2), A, big.NewInt(100), B))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrChannelIDMismatch.Error())
	receipt, err := c.SendTx(A, network, tokennetwork.PackSetTotalDeposit(id, A, big.NewInt(100), B))
	require.NoError(t, err)
	ev, err := tokennetwork.ABI.UnpackLog("ChannelNewDeposit", receipt.Logs[1])
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), ev["total_deposit"])
	_, err = c.SendTx(A, network, tokennetwork.PackSetTotalDeposit(id, A, big.NewInt(100), B))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrDepositNotIncreasing.Error())
	_, err = c.SendTx(A, network, tokennetwork.PackSetTotalDeposit(id, A, big.NewInt(150), B))
	require.NoError(t, err)

	require.Equal(t, int64(850), balanceOf(t, c, A))
	require.Equal(t, int64(150), balanceOf(t, c, network))

	out, err := c.Call(A, network, tokennetwork.PackGetChannelParticipantInfo(id, A, B))
	require.NoError(t, err)
	info := tokennetwork.ABI.MustUnpack("getChannelParticipantInfo", out)
	require.Equal(t, big.NewInt(150), info[0])
	require.Equal(t, false, info[1])
}

func TestCloseUpdateSettle(t *testing.T) {
	c, network := newNetworkChain(t)
	id := openChannel(t, c, network)
	_, err := c.SendTx(A, network, tokennetwork.PackSetTotalDeposit(id, A, big.NewInt(100), B))
	require.NoError(t, err)
	_, err = c.SendTx(B, network, tokennetwork.PackSetTotalDeposit(id, B, big.NewInt(50), A))
	require.NoError(t, err)

	// B sent 10 to A, A closes with it
	bpFromB := newBalanceProof(network, id, 10, 0, 1)
	sigB, err := bpFromB.Sign(keyB)
	require.NoError(t, err)
	closingSigA, err := bpFromB.CounterSign(keyA, tokennetwork.MessageTypeBalanceProof, sigB)
	require.NoError(t, err)
	// A sent 30 to B with 5 still locked, B submits it after the close
	bpFromA := newBalanceProof(network, id, 30, 5, 2)
	sigA, err := bpFromA.Sign(keyA)
	require.NoError(t, err)
	nonClosingSigB, err := bpFromA.CounterSign(keyB, tokennetwork.MessageTypeBalanceProofUpdate, sigA)
	require.NoError(t, err)

	_, err = c.SendTx(B, network, tokennetwork.PackUpdateNonClosingBalanceProof(bpFromA, A, B, sigA, nonClosingSigB))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrChannelNotClosed.Error())
	// countersigned by the wrong key
	_, err = c.SendTx(A, network, tokennetwork.PackCloseChannel(bpFromB, B, A, sigB, sigB))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrInvalidClosingSig.Error())

	receipt, err := c.SendTx(A, network, tokennetwork.PackCloseChannel(bpFromB, B, A, sigB, closingSigA))
	require.NoError(t, err)
	closedAt := receipt.BlockNumber
	ev, err := tokennetwork.ABI.UnpackLog("ChannelClosed", receipt.Logs[0])
	require.NoError(t, err)
	require.Equal(t, A, ev["closing_participant"])
	require.Equal(t, big.NewInt(1), ev["nonce"])
	settleBlock, state := channelInfo(t, c, network, id)
	require.Equal(t, closedAt+settleTimeout, settleBlock)
	require.Equal(t, tokennetwork.StateClosed, state)

	_, err = c.SendTx(A, network, tokennetwork.PackCloseChannel(bpFromB, B, A, sigB, closingSigA))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrChannelNotOpen.Error())

	// the update needs B's countersignature of the update type
	wrongType, err := bpFromA.CounterSign(keyB, tokennetwork.MessageTypeBalanceProof, sigA)
	require.NoError(t, err)
	_, err = c.SendTx(B, network, tokennetwork.PackUpdateNonClosingBalanceProof(bpFromA, A, B, sigA, wrongType))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrInvalidNonClosingSig.Error())
	receipt, err = c.SendTx(B, network, tokennetwork.PackUpdateNonClosingBalanceProof(bpFromA, A, B, sigA, nonClosingSigB))
	require.NoError(t, err)
	ev, err = tokennetwork.ABI.UnpackLog("NonClosingBalanceProofUpdated", receipt.Logs[0])
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2), ev["nonce"])
	_, err = c.SendTx(B, network, tokennetwork.PackUpdateNonClosingBalanceProof(bpFromA, A, B, sigA, nonClosingSigB))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrNonceReused.Error())

	out, err := c.Call(A, network, tokennetwork.PackGetChannelParticipantInfo(id, A, B))
	require.NoError(t, err)
	info := tokennetwork.ABI.MustUnpack("getChannelParticipantInfo", out)
	require.Equal(t, true, info[1])
	require.Equal(t, [32]byte(bpFromA.BalanceHash), info[2])
	require.Equal(t, big.NewInt(2), info[3])

	settleData := func(transferredA, transferredB int64) []byte {
		return tokennetwork.PackSettleChannel(id,
			tokennetwork.SettleData{Participant: B, Transferred: big.NewInt(transferredB), Locked: big.NewInt(0)},
			tokennetwork.SettleData{Participant: A, Transferred: big.NewInt(transferredA), Locked: big.NewInt(5)})
	}
	_, err = c.SendTx(B, network, settleData(30, 10))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrSettleTimeoutNotOver.Error())

	require.NoError(t, c.Mine(closedAt+settleTimeout-c.BlockNumber()))
	_, err = c.SendTx(B, network, tokennetwork.PackUpdateNonClosingBalanceProof(bpFromA, A, B, sigA, nonClosingSigB))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrSettleTimeoutExpired.Error())
	_, err = c.SendTx(B, network, settleData(29, 10))
	require.EqualError(t, err, "execution reverted: "+tokennetwork.ErrBalanceHashMismatch.Error())

	receipt, err = c.SendTx(B, network, settleData(30, 10))
	require.NoError(t, err)
	ev, err = tokennetwork.ABI.UnpackLog("ChannelSettled", receipt.Logs[0])
	require.NoError(t, err)
	require.Equal(t, B, ev["participant1"])
	require.Equal(t, big.NewInt(70), ev["participant1_amount"])
	require.Equal(t, A, ev["participant2"])
	require.Equal(t, big.NewInt(75), ev["participant2_amount"])

	require.Equal(t, int64(900+75), balanceOf(t, c, A))
	require.Equal(t, int64(950+70), balanceOf(t, c, B))
	require.Equal(t, int64(5), balanceOf(t, c, network))

	// the locked amount keeps the channel around
	settleBlock, state = channelInfo(t, c, network, id)
	require.Equal(t, uint64(0), settleBlock)
	require.Equal(t, tokennetwork.StateRemoved, state)
	out, err = c.Call(A, network, tokennetwork.PackGetChannelParticipantInfo(id, A, B))
	require.NoError(t, err)
	info = tokennetwork.ABI.MustUnpack("getChannelParticipantInfo", out)
	require.Zero(t, info[0].(*big.Int).Sign())
	require.Equal(t, big.NewInt(5), info[4])

	// the pair can open a new channel
	require.Equal(t, big.NewInt(2), openChannel(t, c, network))
}

func TestSettleWithoutBalanceProofs(t *testing.T) {
	c, network := newNetworkChain(t)
	id := openChannel(t, c, network)
	_, err := c.SendTx(A, network, tokennetwork.PackSetTotalDeposit(id, A, big.NewInt(100), B))
	require.NoError(t, err)

	// a zero nonce closes without the partner's signature
	bp := newBalanceProof(network, id, 0, 0, 0)
	bp.BalanceHash = common.Hash{}
	closingSig, err := bp.CounterSign(keyA, tokennetwork.MessageTypeBalanceProof, nil)
	require.NoError(t, err)
	receipt, err := c.SendTx(A, network, tokennetwork.PackCloseChannel(bp, B, A, nil, closingSig))
	require.NoError(t, err)

	require.NoError(t, c.Mine(receipt.BlockNumber+settleTimeout-c.BlockNumber()))
	zero := tokennetwork.SettleData{Transferred: big.NewInt(0), Locked: big.NewInt(0)}
	p1, p2 := zero, zero
	p1.Participant, p2.Participant = A, B
	_, err = c.SendTx(B, network, tokennetwork.PackSettleChannel(id, p1, p2))
	require.NoError(t, err)

	require.Equal(t, int64(1000), balanceOf(t, c, A))
	_, state := channelInfo(t, c, network, id)
	require.Equal(t, tokennetwork.StateSettled, state)
}
