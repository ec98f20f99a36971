package watchtower

import (
	"encoding/json"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func newRequest(network string, channelID, nonce int64) *MonitorRequest {
	return &MonitorRequest{
		TokenNetwork:          common.HexToAddress(network),
		ChannelID:             (*hexutil.Big)(big.NewInt(channelID)),
		ClosingParticipant:    common.HexToAddress("0x0a"),
		NonClosingParticipant: common.HexToAddress("0x0b"),
		BalanceHash:           common.HexToHash("0xba"),
		Nonce:                 (*hexutil.Big)(big.NewInt(nonce)),
		ClosingSignature:      make([]byte, 65),
		NonClosingSignature:   make([]byte, 65),
		RewardAmount:          (*hexutil.Big)(big.NewInt(10)),
		RewardProofSignature:  make([]byte, 65),
	}
}

func TestPutKeepsHighestNonce(t *testing.T) {
	db, err := OpenDB("")
	require.NoError(t, err)
	defer db.Close()

	ok, err := db.Put(newRequest("0x01", 1, 5))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = db.Put(newRequest("0x01", 1, 5))
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = db.Put(newRequest("0x01", 1, 4))
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = db.Put(newRequest("0x01", 1, 6))
	require.NoError(t, err)
	require.True(t, ok)
	// another channel and another token network
	_, err = db.Put(newRequest("0x01", 2, 1))
	require.NoError(t, err)
	_, err = db.Put(newRequest("0x02", 1, 1))
	require.NoError(t, err)

	reqs, err := db.Requests()
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	require.Equal(t, int64(6), reqs[0].Nonce.ToInt().Int64())

	req, err := db.Get(common.HexToAddress("0x01"), uint256.NewInt(1), common.HexToAddress("0x0b"))
	require.NoError(t, err)
	require.Equal(t, int64(6), req.Nonce.ToInt().Int64())
	req, err = db.Get(common.HexToAddress("0x01"), uint256.NewInt(1), common.HexToAddress("0x0a"))
	require.NoError(t, err)
	require.Nil(t, req)

	require.NoError(t, db.Delete(reqs[0]))
	reqs, err = db.Requests()
	require.NoError(t, err)
	require.Len(t, reqs, 2)
}

func TestDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchtower")
	db, err := OpenDB(path)
	require.NoError(t, err)
	last, err := db.LastBlock()
	require.NoError(t, err)
	require.Zero(t, last)

	req := newRequest("0x01", 7, 3)
	req.SettleBlock, req.FirstAllowed, req.Monitored = 100, 60, true
	_, err = db.Put(req)
	require.NoError(t, err)
	require.NoError(t, db.SetLastBlock(42))
	require.NoError(t, db.Close())

	db, err = OpenDB(path)
	require.NoError(t, err)
	defer db.Close()
	last, err = db.LastBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(42), last)
	loaded, err := db.Get(req.TokenNetwork, uint256.NewInt(7), req.NonClosingParticipant)
	require.NoError(t, err)
	require.Equal(t, req.Key(), loaded.Key())
	require.Equal(t, req.BalanceHash, loaded.BalanceHash)
	require.Equal(t, req.ClosingParticipant, loaded.ClosingParticipant)
	require.Equal(t, []byte(req.ClosingSignature), []byte(loaded.ClosingSignature))
	require.Equal(t, int64(10), loaded.RewardAmount.ToInt().Int64())
	require.Equal(t, uint64(100), loaded.SettleBlock)
	require.Equal(t, uint64(60), loaded.FirstAllowed)
	require.True(t, loaded.Monitored)
}

func TestMonitorRequestJSON(t *testing.T) {
	req := newRequest("0x01", 7, 3)
	req.Monitored = true
	bz, err := json.Marshal(req)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(bz, &fields))
	require.Equal(t, "0x7", fields["channel_identifier"])
	require.Equal(t, "0x3", fields["nonce"])
	require.Equal(t, "0x000000000000000000000000000000000000000b", fields["non_closing_participant"])
	require.NotContains(t, fields, "Monitored")
	require.Len(t, fields, 11)

	loaded := &MonitorRequest{}
	require.NoError(t, json.Unmarshal(bz, loaded))
	require.Equal(t, req.Key(), loaded.Key())
	require.False(t, loaded.Monitored)
}
