package api

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/watchtower"
)

type FilterService interface {
	LatestHeight() uint64
	FilterLogs(q ethereum.FilterQuery) []*gethtypes.Log
	SubscribeLogsEvent(ch chan<- []*gethtypes.Log) event.Subscription
}

type BackendService interface {
	FilterService

	// Blockchain API
	ChainId() *big.Int
	GetNonce(address common.Address) uint64
	Call(from, to common.Address, data []byte) ([]byte, error)
	GetReceipt(txHash common.Hash) (*types.Receipt, bool)

	// Transaction API
	SendRawTx(signedTx []byte) (common.Hash, error)
	SendTx(signedTx *gethtypes.Transaction) error

	// Testing API
	Mine(blocks uint64) error

	// Watchtower API, fails with ErrWatchtowerDisabled when no agent runs
	SubmitMonitorRequest(ctx context.Context, req *watchtower.MonitorRequest) error
	MonitorRequests() ([]*watchtower.MonitorRequest, error)
}
