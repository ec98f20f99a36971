package api

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/smartbch/watchtower/app"
	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/internal/ethutils"
	"github.com/smartbch/watchtower/watchtower"
)

var ErrWatchtowerDisabled = errors.New("watchtower is not enabled on this node")

var _ BackendService = &apiBackend{}

type apiBackend struct {
	app *app.App
	// nil when the node runs without an agent
	wt *watchtower.Watchtower
}

func NewBackend(app *app.App, wt *watchtower.Watchtower) BackendService {
	return &apiBackend{
		app: app,
		wt:  wt,
	}
}

func (backend *apiBackend) ChainId() *big.Int {
	return backend.app.ChainID.ToBig()
}

func (backend *apiBackend) LatestHeight() uint64 {
	return backend.app.Chain.BlockNumber()
}

func (backend *apiBackend) GetNonce(address common.Address) uint64 {
	return backend.app.Chain.GetNonce(address)
}

func (backend *apiBackend) Call(from, to common.Address, data []byte) ([]byte, error) {
	return backend.app.Chain.Call(from, to, data)
}

func (backend *apiBackend) GetReceipt(txHash common.Hash) (*types.Receipt, bool) {
	return backend.app.Chain.GetReceipt(txHash)
}

func (backend *apiBackend) SendRawTx(signedTx []byte) (common.Hash, error) {
	tx, err := ethutils.DecodeTx(signedTx)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), backend.SendTx(tx)
}

func (backend *apiBackend) SendTx(signedTx *gethtypes.Transaction) error {
	_, err := backend.app.Chain.ApplySignedTx(signedTx)
	return err
}

func (backend *apiBackend) Mine(blocks uint64) error {
	return backend.app.Chain.Mine(blocks)
}

func (backend *apiBackend) FilterLogs(q ethereum.FilterQuery) []*gethtypes.Log {
	return backend.app.Chain.FilterLogs(q)
}

func (backend *apiBackend) SubscribeLogsEvent(ch chan<- []*gethtypes.Log) event.Subscription {
	return backend.app.Chain.SubscribeLogsEvent(ch)
}

func (backend *apiBackend) SubmitMonitorRequest(ctx context.Context, req *watchtower.MonitorRequest) error {
	if backend.wt == nil {
		return ErrWatchtowerDisabled
	}
	return backend.wt.Submit(ctx, req)
}

func (backend *apiBackend) MonitorRequests() ([]*watchtower.MonitorRequest, error) {
	if backend.wt == nil {
		return nil, ErrWatchtowerDisabled
	}
	return backend.wt.Requests()
}
