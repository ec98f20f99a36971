package watchtower

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/tendermint/tendermint/libs/log"
	tmservice "github.com/tendermint/tendermint/libs/service"

	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/internal/ethutils"
	"github.com/smartbch/watchtower/metrics"
	"github.com/smartbch/watchtower/monitoring"
	"github.com/smartbch/watchtower/tokennetwork"
)

var ErrStaleRequest = errors.New("a request with the same or a higher nonce is already stored")

const (
	actionMonitor = "monitor"
	actionClaim   = "claim"

	resultSuccess = "success"
	resultFailed  = "failed"
	resultExpired = "expired"
)

var (
	eventChannelClosed         = tokennetwork.ABI.EventID("ChannelClosed")
	eventBalanceProofUpdated   = tokennetwork.ABI.EventID("NonClosingBalanceProofUpdated")
	eventChannelSettled        = tokennetwork.ABI.EventID("ChannelSettled")
	packedSettlementTimeoutMin = tokennetwork.ABI.MustPack("settlement_timeout_min")
)

var _ tmservice.Service = (*Watchtower)(nil)

// Watchtower is a monitoring service agent. It keeps the monitor requests of channel
// participants, submits the stored balance proof when the partner closes the channel
// with an older one and claims the reward once the channel can be settled.
type Watchtower struct {
	tmservice.BaseService

	// serializes Submit and Process
	mtx sync.Mutex

	logger       log.Logger
	db           *DB
	backend      Backend
	key          *ecdsa.PrivateKey
	address      common.Address
	msc          common.Address
	chainID      *uint256.Int
	pollInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatchtower creates an agent sending transactions to msc, the monitoring service
// contract, from the account of key.
func NewWatchtower(ctx context.Context, backend Backend, db *DB, msc common.Address, key *ecdsa.PrivateKey,
	pollInterval time.Duration, logger log.Logger) (*Watchtower, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	w := &Watchtower{
		logger:       logger.With("module", "watchtower"),
		db:           db,
		backend:      backend,
		key:          key,
		address:      ethutils.PrivKeyToAddr(key),
		msc:          msc,
		chainID:      bigutils.FromABI(chainID),
		pollInterval: pollInterval,
	}
	w.BaseService = *tmservice.NewBaseService(w.logger, "Watchtower", w)
	return w, nil
}

// Address is the monitoring service address, it must be registered in the service registry.
func (w *Watchtower) Address() common.Address {
	return w.address
}

func (w *Watchtower) OnStart() error {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
	return nil
}

func (w *Watchtower) OnStop() {
	w.cancel()
	<-w.done
}

func (w *Watchtower) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		if err := w.Process(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("failed to process blocks", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Submit verifies and stores req. It replaces the stored request of the same channel
// side only when req has a higher nonce. A channel which is already closed gets
// scheduled at once.
func (w *Watchtower) Submit(ctx context.Context, req *MonitorRequest) error {
	if err := req.Verify(w.msc, w.chainID); err != nil {
		return err
	}
	req.SettleBlock, req.FirstAllowed, req.Monitored = 0, 0, false

	w.mtx.Lock()
	defer w.mtx.Unlock()
	stored, err := w.db.Put(req)
	if err != nil {
		return err
	}
	if !stored {
		return ErrStaleRequest
	}
	w.logger.Info("monitor request stored", "network", req.TokenNetwork.Hex(),
		"channel", req.ChannelID.String(), "nonce", req.Nonce.String())
	if err = w.checkClosed(ctx, req); err != nil {
		return err
	}
	return w.updateGauge()
}

func (w *Watchtower) checkClosed(ctx context.Context, req *MonitorRequest) error {
	out, err := w.call(ctx, req.TokenNetwork, tokennetwork.PackGetChannelInfo((*big.Int)(req.ChannelID),
		req.ClosingParticipant, req.NonClosingParticipant))
	if err != nil {
		return err
	}
	if _, state := tokennetwork.UnpackChannelInfo(out); state != tokennetwork.StateClosed {
		return nil
	}
	out, err = w.call(ctx, req.TokenNetwork, tokennetwork.PackGetChannelParticipantInfo((*big.Int)(req.ChannelID),
		req.ClosingParticipant, req.NonClosingParticipant))
	if err != nil {
		return err
	}
	closing := req.NonClosingParticipant
	if tokennetwork.ABI.MustUnpack("getChannelParticipantInfo", out)[1].(bool) {
		closing = req.ClosingParticipant
	}
	return w.onChannelClosed(ctx, req, closing)
}

// Requests returns the stored monitor requests.
func (w *Watchtower) Requests() ([]*MonitorRequest, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.db.Requests()
}

func (w *Watchtower) updateGauge() error {
	reqs, err := w.db.Requests()
	if err != nil {
		return err
	}
	metrics.MonitorRequests.Set(float64(len(reqs)))
	return nil
}

// Process scans the blocks mined since the last round and sends the transactions
// which have become due.
func (w *Watchtower) Process(ctx context.Context) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	height, err := w.backend.BlockNumber(ctx)
	if err != nil {
		return err
	}
	last, err := w.db.LastBlock()
	if err != nil {
		return err
	}
	if height > last {
		if err = w.scan(ctx, last+1, height); err != nil {
			return err
		}
		if err = w.db.SetLastBlock(height); err != nil {
			return err
		}
	}

	reqs, err := w.db.Requests()
	if err != nil {
		return err
	}
	for _, req := range reqs {
		if req.SettleBlock == 0 {
			continue
		}
		if err = w.act(ctx, req, height); err != nil {
			return err
		}
	}
	return w.updateGauge()
}

func (w *Watchtower) scan(ctx context.Context, from, to uint64) error {
	reqs, err := w.db.Requests()
	if err != nil || len(reqs) == 0 {
		return err
	}
	networks := make([]common.Address, 0)
	seen := make(map[common.Address]bool)
	for _, req := range reqs {
		if !seen[req.TokenNetwork] {
			seen[req.TokenNetwork] = true
			networks = append(networks, req.TokenNetwork)
		}
	}
	logs, err := w.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: networks,
		Topics:    [][]common.Hash{{eventChannelClosed, eventBalanceProofUpdated, eventChannelSettled}},
	})
	if err != nil {
		return fmt.Errorf("failed to get logs: %w", err)
	}
	for i := range logs {
		if err = w.handleLog(ctx, &logs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watchtower) handleLog(ctx context.Context, l *gethtypes.Log) error {
	if len(l.Topics) < 2 || len(l.Topics) < 4 && l.Topics[0] != eventChannelSettled {
		return nil
	}
	channelID := uint256.NewInt(0).SetBytes(l.Topics[1][:])
	reqs, err := w.db.Requests()
	if err != nil {
		return err
	}
	for _, req := range reqs {
		if req.TokenNetwork != l.Address || !req.channelID().Eq(channelID) {
			continue
		}
		switch l.Topics[0] {
		case eventChannelClosed:
			err = w.onChannelClosed(ctx, req, common.BytesToAddress(l.Topics[2][:]))
		case eventBalanceProofUpdated:
			nonce := uint256.NewInt(0).SetBytes(l.Topics[3][:])
			if !req.Monitored && !nonce.Lt(req.nonce()) {
				err = w.onBalanceProofUpdated(ctx, req)
			}
		case eventChannelSettled:
			if !req.Monitored {
				err = w.db.Delete(req)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// onBalanceProofUpdated handles an update of the channel with a nonce not below the one
// of req. It may be our own monitor transaction whose receipt got lost, the reward record
// of the contract tells.
func (w *Watchtower) onBalanceProofUpdated(ctx context.Context, req *MonitorRequest) error {
	out, err := w.call(ctx, w.msc, monitoring.PackRewards(monitoring.RewardIdentifier(req.channelID(), req.TokenNetwork)))
	if err != nil {
		return err
	}
	reward := monitoring.ABI.MustUnpack("rewards", out)
	if reward[3].(common.Address) == w.address && reward[1].(*big.Int).Cmp((*big.Int)(req.Nonce)) == 0 {
		w.logger.Info("balance proof found on chain", "channel", req.ChannelID.String(), "nonce", req.Nonce.String())
		metrics.WatchtowerActions.WithLabelValues(actionMonitor, resultSuccess).Inc()
		req.Monitored = true
		return w.db.Update(req)
	}
	w.logger.Info("newer balance proof submitted by others", "channel", req.ChannelID.String())
	return w.db.Delete(req)
}

func (w *Watchtower) onChannelClosed(ctx context.Context, req *MonitorRequest, closing common.Address) error {
	if closing != req.ClosingParticipant {
		// closed by the requester itself
		return w.db.Delete(req)
	}
	out, err := w.call(ctx, req.TokenNetwork, tokennetwork.PackGetChannelInfo((*big.Int)(req.ChannelID),
		req.ClosingParticipant, req.NonClosingParticipant))
	if err != nil {
		return err
	}
	settleBlock, _ := tokennetwork.UnpackChannelInfo(out)
	out, err = w.call(ctx, req.TokenNetwork, packedSettlementTimeoutMin)
	if err != nil {
		return err
	}
	settleTimeout := tokennetwork.ABI.MustUnpack("settlement_timeout_min", out)[0].(*big.Int)
	if settleBlock.Cmp(settleTimeout) < 0 {
		return w.db.Delete(req)
	}
	closedAt := new(big.Int).Sub(settleBlock, settleTimeout)
	out, err = w.call(ctx, w.msc, monitoring.PackFirstBlockAllowedToMonitor(closedAt, settleTimeout,
		req.ClosingParticipant, req.NonClosingParticipant, w.address))
	if err != nil {
		return err
	}
	req.SettleBlock = settleBlock.Uint64()
	req.FirstAllowed = monitoring.UnpackUint("firstBlockAllowedToMonitor", out).Uint64()
	w.logger.Info("channel closed", "channel", req.ChannelID.String(),
		"first_allowed", req.FirstAllowed, "settle_block", req.SettleBlock)
	return w.db.Update(req)
}

func (w *Watchtower) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := w.backend.CallContract(ctx, ethereum.CallMsg{From: w.address, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call to %s failed: %w", to.Hex(), err)
	}
	return out, nil
}

// act runs the next step for a closed channel, the transaction lands in block height+1.
func (w *Watchtower) act(ctx context.Context, req *MonitorRequest, height uint64) error {
	next := height + 1
	if !req.Monitored {
		if next > req.SettleBlock {
			metrics.WatchtowerActions.WithLabelValues(actionMonitor, resultExpired).Inc()
			w.logger.Info("monitoring window passed", "channel", req.ChannelID.String())
			return w.db.Delete(req)
		}
		if next < req.FirstAllowed {
			return nil
		}
		err := w.sendTx(ctx, req.PackMonitor(w.chainID))
		if err != nil {
			return w.onFailure(actionMonitor, req, err)
		}
		metrics.WatchtowerActions.WithLabelValues(actionMonitor, resultSuccess).Inc()
		w.logger.Info("balance proof submitted", "channel", req.ChannelID.String(), "nonce", req.Nonce.String())
		req.Monitored = true
		return w.db.Update(req)
	}

	if next <= req.SettleBlock {
		return nil
	}
	err := w.sendTx(ctx, req.PackClaimReward())
	if err != nil {
		if IsRevert(err) && strings.Contains(err.Error(), monitoring.ErrChannelNotSettled.Error()) {
			return nil
		}
		return w.onFailure(actionClaim, req, err)
	}
	metrics.WatchtowerActions.WithLabelValues(actionClaim, resultSuccess).Inc()
	w.logger.Info("reward claimed", "channel", req.ChannelID.String(), "amount", req.RewardAmount.String())
	return w.db.Delete(req)
}

// onFailure drops a request whose transaction reverted, it would revert again.
// Transport errors abort the round and the step is retried later.
func (w *Watchtower) onFailure(action string, req *MonitorRequest, err error) error {
	if !IsRevert(err) {
		return err
	}
	metrics.WatchtowerActions.WithLabelValues(action, resultFailed).Inc()
	w.logger.Error("transaction reverted", "action", action, "channel", req.ChannelID.String(), "err", err)
	return w.db.Delete(req)
}

func (w *Watchtower) sendTx(ctx context.Context, data []byte) error {
	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return err
	}
	tx, err := ethutils.SignTx(ethutils.NewTx(nonce, &w.msc, data), w.chainID.ToBig(), w.key)
	if err != nil {
		return err
	}
	if err = w.backend.SendTransaction(ctx, tx); err != nil {
		return err
	}
	receipt, err := waitMined(ctx, w.backend, tx.Hash())
	if err != nil {
		return err
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return ErrTxFailed
	}
	return nil
}
