package chain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/smartbch/watchtower/chain/types"
	"github.com/smartbch/watchtower/metrics"
)

var (
	ErrNoContract   = errors.New("no contract at address")
	ErrUnknownKind  = errors.New("unknown contract kind")
	ErrNonceTooLow  = errors.New("nonce too low")
	ErrNonceTooHigh = errors.New("nonce too high")
)

const metaHeight = "height"

// Chain is an in-process testing chain. Every successful transaction is mined into its
// own block, failed transactions are dropped without touching the state.
type Chain struct {
	mtx sync.Mutex

	logger    log.Logger
	store     *Store
	chainID   *uint256.Int
	executors map[string]types.SystemContractExecutor

	height uint64

	logsFeed event.Feed
}

func NewChain(store *Store, chainID *uint256.Int, logger log.Logger) *Chain {
	c := &Chain{
		logger:    logger.With("module", "chain"),
		store:     store,
		chainID:   chainID.Clone(),
		executors: make(map[string]types.SystemContractExecutor),
	}
	if bz := store.Get(types.MetaKey(metaHeight)); len(bz) == 8 {
		c.height = binary.BigEndian.Uint64(bz)
	}
	metrics.BlockHeight.Set(float64(c.height))
	return c
}

func (c *Chain) RegisterExecutor(e types.SystemContractExecutor) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.executors[e.Kind()] = e
}

func (c *Chain) ChainID() *uint256.Int {
	return c.chainID.Clone()
}

func (c *Chain) BlockNumber() uint64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.height
}

// Mine appends n empty blocks.
func (c *Chain) Mine(n uint64) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.commitBlock(c.height+n, nil)
}

func (c *Chain) commitBlock(height uint64, changes []types.KV) error {
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], height)
	changes = append(changes, types.KV{Key: types.MetaKey(metaHeight), Value: bz[:]})
	if err := c.store.Write(changes); err != nil {
		return fmt.Errorf("failed to commit block %d: %w", height, err)
	}
	c.height = height
	metrics.BlockHeight.Set(float64(height))
	return nil
}

// ApplyGenesis runs f on the latest state and commits its writes without mining a block.
func (c *Chain) ApplyGenesis(f func(ctx *types.Context) error) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	ctx := types.NewContext(c.store, c.height)
	if err := f(ctx); err != nil {
		return err
	}
	return c.store.Write(ctx.Changes())
}

// View runs f on a throw-away context of the pending block.
func (c *Chain) View(f func(ctx *types.Context)) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	ctx := types.NewContext(c.store, c.height+1)
	ctx.SetDispatcher(c)
	f(ctx)
}

func (c *Chain) GetNonce(addr common.Address) uint64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return types.NewContext(c.store, c.height).GetNonce(addr)
}

func (c *Chain) pendingBlock() *types.BlockInfo {
	return &types.BlockInfo{
		Number:    c.height + 1,
		Timestamp: time.Now().Unix(),
	}
}

var _ types.Dispatcher = (*Chain)(nil)

// Dispatch runs tx with the executor of its callee. It is also the entry of the message
// calls contracts make to each other, which run while the chain lock is held.
func (c *Chain) Dispatch(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (status int, outData []byte) {
	_, status, outData = c.dispatch(ctx, block, tx)
	return
}

func (c *Chain) dispatch(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (kind string, status int, outData []byte) {
	kind = ctx.GetContractKind(tx.To)
	if kind == "" {
		return kind, types.StatusFailed, []byte(ErrNoContract.Error())
	}
	exe, ok := c.executors[kind]
	if !ok {
		return kind, types.StatusFailed, []byte(ErrUnknownKind.Error())
	}
	status, outData = exe.Execute(ctx, block, tx)
	return
}

func (c *Chain) execute(ctx *types.Context, block *types.BlockInfo, tx *types.TxToRun) (kind string, status int, outData []byte) {
	ctx.SetDispatcher(c)
	return c.dispatch(ctx, block, tx)
}

// Call executes a read-only call on the pending block, nothing is persisted.
func (c *Chain) Call(from, to common.Address, data []byte) ([]byte, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	block := c.pendingBlock()
	ctx := types.NewContext(c.store, block.Number)
	tx := &types.TxToRun{From: from, To: to, Data: data}
	_, status, outData := c.execute(ctx, block, tx)
	if status != types.StatusSuccess {
		return nil, types.NewRevertError(outData)
	}
	return outData, nil
}

// SendTx sends an unsigned transaction from 'from', using its next nonce.
func (c *Chain) SendTx(from, to common.Address, data []byte) (*types.Receipt, error) {
	c.mtx.Lock()
	nonce := types.NewContext(c.store, c.height).GetNonce(from)
	receipt, err := c.applyTx(types.NewTxToRun(from, to, nonce, data))
	c.mtx.Unlock()
	c.publishLogs(receipt)
	return receipt, err
}

// ApplyTx executes a transaction whose nonce was chosen by the sender.
func (c *Chain) ApplyTx(tx *types.TxToRun) (*types.Receipt, error) {
	c.mtx.Lock()
	receipt, err := c.applyTx(tx)
	c.mtx.Unlock()
	c.publishLogs(receipt)
	return receipt, err
}

// SubscribeLogsEvent delivers the logs of every mined transaction which has any.
func (c *Chain) SubscribeLogsEvent(ch chan<- []*gethtypes.Log) event.Subscription {
	return c.logsFeed.Subscribe(ch)
}

// publishLogs runs without the chain lock, subscribers may query the chain.
func (c *Chain) publishLogs(receipt *types.Receipt) {
	if receipt != nil && len(receipt.Logs) > 0 {
		c.logsFeed.Send(receipt.Logs)
	}
}

func (c *Chain) applyTx(tx *types.TxToRun) (*types.Receipt, error) {
	block := c.pendingBlock()
	ctx := types.NewContext(c.store, block.Number)
	nonce := ctx.GetNonce(tx.From)
	if tx.Nonce < nonce {
		return nil, ErrNonceTooLow
	} else if tx.Nonce > nonce {
		return nil, ErrNonceTooHigh
	}

	kind, status, outData := c.execute(ctx, block, tx)
	metrics.Transactions.WithLabelValues(kind, statusLabel(status)).Inc()
	if status != types.StatusSuccess {
		c.logger.Debug("transaction reverted", "hash", tx.Hash.Hex(), "to", tx.To.Hex(), "reason", string(outData))
		return nil, types.NewRevertError(outData)
	}
	ctx.SetNonce(tx.From, nonce+1)

	receipt := &types.Receipt{
		TxHash:      tx.Hash,
		BlockNumber: block.Number,
		From:        tx.From,
		To:          tx.To,
		Status:      status,
		Logs:        ctx.Logs(),
		OutData:     outData,
	}
	receipt.FillLogs()
	bz, err := receipt.MarshalStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt: %w", err)
	}
	changes := append(ctx.Changes(), types.KV{Key: types.ReceiptKey(tx.Hash), Value: bz})
	if len(receipt.Logs) > 0 {
		changes = append(changes, types.KV{Key: types.LogIndexKey(block.Number), Value: tx.Hash.Bytes()})
	}
	if err := c.commitBlock(block.Number, changes); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction mined", "hash", tx.Hash.Hex(), "block", block.Number, "kind", kind, "logs", len(receipt.Logs))
	return receipt, nil
}

func statusLabel(status int) string {
	if status == types.StatusSuccess {
		return "success"
	}
	return "failed"
}

func (c *Chain) GetReceipt(hash common.Hash) (*types.Receipt, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.loadReceipt(hash)
}

func (c *Chain) loadReceipt(hash common.Hash) (*types.Receipt, bool) {
	bz := c.store.Get(types.ReceiptKey(hash))
	if bz == nil {
		return nil, false
	}
	r, err := types.UnmarshalReceipt(bz)
	if err != nil {
		c.logger.Error("corrupted receipt", "hash", hash.Hex(), "err", err)
		return nil, false
	}
	return r, true
}

// FilterLogs follows the eth_getLogs matching rules. A nil FromBlock means genesis and a
// nil ToBlock means the latest block.
func (c *Chain) FilterLogs(q ethereum.FilterQuery) []*gethtypes.Log {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	from, to := uint64(0), c.height
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil && q.ToBlock.Uint64() < to {
		to = q.ToBlock.Uint64()
	}
	res := make([]*gethtypes.Log, 0)
	if from > to {
		return res
	}
	c.store.Iterate(types.LogIndexKey(from), types.LogIndexKey(to+1), func(_, value []byte) bool {
		r, ok := c.loadReceipt(common.BytesToHash(value))
		if !ok {
			return true
		}
		for _, l := range r.Logs {
			if MatchLog(l, q.Addresses, q.Topics) {
				res = append(res, l)
			}
		}
		return true
	})
	return res
}

// MatchLog reports whether l is emitted by one of addresses and matches the topic
// rule set. Empty lists match everything.
func MatchLog(l *gethtypes.Log, addresses []common.Address, topics [][]common.Hash) bool {
	if len(addresses) > 0 {
		found := false
		for _, addr := range addresses {
			if l.Address == addr {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(topics) > len(l.Topics) {
		return false
	}
	for i, sub := range topics {
		if len(sub) == 0 {
			continue
		}
		found := false
		for _, topic := range sub {
			if l.Topics[i] == topic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
