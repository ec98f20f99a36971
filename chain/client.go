package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/smartbch/watchtower/chain/types"
)

var (
	ErrContractCreation = errors.New("contract creation is not supported")
)

// Client gives in-process access to a Chain through the method set of ethclient.Client,
// so code written against a remote node also runs on the local chain.
type Client struct {
	chain *Chain
}

func NewClient(c *Chain) *Client {
	return &Client{chain: c}
}

func (c *Client) ChainID(_ context.Context) (*big.Int, error) {
	return c.chain.ChainID().ToBig(), nil
}

func (c *Client) BlockNumber(_ context.Context) (uint64, error) {
	return c.chain.BlockNumber(), nil
}

func (c *Client) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	return c.chain.GetNonce(account), nil
}

// CallContract always runs on the pending block, blockNumber is ignored.
func (c *Client) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, ErrContractCreation
	}
	return c.chain.Call(msg.From, *msg.To, msg.Data)
}

func (c *Client) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	logs := c.chain.FilterLogs(q)
	res := make([]gethtypes.Log, len(logs))
	for i, l := range logs {
		res[i] = *l
	}
	return res, nil
}

// SendTransaction mines tx at once. A reverted transaction is returned as an error
// and never gets a receipt.
func (c *Client) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	_, err := c.chain.ApplySignedTx(tx)
	return err
}

func (c *Client) TransactionReceipt(_ context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	r, ok := c.chain.GetReceipt(txHash)
	if !ok {
		return nil, ethereum.NotFound
	}
	return r.ToGeth(), nil
}

// ApplySignedTx recovers the EIP-155 sender of tx and executes it. A tx signed for
// another chain id fails sender recovery.
func (c *Chain) ApplySignedTx(tx *gethtypes.Transaction) (*types.Receipt, error) {
	if tx.To() == nil {
		return nil, ErrContractCreation
	}
	from, err := gethtypes.Sender(gethtypes.NewEIP155Signer(c.ChainID().ToBig()), tx)
	if err != nil {
		return nil, err
	}
	return c.ApplyTx(types.TxToRunFromSigned(tx, from))
}
