package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/smartbch/watchtower/watchtower"
)

// Client extends ethclient.Client and adds the evm and watchtower namespaces.
type Client struct {
	*ethclient.Client
	rpcClient *rpc.Client
}

func Dial(rawUrl string) (*Client, error) {
	return DialContext(context.Background(), rawUrl)
}

func DialContext(ctx context.Context, rawUrl string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawUrl)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

func NewClient(c *rpc.Client) *Client {
	return &Client{
		Client:    ethclient.NewClient(c),
		rpcClient: c,
	}
}

// Mine seals n empty blocks and returns the new height.
func (c *Client) Mine(ctx context.Context, n uint64) (uint64, error) {
	var result hexutil.Uint64
	blocks := hexutil.Uint64(n)
	err := c.rpcClient.CallContext(ctx, &result, "evm_mine", &blocks)
	return uint64(result), err
}

func (c *Client) SubmitMonitorRequest(ctx context.Context, req *watchtower.MonitorRequest) error {
	return c.rpcClient.CallContext(ctx, nil, "watchtower_submitRequest", req)
}

func (c *Client) MonitorRequests(ctx context.Context) ([]*watchtower.MonitorRequest, error) {
	var results []*watchtower.MonitorRequest
	err := c.rpcClient.CallContext(ctx, &results, "watchtower_requests")
	return results, err
}
