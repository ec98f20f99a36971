package api

import (
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tendermint/tendermint/libs/log"

	wtapi "github.com/smartbch/watchtower/api"
	"github.com/smartbch/watchtower/rpc/api/filters"
)

const (
	namespaceEth        = "eth"
	namespaceNet        = "net"
	namespaceWeb3       = "web3"
	namespaceEvm        = "evm"
	namespaceWatchtower = "watchtower"

	apiVersion = "1.0"
)

// GetAPIs returns the list of all APIs served over JSON-RPC. testKeys are the
// accounts eth_sendTransaction signs for.
func GetAPIs(backend wtapi.BackendService, logger log.Logger, testKeys []string, maxLogResults int) []rpc.API {
	logger = logger.With("module", "json-rpc")
	_ethAPI := newEthAPI(backend, testKeys, logger)
	_netAPI := newNetAPI(backend.ChainId().Uint64())
	_filterAPI := filters.NewAPI(backend, maxLogResults)
	_web3API := web3API{}
	_evmAPI := newEvmAPI(backend, logger)
	_watchtowerAPI := newWatchtowerAPI(backend, logger)

	return []rpc.API{
		{
			Namespace: namespaceEth,
			Version:   apiVersion,
			Service:   _ethAPI,
			Public:    true,
		},
		{
			Namespace: namespaceEth,
			Version:   apiVersion,
			Service:   _filterAPI,
			Public:    true,
		},
		{
			Namespace: namespaceWeb3,
			Version:   apiVersion,
			Service:   _web3API,
			Public:    true,
		},
		{
			Namespace: namespaceNet,
			Version:   apiVersion,
			Service:   _netAPI,
			Public:    true,
		},
		{
			Namespace: namespaceEvm,
			Version:   apiVersion,
			Service:   _evmAPI,
			Public:    true,
		},
		{
			Namespace: namespaceWatchtower,
			Version:   apiVersion,
			Service:   _watchtowerAPI,
			Public:    true,
		},
	}
}
