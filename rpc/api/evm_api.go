package api

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tendermint/tendermint/libs/log"

	wtapi "github.com/smartbch/watchtower/api"
)

// https://github.com/trufflesuite/ganache-cli#custom-methods
type EvmAPI interface {
	Mine(blocks *hexutil.Uint64) (hexutil.Uint64, error)
}

func newEvmAPI(backend wtapi.BackendService, logger log.Logger) EvmAPI {
	return evmAPI{backend: backend, logger: logger}
}

type evmAPI struct {
	backend wtapi.BackendService
	logger  log.Logger
}

// Mine appends empty blocks, one when blocks is omitted, and returns the new height.
func (api evmAPI) Mine(blocks *hexutil.Uint64) (hexutil.Uint64, error) {
	api.logger.Debug("evm_mine")
	n := uint64(1)
	if blocks != nil {
		n = uint64(*blocks)
	}
	if err := api.backend.Mine(n); err != nil {
		return 0, err
	}
	return hexutil.Uint64(api.backend.LatestHeight()), nil
}
