package api

import (
	"crypto/ecdsa"
	"math/big"
	"sort"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/tendermint/tendermint/libs/log"

	wtapi "github.com/smartbch/watchtower/api"
	"github.com/smartbch/watchtower/internal/ethutils"
)

// Ethereum Wire Protocol
// https://github.com/ethereum/devp2p/blob/master/caps/eth.md
const protocolVersion = 63

var _ PublicEthAPI = (*ethAPI)(nil)

type PublicEthAPI interface {
	Accounts() ([]common.Address, error)
	BlockNumber() (hexutil.Uint64, error)
	Call(args CallArgs, blockNr gethrpc.BlockNumber) (hexutil.Bytes, error)
	ChainId() hexutil.Uint64
	EstimateGas(args CallArgs, blockNr *gethrpc.BlockNumber) (hexutil.Uint64, error)
	GasPrice() *hexutil.Big
	GetTransactionCount(addr common.Address, blockNum gethrpc.BlockNumber) (*hexutil.Uint64, error)
	GetTransactionReceipt(hash common.Hash) (map[string]interface{}, error)
	ProtocolVersion() hexutil.Uint
	SendRawTransaction(data hexutil.Bytes) (common.Hash, error)
	SendTransaction(args SendTxArgs) (common.Hash, error)
	Syncing() (interface{}, error)
}

type ethAPI struct {
	backend  wtapi.BackendService
	accounts map[common.Address]*ecdsa.PrivateKey // only for test
	logger   log.Logger
	numCall  uint64
}

func newEthAPI(backend wtapi.BackendService, testKeys []string, logger log.Logger) *ethAPI {
	return &ethAPI{
		backend:  backend,
		accounts: loadTestAccounts(testKeys, logger),
		logger:   logger,
	}
}

func loadTestAccounts(testKeys []string, logger log.Logger) map[common.Address]*ecdsa.PrivateKey {
	accs := make(map[common.Address]*ecdsa.PrivateKey, len(testKeys))
	for _, testKey := range testKeys {
		if key, _, err := ethutils.HexToPrivKey(testKey); err == nil {
			addr := crypto.PubkeyToAddress(key.PublicKey)
			accs[addr] = key
		} else {
			logger.Error("failed to load private key", "err", err.Error())
		}
	}
	return accs
}

func (api *ethAPI) Accounts() ([]common.Address, error) {
	api.logger.Debug("eth_accounts")
	addrs := make([]common.Address, 0, len(api.accounts))
	for addr := range api.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytesLess(addrs[i][:], addrs[j][:])
	})
	return addrs, nil
}

func bytesLess(a, b []byte) bool {
	for k := range a {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

// https://eth.wiki/json-rpc/API#eth_blockNumber
func (api *ethAPI) BlockNumber() (hexutil.Uint64, error) {
	api.logger.Debug("eth_blockNumber")
	return hexutil.Uint64(api.backend.LatestHeight()), nil
}

// https://eips.ethereum.org/EIPS/eip-695
func (api *ethAPI) ChainId() hexutil.Uint64 {
	api.logger.Debug("eth_chainId")
	return hexutil.Uint64(api.backend.ChainId().Uint64())
}

// https://eth.wiki/json-rpc/API#eth_gasPrice
func (api *ethAPI) GasPrice() *hexutil.Big {
	api.logger.Debug("eth_gasPrice")
	return (*hexutil.Big)(big.NewInt(0))
}

// https://eth.wiki/json-rpc/API#eth_getTransactionCount
func (api *ethAPI) GetTransactionCount(addr common.Address, blockNum gethrpc.BlockNumber) (*hexutil.Uint64, error) {
	api.logger.Debug("eth_getTransactionCount")
	// every block is final, so latest and pending agree
	nonce := hexutil.Uint64(api.backend.GetNonce(addr))
	return &nonce, nil
}

// https://eth.wiki/json-rpc/API#eth_getTransactionReceipt
func (api *ethAPI) GetTransactionReceipt(hash common.Hash) (map[string]interface{}, error) {
	api.logger.Debug("eth_getTransactionReceipt")
	receipt, ok := api.backend.GetReceipt(hash)
	if !ok {
		return nil, nil
	}
	return receiptToRpcResp(receipt), nil
}

// https://eth.wiki/json-rpc/API#eth_protocolVersion
func (api *ethAPI) ProtocolVersion() hexutil.Uint {
	api.logger.Debug("eth_protocolVersion")
	return hexutil.Uint(protocolVersion)
}

// https://eth.wiki/json-rpc/API#eth_sendRawTransaction
func (api *ethAPI) SendRawTransaction(data hexutil.Bytes) (common.Hash, error) {
	api.logger.Debug("eth_sendRawTransaction")
	return api.backend.SendRawTx(data)
}

// https://eth.wiki/json-rpc/API#eth_sendTransaction
func (api *ethAPI) SendTransaction(args SendTxArgs) (common.Hash, error) {
	api.logger.Debug("eth_sendTransaction")
	privKey, found := api.accounts[args.From]
	if !found {
		return common.Hash{}, newUnknownAccountError(args.From.Hex())
	}
	if args.To == nil {
		return common.Hash{}, errNoRecipient
	}
	if args.Value != nil && args.Value.ToInt().Sign() != 0 {
		return common.Hash{}, errNonZeroValue
	}
	data, err := callData(args.Data, args.Input)
	if err != nil {
		return common.Hash{}, err
	}
	if args.Nonce == nil {
		nonce := api.backend.GetNonce(args.From)
		args.Nonce = (*hexutil.Uint64)(&nonce)
	}

	tx, err := ethutils.SignTx(ethutils.NewTx(uint64(*args.Nonce), args.To, data), api.backend.ChainId(), privKey)
	if err != nil {
		return common.Hash{}, err
	}
	if err = api.backend.SendTx(tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// https://eth.wiki/json-rpc/API#eth_syncing
func (api *ethAPI) Syncing() (interface{}, error) {
	api.logger.Debug("eth_syncing")
	return false, nil
}

// https://eth.wiki/json-rpc/API#eth_call
func (api *ethAPI) Call(args CallArgs, blockNr gethrpc.BlockNumber) (hexutil.Bytes, error) {
	atomic.AddUint64(&api.numCall, 1)
	api.logger.Debug("eth_call", "from", addrToStr(args.From), "to", addrToStr(args.To))
	// ignore blockNumber, calls run on the pending block
	from, to, data, err := api.parseCallArgs(args)
	if err != nil {
		return nil, err
	}
	return api.backend.Call(from, to, data)
}

func addrToStr(addr *common.Address) string {
	if addr != nil {
		return addr.Hex()
	}
	return "0x"
}

// https://eth.wiki/json-rpc/API#eth_estimateGas
func (api *ethAPI) EstimateGas(args CallArgs, blockNr *gethrpc.BlockNumber) (hexutil.Uint64, error) {
	api.logger.Debug("eth_estimateGas")
	from, to, data, err := api.parseCallArgs(args)
	if err != nil {
		return 0, err
	}
	if _, err = api.backend.Call(from, to, data); err != nil {
		return 0, err
	}
	return hexutil.Uint64(ethutils.DefaultGasLimit), nil
}

func (api *ethAPI) parseCallArgs(args CallArgs) (from, to common.Address, data []byte, err error) {
	if args.To == nil {
		err = errNoRecipient
		return
	}
	to = *args.To
	if args.From != nil {
		from = *args.From
	}
	data, err = callData(args.Data, args.Input)
	return
}
