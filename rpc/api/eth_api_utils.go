package api

import (
	"bytes"

	gethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/smartbch/watchtower/chain/types"
)

// callData picks "input" over "data", they must agree when both are set.
func callData(data, input *hexutil.Bytes) ([]byte, error) {
	if data != nil && input != nil && !bytes.Equal(*data, *input) {
		return nil, errConflictingInputs
	}
	if input != nil {
		return *input, nil
	} else if data != nil {
		return *data, nil
	}
	return nil, nil
}

func receiptToRpcResp(receipt *types.Receipt) map[string]interface{} {
	geth := receipt.ToGeth()
	return map[string]interface{}{
		"transactionHash":   receipt.TxHash,
		"transactionIndex":  hexutil.Uint64(0),
		"blockHash":         gethcmn.Hash{},
		"blockNumber":       hexutil.Uint64(receipt.BlockNumber),
		"from":              receipt.From,
		"to":                receipt.To,
		"cumulativeGasUsed": hexutil.Uint64(0),
		"gasUsed":           hexutil.Uint64(0),
		"contractAddress":   nil,
		"logs":              geth.Logs,
		"logsBloom":         geth.Bloom,
		"status":            hexutil.Uint64(geth.Status),
		"type":              hexutil.Uint64(gethtypes.LegacyTxType),
	}
}
