package types

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	StatusSuccess int = 0
	StatusFailed  int = 1
)

// A system contract implemented in Go. Every deployed contract account records the kind
// of its executor, and the chain dispatches transactions by that kind.
type SystemContractExecutor interface {
	Kind() string
	// Execute runs tx against ctx. On failure outData carries the revert reason and
	// the chain discards every write made through ctx.
	Execute(ctx *Context, block *BlockInfo, tx *TxToRun) (status int, outData []byte)
}

type BlockInfo struct {
	Number    uint64
	Timestamp int64
}

type TxToRun struct {
	From  common.Address
	To    common.Address
	Nonce uint64
	Data  []byte
	Hash  common.Hash
}

// NewTxToRun builds an unsigned transaction, its hash commits to every field.
func NewTxToRun(from, to common.Address, nonce uint64, data []byte) *TxToRun {
	tx := &TxToRun{From: from, To: to, Nonce: nonce, Data: data}
	bz, err := rlp.EncodeToBytes([]interface{}{from, to, nonce, data})
	if err != nil {
		panic(err)
	}
	tx.Hash = crypto.Keccak256Hash(bz)
	return tx
}

// TxToRunFromSigned converts a signed ethereum transaction whose sender is already known.
func TxToRunFromSigned(tx *gethtypes.Transaction, from common.Address) *TxToRun {
	to := common.Address{}
	if tx.To() != nil {
		to = *tx.To()
	}
	return &TxToRun{
		From:  from,
		To:    to,
		Nonce: tx.Nonce(),
		Data:  tx.Data(),
		Hash:  tx.Hash(),
	}
}

type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	From        common.Address
	To          common.Address
	Status      int
	Logs        []*gethtypes.Log
	OutData     []byte
}

// storedReceipt is the RLP layout of a receipt in the store. Logs only keep their
// consensus fields, the rest is restored from the receipt on load.
type storedReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	From        common.Address
	To          common.Address
	Status      uint64
	Logs        []*gethtypes.Log
	OutData     []byte
}

func (r *Receipt) MarshalStorage() ([]byte, error) {
	return rlp.EncodeToBytes(&storedReceipt{
		TxHash:      r.TxHash,
		BlockNumber: r.BlockNumber,
		From:        r.From,
		To:          r.To,
		Status:      uint64(r.Status),
		Logs:        r.Logs,
		OutData:     r.OutData,
	})
}

func UnmarshalReceipt(bz []byte) (*Receipt, error) {
	var stored storedReceipt
	if err := rlp.DecodeBytes(bz, &stored); err != nil {
		return nil, err
	}
	r := &Receipt{
		TxHash:      stored.TxHash,
		BlockNumber: stored.BlockNumber,
		From:        stored.From,
		To:          stored.To,
		Status:      int(stored.Status),
		Logs:        stored.Logs,
		OutData:     stored.OutData,
	}
	r.FillLogs()
	return r, nil
}

// FillLogs sets the position fields of the logs of r. Blocks carry one transaction,
// so a log index is its position in the receipt.
func (r *Receipt) FillLogs() {
	for i, l := range r.Logs {
		l.BlockNumber = r.BlockNumber
		l.TxHash = r.TxHash
		l.TxIndex = 0
		l.Index = uint(i)
	}
}

// RevertErrorCode is the JSON-RPC error code geth uses for reverts.
const RevertErrorCode = 3

// RevertError is returned by calls and transactions which failed inside a contract.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

// ErrorCode makes RevertError a geth rpc.Error.
func (e *RevertError) ErrorCode() int {
	return RevertErrorCode
}

func NewRevertError(outData []byte) *RevertError {
	return &RevertError{Reason: string(outData)}
}

// RevertReason is the outData of a failed execution caused by err. The reason of a
// RevertError from a nested call is passed through unchanged.
func RevertReason(err error) []byte {
	var revert *RevertError
	if errors.As(err, &revert) {
		return []byte(revert.Reason)
	}
	return []byte(err.Error())
}

func Fail(err error) (int, []byte) {
	return StatusFailed, RevertReason(err)
}

func Success(outData []byte) (int, []byte) {
	return StatusSuccess, outData
}

// ToGeth converts r to the receipt format of go-ethereum. Transactions cost no gas.
func (r *Receipt) ToGeth() *gethtypes.Receipt {
	status := gethtypes.ReceiptStatusSuccessful
	if r.Status != StatusSuccess {
		status = gethtypes.ReceiptStatusFailed
	}
	logs := r.Logs
	if logs == nil {
		logs = []*gethtypes.Log{}
	}
	receipt := &gethtypes.Receipt{
		Status:      status,
		Logs:        logs,
		TxHash:      r.TxHash,
		BlockNumber: new(big.Int).SetUint64(r.BlockNumber),
	}
	receipt.Bloom = gethtypes.CreateBloom(gethtypes.Receipts{receipt})
	return receipt
}
