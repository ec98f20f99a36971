package api

import (
	"errors"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const defaultErrorCode = -32000

var _ gethrpc.Error = callError{}

var (
	errNoRecipient       = errors.New("contract creation is not supported")
	errConflictingInputs = errors.New(`both "data" and "input" are set and not equal. Please use "input" to pass transaction call data`)
	errNonZeroValue      = errors.New("value transfers are not supported")
)

type callError struct {
	msg  string
	code int
}

func (err callError) Error() string {
	return err.msg
}

func (err callError) ErrorCode() int {
	return err.code
}

func newUnknownAccountError(addr string) error {
	return callError{msg: "unknown account: " + addr, code: defaultErrorCode}
}
