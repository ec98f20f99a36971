package testutils

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/smartbch/watchtower/internal/ethutils"
)

func MustEncodeTx(tx *gethtypes.Transaction) []byte {
	if data, err := ethutils.EncodeTx(tx); err == nil {
		return data
	} else {
		panic(err)
	}
}

func MustSignTx(tx *gethtypes.Transaction,
	chainID *big.Int, privKey string) *gethtypes.Transaction {

	key := MustHexToPrivKey(privKey)
	if tx, err := ethutils.SignTx(tx, chainID, key); err == nil {
		return tx
	} else {
		panic(err)
	}
}

// MustMakeRawTx returns the RLP encoding of a signed call of 'to'.
func MustMakeRawTx(privKey string, chainID *big.Int, nonce uint64, to common.Address, data []byte) []byte {
	tx := ethutils.NewTx(nonce, &to, data)
	return MustEncodeTx(MustSignTx(tx, chainID, privKey))
}
