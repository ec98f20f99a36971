package testutils

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	gethcmn "github.com/ethereum/go-ethereum/common"
)

type FilterBuilder struct {
	query ethereum.FilterQuery
}

func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

func (fb *FilterBuilder) BlockRange(from, to int64) *FilterBuilder {
	fb.query.FromBlock = big.NewInt(from)
	fb.query.ToBlock = big.NewInt(to)
	return fb
}

func (fb *FilterBuilder) Addresses(addrs ...gethcmn.Address) *FilterBuilder {
	fb.query.Addresses = addrs
	return fb
}

func (fb *FilterBuilder) Topics(topics [][]gethcmn.Hash) *FilterBuilder {
	fb.query.Topics = topics
	return fb
}

func (fb *FilterBuilder) Build() ethereum.FilterQuery {
	return fb.query
}
