package tokennetwork

import (
	"crypto/ecdsa"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/internal/ethutils"
)

// Message type ids, the third field of every signed off-chain message.
const (
	MessageTypeBalanceProof       uint64 = 1
	MessageTypeBalanceProofUpdate uint64 = 2
	MessageTypeWithdraw           uint64 = 3
	MessageTypeCooperativeSettle  uint64 = 4
	MessageTypeIOU                uint64 = 5
	MessageTypeMSReward           uint64 = 6
)

// BalanceHash commits to the amounts a participant has sent to its partner.
func BalanceHash(transferred, locked *uint256.Int, locksroot common.Hash) common.Hash {
	return crypto.Keccak256Hash(bigutils.U256ToSlice32(transferred), bigutils.U256ToSlice32(locked), locksroot[:])
}

// ParticipantsHash does not depend on the order of the two addresses.
func ParticipantsHash(participant, partner common.Address) common.Hash {
	pair := []common.Address{participant, partner}
	sort.Slice(pair, func(i, j int) bool {
		return bigutils.AddressToU256(pair[i]).Lt(bigutils.AddressToU256(pair[j]))
	})
	return crypto.Keccak256Hash(pair[0][:], pair[1][:])
}

// BalanceProof is the part of a channel's off-chain state that can be submitted on chain.
type BalanceProof struct {
	TokenNetwork   common.Address
	ChainID        *uint256.Int
	ChannelID      *uint256.Int
	BalanceHash    common.Hash
	Nonce          *uint256.Int
	AdditionalHash common.Hash
}

func (bp *BalanceProof) pack(msgType uint64) []byte {
	msg := make([]byte, 0, 212+ethutils.SignatureLength)
	msg = append(msg, bp.TokenNetwork[:]...)
	msg = append(msg, bigutils.U256ToSlice32(bp.ChainID)...)
	msg = append(msg, bigutils.U256ToSlice32(uint256.NewInt(msgType))...)
	msg = append(msg, bigutils.U256ToSlice32(bp.ChannelID)...)
	msg = append(msg, bp.BalanceHash[:]...)
	msg = append(msg, bigutils.U256ToSlice32(bp.Nonce)...)
	return append(msg, bp.AdditionalHash[:]...)
}

// Message is the 212-byte payload signed by the sender of the balance proof.
func (bp *BalanceProof) Message() []byte {
	return bp.pack(MessageTypeBalanceProof)
}

// CounterSignatureMessage is the payload signed by the receiver of the balance proof.
// msgType is MessageTypeBalanceProof when closing and MessageTypeBalanceProofUpdate when
// updating the closed channel.
func (bp *BalanceProof) CounterSignatureMessage(msgType uint64, signature []byte) []byte {
	return append(bp.pack(msgType), signature...)
}

func (bp *BalanceProof) Sign(key *ecdsa.PrivateKey) ([]byte, error) {
	return ethutils.SignMessage(key, bp.Message())
}

func (bp *BalanceProof) CounterSign(key *ecdsa.PrivateKey, msgType uint64, signature []byte) ([]byte, error) {
	return ethutils.SignMessage(key, bp.CounterSignatureMessage(msgType, signature))
}

func (bp *BalanceProof) RecoverSigner(signature []byte) (common.Address, error) {
	return ethutils.RecoverSigner(bp.Message(), signature)
}

func (bp *BalanceProof) RecoverCounterSigner(msgType uint64, signature, counterSignature []byte) (common.Address, error) {
	return ethutils.RecoverSigner(bp.CounterSignatureMessage(msgType, signature), counterSignature)
}
