package monitoring

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/internal/ethutils"
	"github.com/smartbch/watchtower/tokennetwork"
)

// RewardProof lets a monitoring service contract pay RewardAmount out of the non-closing
// participant's deposit to whoever submits the countersigned balance proof.
type RewardProof struct {
	MonitoringServiceContract common.Address
	ChainID                   *uint256.Int
	TokenNetwork              common.Address
	NonClosingParticipant     common.Address
	NonClosingSignature       []byte
	RewardAmount              *uint256.Int
}

// Message is 221 bytes long with a 65-byte countersignature.
func (p *RewardProof) Message() []byte {
	msg := make([]byte, 0, 156+len(p.NonClosingSignature))
	msg = append(msg, p.MonitoringServiceContract[:]...)
	msg = append(msg, bigutils.U256ToSlice32(p.ChainID)...)
	msg = append(msg, bigutils.U256ToSlice32(uint256.NewInt(tokennetwork.MessageTypeMSReward))...)
	msg = append(msg, p.TokenNetwork[:]...)
	msg = append(msg, p.NonClosingParticipant[:]...)
	msg = append(msg, p.NonClosingSignature...)
	return append(msg, bigutils.U256ToSlice32(p.RewardAmount)...)
}

func (p *RewardProof) Sign(key *ecdsa.PrivateKey) ([]byte, error) {
	return ethutils.SignMessage(key, p.Message())
}

func (p *RewardProof) RecoverSigner(signature []byte) (common.Address, error) {
	return ethutils.RecoverSigner(p.Message(), signature)
}

// RewardIdentifier is keccak256(channel_identifier ‖ token_network_address).
func RewardIdentifier(channelID *uint256.Int, tokenNetwork common.Address) common.Hash {
	return crypto.Keccak256Hash(bigutils.U256ToSlice32(channelID), tokenNetwork[:])
}
