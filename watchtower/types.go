package watchtower

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/tinylib/msgp/msgp"

	"github.com/smartbch/watchtower/internal/bigutils"
	"github.com/smartbch/watchtower/monitoring"
	"github.com/smartbch/watchtower/tokennetwork"
)

var (
	ErrInvalidNumber       = errors.New("missing or out of range number in monitor request")
	ErrSameParticipants    = errors.New("participants must differ")
	ErrZeroNonce           = errors.New("nonce must be positive")
	ErrBadClosingSig       = errors.New("closing signature is not from the closing participant")
	ErrBadNonClosingSig    = errors.New("non-closing signature is not from the non-closing participant")
	ErrBadRewardProofSig   = errors.New("reward proof is not signed by the non-closing participant")
	ErrUnknownTokenNetwork = errors.New("token network is not watched")
)

// MonitorRequest is sent by the non-closing participant of a channel: the latest balance
// proof of its partner, countersigned, plus the reward it pays for getting it on chain.
//
// The fields after RewardProofSignature are the agent's own progress and are not part of
// the JSON form.
type MonitorRequest struct {
	TokenNetwork          common.Address `json:"token_network_address"`
	ChannelID             *hexutil.Big   `json:"channel_identifier"`
	ClosingParticipant    common.Address `json:"closing_participant"`
	NonClosingParticipant common.Address `json:"non_closing_participant"`
	BalanceHash           common.Hash    `json:"balance_hash"`
	Nonce                 *hexutil.Big   `json:"nonce"`
	AdditionalHash        common.Hash    `json:"additional_hash"`
	ClosingSignature      hexutil.Bytes  `json:"closing_signature"`
	NonClosingSignature   hexutil.Bytes  `json:"non_closing_signature"`
	RewardAmount          *hexutil.Big   `json:"reward_amount"`
	RewardProofSignature  hexutil.Bytes  `json:"reward_proof_signature"`

	// zero until the channel is closed
	SettleBlock  uint64 `json:"-"`
	FirstAllowed uint64 `json:"-"`
	Monitored    bool   `json:"-"`
}

func (r *MonitorRequest) channelID() *uint256.Int {
	return bigutils.FromABI((*big.Int)(r.ChannelID))
}

func (r *MonitorRequest) nonce() *uint256.Int {
	return bigutils.FromABI((*big.Int)(r.Nonce))
}

// BalanceProof rebuilds the closing participant's balance proof.
func (r *MonitorRequest) BalanceProof(chainID *uint256.Int) *tokennetwork.BalanceProof {
	return &tokennetwork.BalanceProof{
		TokenNetwork:   r.TokenNetwork,
		ChainID:        chainID,
		ChannelID:      r.channelID(),
		BalanceHash:    r.BalanceHash,
		Nonce:          r.nonce(),
		AdditionalHash: r.AdditionalHash,
	}
}

func (r *MonitorRequest) RewardProof(msc common.Address, chainID *uint256.Int) *monitoring.RewardProof {
	return &monitoring.RewardProof{
		MonitoringServiceContract: msc,
		ChainID:                   chainID,
		TokenNetwork:              r.TokenNetwork,
		NonClosingParticipant:     r.NonClosingParticipant,
		NonClosingSignature:       r.NonClosingSignature,
		RewardAmount:              bigutils.FromABI((*big.Int)(r.RewardAmount)),
	}
}

// Verify checks the three signatures of r off chain, the same way the contracts will.
func (r *MonitorRequest) Verify(msc common.Address, chainID *uint256.Int) error {
	for _, v := range []*hexutil.Big{r.ChannelID, r.Nonce, r.RewardAmount} {
		if _, ok := bigutils.FromBig((*big.Int)(v)); !ok {
			return ErrInvalidNumber
		}
	}
	if r.ClosingParticipant == r.NonClosingParticipant {
		return ErrSameParticipants
	}
	if r.nonce().IsZero() {
		return ErrZeroNonce
	}
	bp := r.BalanceProof(chainID)
	if signer, err := bp.RecoverSigner(r.ClosingSignature); err != nil || signer != r.ClosingParticipant {
		return ErrBadClosingSig
	}
	signer, err := bp.RecoverCounterSigner(tokennetwork.MessageTypeBalanceProofUpdate, r.ClosingSignature, r.NonClosingSignature)
	if err != nil || signer != r.NonClosingParticipant {
		return ErrBadNonClosingSig
	}
	signer, err = r.RewardProof(msc, chainID).RecoverSigner(r.RewardProofSignature)
	if err != nil || signer != r.NonClosingParticipant {
		return ErrBadRewardProofSig
	}
	return nil
}

func (r *MonitorRequest) PackMonitor(chainID *uint256.Int) []byte {
	return monitoring.PackMonitor(r.ClosingParticipant, r.NonClosingParticipant, r.BalanceProof(chainID),
		r.ClosingSignature, r.NonClosingSignature, (*big.Int)(r.RewardAmount), r.TokenNetwork, r.RewardProofSignature)
}

func (r *MonitorRequest) PackClaimReward() []byte {
	return monitoring.PackClaimReward((*big.Int)(r.ChannelID), r.TokenNetwork, r.ClosingParticipant, r.NonClosingParticipant)
}

// Key identifies the channel side r watches: token network, channel and non-closing participant.
func (r *MonitorRequest) Key() []byte {
	return requestKey(r.TokenNetwork, r.channelID(), r.NonClosingParticipant)
}

func requestKey(network common.Address, channelID *uint256.Int, nonClosing common.Address) []byte {
	key := make([]byte, 0, 1+20+32+20)
	key = append(key, prefixRequest)
	key = append(key, network[:]...)
	key = append(key, bigutils.U256ToSlice32(channelID)...)
	return append(key, nonClosing[:]...)
}

// MarshalMsg implements msgp.Marshaler
func (z *MonitorRequest) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 14)
	o = msgp.AppendString(o, "token_network")
	o = msgp.AppendBytes(o, z.TokenNetwork[:])
	o = msgp.AppendString(o, "channel_id")
	o = msgp.AppendBytes(o, bigutils.U256ToSlice32(z.channelID()))
	o = msgp.AppendString(o, "closing")
	o = msgp.AppendBytes(o, z.ClosingParticipant[:])
	o = msgp.AppendString(o, "non_closing")
	o = msgp.AppendBytes(o, z.NonClosingParticipant[:])
	o = msgp.AppendString(o, "balance_hash")
	o = msgp.AppendBytes(o, z.BalanceHash[:])
	o = msgp.AppendString(o, "nonce")
	o = msgp.AppendBytes(o, bigutils.U256ToSlice32(z.nonce()))
	o = msgp.AppendString(o, "additional_hash")
	o = msgp.AppendBytes(o, z.AdditionalHash[:])
	o = msgp.AppendString(o, "closing_sig")
	o = msgp.AppendBytes(o, z.ClosingSignature)
	o = msgp.AppendString(o, "non_closing_sig")
	o = msgp.AppendBytes(o, z.NonClosingSignature)
	o = msgp.AppendString(o, "reward_amount")
	o = msgp.AppendBytes(o, bigutils.U256ToSlice32(bigutils.FromABI((*big.Int)(z.RewardAmount))))
	o = msgp.AppendString(o, "reward_proof_sig")
	o = msgp.AppendBytes(o, z.RewardProofSignature)
	o = msgp.AppendString(o, "settle_block")
	o = msgp.AppendUint64(o, z.SettleBlock)
	o = msgp.AppendString(o, "first_allowed")
	o = msgp.AppendUint64(o, z.FirstAllowed)
	o = msgp.AppendString(o, "monitored")
	o = msgp.AppendBool(o, z.Monitored)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *MonitorRequest) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field, bz []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		name := msgp.UnsafeString(field)
		switch name {
		case "settle_block":
			z.SettleBlock, bts, err = msgp.ReadUint64Bytes(bts)
		case "first_allowed":
			z.FirstAllowed, bts, err = msgp.ReadUint64Bytes(bts)
		case "monitored":
			z.Monitored, bts, err = msgp.ReadBoolBytes(bts)
		default:
			bz, bts, err = msgp.ReadBytesBytes(bts, nil)
			if err == nil {
				z.setField(name, bz)
			}
		}
		if err != nil {
			err = msgp.WrapError(err, name)
			return
		}
	}
	o = bts
	return
}

func (z *MonitorRequest) setField(name string, bz []byte) {
	word := func() *hexutil.Big {
		return (*hexutil.Big)(new(big.Int).SetBytes(bz))
	}
	switch name {
	case "token_network":
		z.TokenNetwork = common.BytesToAddress(bz)
	case "channel_id":
		z.ChannelID = word()
	case "closing":
		z.ClosingParticipant = common.BytesToAddress(bz)
	case "non_closing":
		z.NonClosingParticipant = common.BytesToAddress(bz)
	case "balance_hash":
		z.BalanceHash = common.BytesToHash(bz)
	case "nonce":
		z.Nonce = word()
	case "additional_hash":
		z.AdditionalHash = common.BytesToHash(bz)
	case "closing_sig":
		z.ClosingSignature = bz
	case "non_closing_sig":
		z.NonClosingSignature = bz
	case "reward_amount":
		z.RewardAmount = word()
	case "reward_proof_sig":
		z.RewardProofSignature = bz
	}
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *MonitorRequest) Msgsize() (s int) {
	s = 1 + 11*(16+msgp.BytesPrefixSize) + 4*32 + 3*20 + 2*32 +
		len(z.ClosingSignature) + len(z.NonClosingSignature) + len(z.RewardProofSignature) +
		3*14 + 2*msgp.Uint64Size + msgp.BoolSize
	return
}
