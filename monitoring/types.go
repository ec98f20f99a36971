package monitoring

import (
	"github.com/tinylib/msgp/msgp"
)

// Reward is what the contract remembers about the latest balance proof submitted for a
// channel. Amounts are 32-byte big-endian words.
type Reward struct {
	RewardAmount             []byte `msg:"reward_amount"`
	Nonce                    []byte `msg:"nonce"`
	RewardSenderAddress      []byte `msg:"reward_sender_address"`
	MonitoringServiceAddress []byte `msg:"monitoring_service_address"`
}

// MarshalMsg implements msgp.Marshaler
func (z *Reward) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "reward_amount")
	o = msgp.AppendBytes(o, z.RewardAmount)
	o = msgp.AppendString(o, "nonce")
	o = msgp.AppendBytes(o, z.Nonce)
	o = msgp.AppendString(o, "reward_sender_address")
	o = msgp.AppendBytes(o, z.RewardSenderAddress)
	o = msgp.AppendString(o, "monitoring_service_address")
	o = msgp.AppendBytes(o, z.MonitoringServiceAddress)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Reward) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
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
		switch msgp.UnsafeString(field) {
		case "reward_amount":
			z.RewardAmount, bts, err = msgp.ReadBytesBytes(bts, z.RewardAmount)
			if err != nil {
				err = msgp.WrapError(err, "RewardAmount")
				return
			}
		case "nonce":
			z.Nonce, bts, err = msgp.ReadBytesBytes(bts, z.Nonce)
			if err != nil {
				err = msgp.WrapError(err, "Nonce")
				return
			}
		case "reward_sender_address":
			z.RewardSenderAddress, bts, err = msgp.ReadBytesBytes(bts, z.RewardSenderAddress)
			if err != nil {
				err = msgp.WrapError(err, "RewardSenderAddress")
				return
			}
		case "monitoring_service_address":
			z.MonitoringServiceAddress, bts, err = msgp.ReadBytesBytes(bts, z.MonitoringServiceAddress)
			if err != nil {
				err = msgp.WrapError(err, "MonitoringServiceAddress")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *Reward) Msgsize() (s int) {
	s = 1 + 14 + msgp.BytesPrefixSize + len(z.RewardAmount) + 6 + msgp.BytesPrefixSize + len(z.Nonce) +
		22 + msgp.BytesPrefixSize + len(z.RewardSenderAddress) + 27 + msgp.BytesPrefixSize + len(z.MonitoringServiceAddress)
	return
}
