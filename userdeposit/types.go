package userdeposit

import (
	"github.com/tinylib/msgp/msgp"
)

type WithdrawPlan struct {
	// 32-byte big-endian
	Amount        []byte `msg:"amount"`
	WithdrawBlock uint64 `msg:"withdraw_block"`
}

// MarshalMsg implements msgp.Marshaler
func (z *WithdrawPlan) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 2)
	o = msgp.AppendString(o, "amount")
	o = msgp.AppendBytes(o, z.Amount)
	o = msgp.AppendString(o, "withdraw_block")
	o = msgp.AppendUint64(o, z.WithdrawBlock)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *WithdrawPlan) UnmarshalMsg(bts []byte) (o []byte, err error) {
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
		case "amount":
			z.Amount, bts, err = msgp.ReadBytesBytes(bts, z.Amount)
			if err != nil {
				err = msgp.WrapError(err, "Amount")
				return
			}
		case "withdraw_block":
			z.WithdrawBlock, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "WithdrawBlock")
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
func (z *WithdrawPlan) Msgsize() (s int) {
	s = 1 + 7 + msgp.BytesPrefixSize + len(z.Amount) + 15 + msgp.Uint64Size
	return
}
