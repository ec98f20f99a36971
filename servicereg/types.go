package servicereg

import (
	"github.com/tinylib/msgp/msgp"
)

// Registration is the stake record of one monitoring service.
type Registration struct {
	ValidTill uint64 `msg:"valid_till"`
	// the sum of all deposits, 32-byte big-endian
	Deposit []byte `msg:"deposit"`
	Count   uint64 `msg:"count"`
}

// MarshalMsg implements msgp.Marshaler
func (z *Registration) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 3)
	o = msgp.AppendString(o, "valid_till")
	o = msgp.AppendUint64(o, z.ValidTill)
	o = msgp.AppendString(o, "deposit")
	o = msgp.AppendBytes(o, z.Deposit)
	o = msgp.AppendString(o, "count")
	o = msgp.AppendUint64(o, z.Count)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Registration) UnmarshalMsg(bts []byte) (o []byte, err error) {
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
		case "valid_till":
			z.ValidTill, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "ValidTill")
				return
			}
		case "deposit":
			z.Deposit, bts, err = msgp.ReadBytesBytes(bts, z.Deposit)
			if err != nil {
				err = msgp.WrapError(err, "Deposit")
				return
			}
		case "count":
			z.Count, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Count")
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
func (z *Registration) Msgsize() (s int) {
	s = 1 + 11 + msgp.Uint64Size + 8 + msgp.BytesPrefixSize + len(z.Deposit) + 6 + msgp.Uint64Size
	return
}
