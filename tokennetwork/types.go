package tokennetwork

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/tinylib/msgp/msgp"
)

const (
	StateNonExistent uint8 = 0
	StateOpened      uint8 = 1
	StateClosed      uint8 = 2
	StateSettled     uint8 = 3
	StateRemoved     uint8 = 4
)

// Participant holds the on-chain view of one side of a channel. Amounts and the nonce are
// 32-byte big-endian words.
type Participant struct {
	Address     []byte `msg:"address"`
	Deposit     []byte `msg:"deposit"`
	IsCloser    bool   `msg:"is_closer"`
	BalanceHash []byte `msg:"balance_hash"`
	Nonce       []byte `msg:"nonce"`
}

type Channel struct {
	// the settle timeout while the channel is open, the settle block once it is closed
	SettleBlockNumber uint64      `msg:"settle_block_number"`
	State             uint8       `msg:"state"`
	Participant1      Participant `msg:"participant1"`
	Participant2      Participant `msg:"participant2"`
}

// GetParticipant returns nil for an address which is not part of the channel.
func (ch *Channel) GetParticipant(addr common.Address) *Participant {
	if common.BytesToAddress(ch.Participant1.Address) == addr {
		return &ch.Participant1
	}
	if common.BytesToAddress(ch.Participant2.Address) == addr {
		return &ch.Participant2
	}
	return nil
}

// MarshalMsg implements msgp.Marshaler
func (z *Participant) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 5)
	o = msgp.AppendString(o, "address")
	o = msgp.AppendBytes(o, z.Address)
	o = msgp.AppendString(o, "deposit")
	o = msgp.AppendBytes(o, z.Deposit)
	o = msgp.AppendString(o, "is_closer")
	o = msgp.AppendBool(o, z.IsCloser)
	o = msgp.AppendString(o, "balance_hash")
	o = msgp.AppendBytes(o, z.BalanceHash)
	o = msgp.AppendString(o, "nonce")
	o = msgp.AppendBytes(o, z.Nonce)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Participant) UnmarshalMsg(bts []byte) (o []byte, err error) {
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
		case "address":
			z.Address, bts, err = msgp.ReadBytesBytes(bts, z.Address)
			if err != nil {
				err = msgp.WrapError(err, "Address")
				return
			}
		case "deposit":
			z.Deposit, bts, err = msgp.ReadBytesBytes(bts, z.Deposit)
			if err != nil {
				err = msgp.WrapError(err, "Deposit")
				return
			}
		case "is_closer":
			z.IsCloser, bts, err = msgp.ReadBoolBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "IsCloser")
				return
			}
		case "balance_hash":
			z.BalanceHash, bts, err = msgp.ReadBytesBytes(bts, z.BalanceHash)
			if err != nil {
				err = msgp.WrapError(err, "BalanceHash")
				return
			}
		case "nonce":
			z.Nonce, bts, err = msgp.ReadBytesBytes(bts, z.Nonce)
			if err != nil {
				err = msgp.WrapError(err, "Nonce")
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
func (z *Participant) Msgsize() (s int) {
	s = 1 + 8 + msgp.BytesPrefixSize + len(z.Address) + 8 + msgp.BytesPrefixSize + len(z.Deposit) +
		10 + msgp.BoolSize + 13 + msgp.BytesPrefixSize + len(z.BalanceHash) + 6 + msgp.BytesPrefixSize + len(z.Nonce)
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *Channel) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "settle_block_number")
	o = msgp.AppendUint64(o, z.SettleBlockNumber)
	o = msgp.AppendString(o, "state")
	o = msgp.AppendUint8(o, z.State)
	o = msgp.AppendString(o, "participant1")
	o, err = z.Participant1.MarshalMsg(o)
	if err != nil {
		err = msgp.WrapError(err, "Participant1")
		return
	}
	o = msgp.AppendString(o, "participant2")
	o, err = z.Participant2.MarshalMsg(o)
	if err != nil {
		err = msgp.WrapError(err, "Participant2")
		return
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Channel) UnmarshalMsg(bts []byte) (o []byte, err error) {
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
		case "settle_block_number":
			z.SettleBlockNumber, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "SettleBlockNumber")
				return
			}
		case "state":
			z.State, bts, err = msgp.ReadUint8Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "State")
				return
			}
		case "participant1":
			bts, err = z.Participant1.UnmarshalMsg(bts)
			if err != nil {
				err = msgp.WrapError(err, "Participant1")
				return
			}
		case "participant2":
			bts, err = z.Participant2.UnmarshalMsg(bts)
			if err != nil {
				err = msgp.WrapError(err, "Participant2")
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
func (z *Channel) Msgsize() (s int) {
	s = 1 + 20 + msgp.Uint64Size + 6 + msgp.Uint8Size + 13 + z.Participant1.Msgsize() + 13 + z.Participant2.Msgsize()
	return
}
