package ethutils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

type ABIWrapper struct {
	_abi abi.ABI
}

func (a ABIWrapper) GetABI() abi.ABI {
	return a._abi
}

func (a ABIWrapper) Pack(name string, args ...interface{}) ([]byte, error) {
	return a._abi.Pack(name, args...)
}

func (a ABIWrapper) MustPack(name string, args ...interface{}) []byte {
	bytes, err := a._abi.Pack(name, args...)
	if err != nil {
		panic(err)
	}
	return bytes
}

func (a ABIWrapper) MustUnpack(name string, data []byte) []interface{} {
	ret, err := a._abi.Unpack(name, data)
	if err != nil {
		panic(err)
	}
	return ret
}

// MethodSelector returns the 4-byte selector of a method, panics if it is not in the ABI.
func (a ABIWrapper) MethodSelector(name string) [4]byte {
	m, ok := a._abi.Methods[name]
	if !ok {
		panic("no such method: " + name)
	}
	var sel [4]byte
	copy(sel[:], m.ID)
	return sel
}

func (a ABIWrapper) EventID(name string) common.Hash {
	ev, ok := a._abi.Events[name]
	if !ok {
		panic("no such event: " + name)
	}
	return ev.ID
}

// UnpackInput decodes the call data (without selector) of method 'name' into the struct
// pointed by 'v'. Struct fields are matched with the camel-cased argument names.
func (a ABIWrapper) UnpackInput(name string, callData []byte, v interface{}) error {
	m, ok := a._abi.Methods[name]
	if !ok {
		return fmt.Errorf("no such method: %s", name)
	}
	values, err := m.Inputs.Unpack(callData)
	if err != nil {
		return err
	}
	return m.Inputs.Copy(v, values)
}

func (a ABIWrapper) PackOutput(name string, args ...interface{}) ([]byte, error) {
	m, ok := a._abi.Methods[name]
	if !ok {
		return nil, fmt.Errorf("no such method: %s", name)
	}
	return m.Outputs.Pack(args...)
}

func (a ABIWrapper) MustPackOutput(name string, args ...interface{}) []byte {
	bz, err := a.PackOutput(name, args...)
	if err != nil {
		panic(err)
	}
	return bz
}

// MustBuildLog builds an EVM log of event 'name' emitted by 'contract'. The arguments are
// given in declaration order; indexed ones go to topics and the others are ABI-packed.
func (a ABIWrapper) MustBuildLog(contract common.Address, name string, args ...interface{}) *gethtypes.Log {
	ev, ok := a._abi.Events[name]
	if !ok {
		panic("no such event: " + name)
	}
	if len(args) != len(ev.Inputs) {
		panic(fmt.Sprintf("event %s: want %d args, got %d", name, len(ev.Inputs), len(args)))
	}
	log := &gethtypes.Log{
		Address: contract,
		Topics:  make([]common.Hash, 0, 4),
	}
	log.Topics = append(log.Topics, ev.ID)
	nonIndexed := make([]interface{}, 0, len(args))
	for i, input := range ev.Inputs {
		if input.Indexed {
			log.Topics = append(log.Topics, toTopic(args[i]))
		} else {
			nonIndexed = append(nonIndexed, args[i])
		}
	}
	data, err := ev.Inputs.NonIndexed().Pack(nonIndexed...)
	if err != nil {
		panic(err)
	}
	log.Data = data
	return log
}

// UnpackLog decodes both the topics and the data of 'log' into a map keyed by argument name.
func (a ABIWrapper) UnpackLog(name string, log *gethtypes.Log) (map[string]interface{}, error) {
	ev, ok := a._abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("no such event: %s", name)
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return nil, fmt.Errorf("log is not a %s event", name)
	}
	out := make(map[string]interface{})
	if len(log.Data) > 0 {
		if err := ev.Inputs.NonIndexed().UnpackIntoMap(out, log.Data); err != nil {
			return nil, err
		}
	}
	var indexed abi.Arguments
	for _, input := range ev.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopicsIntoMap(out, indexed, log.Topics[1:]); err != nil {
		return nil, err
	}
	return out, nil
}

func toTopic(arg interface{}) common.Hash {
	switch v := arg.(type) {
	case common.Address:
		return common.BytesToHash(v.Bytes())
	case common.Hash:
		return v
	case [32]byte:
		return v
	case *big.Int:
		return common.BigToHash(v)
	default:
		panic(fmt.Sprintf("unsupported topic type %T", arg))
	}
}

func MustParseABI(abiJSON string) ABIWrapper {
	_abi, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(err)
	}
	return ABIWrapper{_abi}
}
