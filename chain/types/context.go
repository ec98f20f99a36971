package types

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

const (
	PrefixStorage byte = 's'
	PrefixKind    byte = 'k'
	PrefixNonce   byte = 'n'
	PrefixMeta    byte = 'm'
	// written by the chain only, never through a Context
	PrefixReceipt  byte = 'r'
	PrefixLogIndex byte = 'l'
)

var ErrNoDispatcher = errors.New("message calls are not supported here")

type KVReader interface {
	Get(key []byte) []byte
}

// Dispatcher routes a message call to the executor of the callee.
type Dispatcher interface {
	Dispatch(ctx *Context, block *BlockInfo, tx *TxToRun) (status int, outData []byte)
}

type KV struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

type cacheEntry struct {
	value   []byte
	deleted bool
}

// Context is a write-back overlay over a KVReader. All the reads and writes of one
// transaction go through a Context, and nothing reaches the parent until the chain
// collects Changes() of a successful execution.
type Context struct {
	parent KVReader
	cache  map[string]*cacheEntry
	logs   []*gethtypes.Log
	Height uint64

	dispatcher Dispatcher
}

func NewContext(parent KVReader, height uint64) *Context {
	return &Context{
		parent: parent,
		cache:  make(map[string]*cacheEntry),
		Height: height,
	}
}

func (c *Context) SetDispatcher(d Dispatcher) {
	c.dispatcher = d
}

// Call runs a message call from contract 'from' to contract 'to' on a child context.
// The writes and logs of the callee reach c only when it succeeds.
func (c *Context) Call(block *BlockInfo, from, to common.Address, data []byte) (status int, outData []byte) {
	if c.dispatcher == nil {
		return StatusFailed, []byte(ErrNoDispatcher.Error())
	}
	child := NewContext(c, c.Height)
	child.dispatcher = c.dispatcher
	status, outData = c.dispatcher.Dispatch(child, block, &TxToRun{From: from, To: to, Data: data})
	if status == StatusSuccess {
		child.WriteBack()
	}
	return
}

// Get makes a Context usable as the parent of another one.
func (c *Context) Get(key []byte) []byte {
	if e, ok := c.cache[string(key)]; ok {
		if e.deleted {
			return nil
		}
		return e.value
	}
	if c.parent == nil {
		return nil
	}
	return c.parent.Get(key)
}

func (c *Context) set(key []byte, value []byte) {
	bz := make([]byte, len(value))
	copy(bz, value)
	c.cache[string(key)] = &cacheEntry{value: bz}
}

func (c *Context) del(key []byte) {
	c.cache[string(key)] = &cacheEntry{deleted: true}
}

func StorageKey(addr common.Address, slot string) []byte {
	key := make([]byte, 0, 1+common.AddressLength+len(slot))
	key = append(key, PrefixStorage)
	key = append(key, addr[:]...)
	return append(key, slot...)
}

func KindKey(addr common.Address) []byte {
	return append([]byte{PrefixKind}, addr[:]...)
}

func NonceKey(addr common.Address) []byte {
	return append([]byte{PrefixNonce}, addr[:]...)
}

func MetaKey(name string) []byte {
	return append([]byte{PrefixMeta}, name...)
}

func ReceiptKey(txHash common.Hash) []byte {
	return append([]byte{PrefixReceipt}, txHash[:]...)
}

// LogIndexKey sorts by height, so a block range is a key range.
func LogIndexKey(height uint64) []byte {
	key := make([]byte, 9)
	key[0] = PrefixLogIndex
	binary.BigEndian.PutUint64(key[1:], height)
	return key
}

func (c *Context) GetStorageAt(addr common.Address, slot string) []byte {
	return c.Get(StorageKey(addr, slot))
}

func (c *Context) SetStorageAt(addr common.Address, slot string, value []byte) {
	c.set(StorageKey(addr, slot), value)
}

func (c *Context) DeleteStorageAt(addr common.Address, slot string) {
	c.del(StorageKey(addr, slot))
}

// GetU256At reads a 32-byte big-endian word, a missing slot reads as zero.
func (c *Context) GetU256At(addr common.Address, slot string) *uint256.Int {
	bz := c.GetStorageAt(addr, slot)
	if len(bz) == 0 {
		return uint256.NewInt(0)
	}
	return uint256.NewInt(0).SetBytes(bz)
}

// SetU256At deletes the slot when v is zero.
func (c *Context) SetU256At(addr common.Address, slot string, v *uint256.Int) {
	if v.IsZero() {
		c.DeleteStorageAt(addr, slot)
		return
	}
	bz := v.Bytes32()
	c.SetStorageAt(addr, slot, bz[:])
}

func (c *Context) GetAddressAt(addr common.Address, slot string) common.Address {
	return common.BytesToAddress(c.GetStorageAt(addr, slot))
}

func (c *Context) SetAddressAt(addr common.Address, slot string, v common.Address) {
	c.SetStorageAt(addr, slot, v[:])
}

// GetContractKind returns "" for addresses without deployed contracts.
func (c *Context) GetContractKind(addr common.Address) string {
	return string(c.Get(KindKey(addr)))
}

func (c *Context) SetContractKind(addr common.Address, kind string) {
	c.set(KindKey(addr), []byte(kind))
}

func (c *Context) GetNonce(addr common.Address) uint64 {
	bz := c.Get(NonceKey(addr))
	if len(bz) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

func (c *Context) SetNonce(addr common.Address, nonce uint64) {
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], nonce)
	c.set(NonceKey(addr), bz[:])
}

func (c *Context) AddLog(log *gethtypes.Log) {
	c.logs = append(c.logs, log)
}

func (c *Context) Logs() []*gethtypes.Log {
	return c.logs
}

// Changes returns the pending writes sorted by key.
func (c *Context) Changes() []KV {
	res := make([]KV, 0, len(c.cache))
	for k, e := range c.cache {
		res = append(res, KV{Key: []byte(k), Value: e.value, Deleted: e.deleted})
	}
	sort.Slice(res, func(i, j int) bool {
		return string(res[i].Key) < string(res[j].Key)
	})
	return res
}

// WriteBack merges the pending writes and logs into a parent Context.
func (c *Context) WriteBack() {
	parent, ok := c.parent.(*Context)
	if !ok {
		panic("parent is not a Context")
	}
	for k, e := range c.cache {
		parent.cache[k] = e
	}
	parent.logs = append(parent.logs, c.logs...)
}
