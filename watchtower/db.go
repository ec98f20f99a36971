package watchtower

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	prefixRequest byte = 'r'
	prefixMeta    byte = 'm'
)

var keyLastBlock = []byte{prefixMeta, 'b'}

// DB stores monitor requests, at most one per channel side, and the last block whose
// logs the agent has processed.
type DB struct {
	_db *leveldb.DB
}

// OpenDB opens the database under path, an empty path gives an in-memory database.
func OpenDB(path string) (*DB, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open watchtower db: %w", err)
	}
	return &DB{_db: db}, nil
}

func (d *DB) Close() error {
	return d._db.Close()
}

// Get returns nil when no request is stored for the channel side.
func (d *DB) Get(network common.Address, channelID *uint256.Int, nonClosing common.Address) (*MonitorRequest, error) {
	return d.get(requestKey(network, channelID, nonClosing))
}

func (d *DB) get(key []byte) (*MonitorRequest, error) {
	bz, err := d._db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	req := &MonitorRequest{}
	if _, err = req.UnmarshalMsg(bz); err != nil {
		return nil, fmt.Errorf("corrupted monitor request: %w", err)
	}
	return req, nil
}

// Put stores req unless a request with the same or a higher nonce is already stored
// for its channel side, in which case false is returned.
func (d *DB) Put(req *MonitorRequest) (bool, error) {
	old, err := d.get(req.Key())
	if err != nil {
		return false, err
	}
	if old != nil && !old.nonce().Lt(req.nonce()) {
		return false, nil
	}
	return true, d.Update(req)
}

// Update overwrites the stored request, the agent uses it to save its progress.
func (d *DB) Update(req *MonitorRequest) error {
	bz, err := req.MarshalMsg(nil)
	if err != nil {
		return err
	}
	return d._db.Put(req.Key(), bz, &opt.WriteOptions{Sync: true})
}

func (d *DB) Delete(req *MonitorRequest) error {
	return d._db.Delete(req.Key(), &opt.WriteOptions{Sync: true})
}

// Requests returns all stored requests ordered by key.
func (d *DB) Requests() ([]*MonitorRequest, error) {
	iter := d._db.NewIterator(util.BytesPrefix([]byte{prefixRequest}), nil)
	defer iter.Release()
	var res []*MonitorRequest
	for iter.Next() {
		req := &MonitorRequest{}
		if _, err := req.UnmarshalMsg(iter.Value()); err != nil {
			return nil, fmt.Errorf("corrupted monitor request: %w", err)
		}
		res = append(res, req)
	}
	return res, iter.Error()
}

func (d *DB) LastBlock() (uint64, error) {
	bz, err := d._db.Get(keyLastBlock, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(bz), nil
}

func (d *DB) SetLastBlock(height uint64) error {
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], height)
	return d._db.Put(keyLastBlock, bz[:], &opt.WriteOptions{Sync: true})
}
