package chain

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/smartbch/watchtower/chain/types"
)

// Store keeps the committed world state in leveldb.
type Store struct {
	_db *leveldb.DB
}

var _ types.KVReader = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{_db: db}, nil
}

func NewMemStore() *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic(err)
	}
	return &Store{_db: db}
}

func (s *Store) Close() error {
	return s._db.Close()
}

func (s *Store) Get(key []byte) []byte {
	bz, err := s._db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil
		}
		panic(err)
	}
	return bz
}

// Write applies the changes atomically.
func (s *Store) Write(changes []types.KV) error {
	batch := new(leveldb.Batch)
	for _, kv := range changes {
		if kv.Deleted {
			batch.Delete(kv.Key)
		} else {
			batch.Put(kv.Key, kv.Value)
		}
	}
	return s._db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Iterate calls fn on the keys in [start, end) in order, until fn returns false.
func (s *Store) Iterate(start, end []byte, fn func(key, value []byte) bool) {
	iter := s._db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	defer iter.Release()
	for iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		panic(err)
	}
}
