package badgerstore

import (
	"encoding/binary"
	"fmt"

	"github.com/csnode/corenode/blockchain"
	"github.com/dgraph-io/badger"
)

const blockPrefix = "block"

func blockKey(seq blockchain.Sequence) []byte {
	buf := make([]byte, len(blockPrefix)+8)
	copy(buf, blockPrefix)
	binary.BigEndian.PutUint64(buf[len(blockPrefix):], seq)
	return buf
}

const lastSequenceKey = "last_sequence"

// Chain is a Badger-backed blockchain.BlockChain. Pools are stored under
// their big-endian sequence key; LastSequence is cached under a dedicated
// key so it survives restarts without a full table scan.
type Chain struct {
	blockchain.Subscribers

	db   *badger.DB
	path string
}

// NewChain opens (creating if necessary) a Badger database at path.
func NewChain(path string) (*Chain, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", path, err)
	}

	return &Chain{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (c *Chain) Close() error {
	return c.db.Close()
}

// LastSequence implements blockchain.BlockChain.
func (c *Chain) LastSequence() blockchain.Sequence {
	var last blockchain.Sequence
	c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastSequenceKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			last = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	return last
}

// StoreBlock implements blockchain.BlockChain.
func (c *Chain) StoreBlock(pool *blockchain.Pool) (blockchain.StoreResult, error) {
	if _, ok := c.GetBlock(pool.Seq); ok {
		return blockchain.Duplicate, nil
	}

	last := c.LastSequence()
	if pool.Seq != last+1 && !(last == 0 && pool.Seq == 0) {
		return blockchain.Invalid, nil
	}

	val, err := pool.Marshal()
	if err != nil {
		return blockchain.Invalid, err
	}

	tx := c.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(blockKey(pool.Seq), val); err != nil {
		return blockchain.Invalid, err
	}
	if pool.Seq > last {
		lastBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(lastBuf, pool.Seq)
		if err := tx.Set([]byte(lastSequenceKey), lastBuf); err != nil {
			return blockchain.Invalid, err
		}
	}
	if err := tx.Commit(); err != nil {
		return blockchain.Invalid, err
	}

	c.FireStored(pool.Seq)
	return blockchain.Stored, nil
}

// GetBlock implements blockchain.BlockChain.
func (c *Chain) GetBlock(seq blockchain.Sequence) (*blockchain.Pool, bool) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false
	}

	pool := new(blockchain.Pool)
	if err := pool.Unmarshal(raw); err != nil {
		return nil, false
	}
	return pool, true
}
