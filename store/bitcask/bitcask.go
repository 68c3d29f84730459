// Package bitcask adapts git.mills.io/prologic/bitcask. Bitcask has no
// transactions: Set applies immediately and Commit/Rollback are no-ops,
// so writes are not atomic per transaction.
package bitcask

import (
	"bytes"
	"sort"

	"git.mills.io/prologic/bitcask"
	"github.com/minidb-io/minidb/store"
)

const maxValueSize = 1 << 24

type bitcaskStore struct {
	db *bitcask.Bitcask
}

func Open(dir string) (store.Store, error) {
	db, err := bitcask.Open(dir, bitcask.WithMaxValueSize(maxValueSize))
	if err != nil {
		return nil, err
	}
	return &bitcaskStore{db: db}, nil
}

func (s *bitcaskStore) Begin(update bool) (store.Tx, error) {
	return &bitcaskTx{s.db}, nil
}

func (s *bitcaskStore) Close() error {
	return s.db.Close()
}

type bitcaskTx struct {
	*bitcask.Bitcask
}

func (tx *bitcaskTx) Set(key, value []byte) error {
	return tx.Bitcask.Put(key, value)
}

func (tx *bitcaskTx) Cursor(forward bool) (store.Cursor, error) {
	// bitcask's keydir does not expose ordered iteration, so the cursor
	// snapshots and sorts the keys up front
	keys := make([][]byte, 0)
	for key := range tx.Bitcask.Keys() {
		keys = append(keys, append([]byte{}, key...))
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	})

	return &bitcaskCursor{
		db:      tx.Bitcask,
		keys:    keys,
		forward: forward,
		pos:     -1,
	}, nil
}

func (tx *bitcaskTx) Commit() error {
	return tx.Bitcask.Sync()
}

func (tx *bitcaskTx) Rollback() error {
	return nil
}

type bitcaskCursor struct {
	db      *bitcask.Bitcask
	keys    [][]byte
	forward bool
	pos     int
}

func (c *bitcaskCursor) Seek(seek []byte) error {
	if c.forward {
		c.pos = 0
		if seek != nil {
			c.pos = sort.Search(len(c.keys), func(i int) bool {
				return bytes.Compare(c.keys[i], seek) >= 0
			})
		}
	} else {
		c.pos = len(c.keys) - 1
		if seek != nil {
			c.pos = sort.Search(len(c.keys), func(i int) bool {
				return bytes.Compare(c.keys[i], seek) > 0
			}) - 1
		}
	}
	return nil
}

func (c *bitcaskCursor) Next() {
	if c.forward {
		c.pos++
	} else {
		c.pos--
	}
}

func (c *bitcaskCursor) Valid() bool {
	return c.pos >= 0 && c.pos < len(c.keys)
}

func (c *bitcaskCursor) Item() (store.Item, error) {
	key := c.keys[c.pos]
	value, err := c.db.Get(key)
	if err != nil {
		return store.Item{}, err
	}
	return store.Item{Key: key, Value: value}, nil
}

func (c *bitcaskCursor) Close() error {
	return nil
}
