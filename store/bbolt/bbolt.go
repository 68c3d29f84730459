package bbolt

import (
	"path/filepath"
	"time"

	"github.com/minidb-io/minidb/store"
	"go.etcd.io/bbolt"
)

type boltStore struct {
	db *bbolt.DB
}

const (
	dbFileName = "data.db"
	rootBucket = "root"
)

func Open(dir string) (store.Store, error) {
	// a finite lock timeout turns a concurrently held file lock into an
	// open error instead of blocking forever
	db, err := bbolt.Open(filepath.Join(dir, dbFileName), 0666, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	s := &boltStore{db: db}
	err = s.createRootBucketIfNotExists()
	return s, err
}

func (s *boltStore) createRootBucketIfNotExists() error {
	tx, err := s.db.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.CreateBucketIfNotExists([]byte(rootBucket))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *boltStore) Begin(update bool) (store.Tx, error) {
	tx, err := s.db.Begin(update)
	return &boltTx{Tx: tx}, err
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

type boltTx struct {
	*bbolt.Tx
}

func (tx *boltTx) bucket() *bbolt.Bucket {
	return tx.Bucket([]byte(rootBucket))
}

func (tx *boltTx) Set(key, value []byte) error {
	bucket := tx.bucket()
	return bucket.Put(key, value)
}

func (tx *boltTx) Cursor(forward bool) (store.Cursor, error) {
	bucket := tx.bucket()
	cursor := bucket.Cursor()
	return &boltCursor{
		Cursor:  cursor,
		forward: forward,
	}, nil
}

func (tx *boltTx) Commit() error {
	return tx.Tx.Commit()
}

func (tx *boltTx) Rollback() error {
	return tx.Tx.Rollback()
}

type boltCursor struct {
	*bbolt.Cursor
	forward bool

	currItem *store.Item
}

func (c *boltCursor) setItem(key, value []byte) {
	c.currItem = &store.Item{
		Key:   key,
		Value: value,
	}
}

func (c *boltCursor) Seek(seek []byte) error {
	if seek == nil {
		if c.forward {
			c.setItem(c.Cursor.First())
		} else {
			c.setItem(c.Cursor.Last())
		}
		return nil
	}

	key, value := c.Cursor.Seek(seek)
	c.setItem(key, value)

	// a reverse cursor seeks to the greatest key <= seek
	if !c.forward && (key == nil || string(key) > string(seek)) {
		c.setItem(c.Cursor.Prev())
	}
	return nil
}

func (c *boltCursor) Next() {
	if c.forward {
		c.setItem(c.Cursor.Next())
	} else {
		c.setItem(c.Cursor.Prev())
	}
}

func (c *boltCursor) Valid() bool {
	return c.currItem != nil && c.currItem.Key != nil
}

func (c *boltCursor) Item() (store.Item, error) {
	return *c.currItem, nil
}

func (c *boltCursor) Close() error {
	return nil
}
