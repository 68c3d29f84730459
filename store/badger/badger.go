package badger

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/minidb-io/minidb/store"
)

type badgerStore struct {
	db     *badger.DB
	chWg   sync.WaitGroup
	chQuit chan struct{}

	gcInterval     time.Duration
	gcDiscardRatio float64
}

func (s *badgerStore) Begin(update bool) (store.Tx, error) {
	tx := s.db.NewTransaction(update)
	return &badgerTx{Txn: tx}, nil
}

func (s *badgerStore) Close() error {
	s.stopGC()
	return s.db.Close()
}

type badgerTx struct {
	*badger.Txn
}

func (tx *badgerTx) Set(key, value []byte) error {
	return tx.Txn.Set(key, value)
}

func getItemValue(item *badger.Item) ([]byte, error) {
	return item.ValueCopy(nil)
}

func (tx *badgerTx) Commit() error {
	return tx.Txn.Commit()
}

func (tx *badgerTx) Rollback() error {
	tx.Txn.Discard()
	return nil
}

func (tx *badgerTx) Cursor(forward bool) (store.Cursor, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = !forward
	return &badgerCursor{it: tx.NewIterator(opts)}, nil
}

type badgerCursor struct {
	it *badger.Iterator
}

func (cursor *badgerCursor) Seek(key []byte) error {
	if key == nil {
		cursor.it.Rewind()
	} else {
		cursor.it.Seek(key)
	}
	return nil
}

func (cursor *badgerCursor) Next() {
	cursor.it.Next()
}

func (cursor *badgerCursor) Valid() bool {
	return cursor.it.Valid()
}

func (cursor *badgerCursor) Item() (store.Item, error) {
	item := cursor.it.Item()

	value, err := getItemValue(item)
	return store.Item{Key: item.KeyCopy(nil), Value: value}, err
}

func (cursor *badgerCursor) Close() error {
	cursor.it.Close()
	return nil
}

const (
	gcIntervalDefault     = time.Minute * 5
	gcDiscardRatioDefault = 0.5
)

func Open(dir string) (store.Store, error) {
	return OpenWithOptions(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
}

// OpenInMemory opens a store backed by badger's in-memory mode. Contents
// are lost on Close.
func OpenInMemory() (store.Store, error) {
	return OpenWithOptions(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
}

func OpenWithOptions(opts badger.Options) (store.Store, error) {
	return OpenWithGC(opts, gcIntervalDefault, gcDiscardRatioDefault)
}

// OpenWithGC opens a store with a custom value-log GC interval and
// discard ratio.
func OpenWithGC(opts badger.Options, gcInterval time.Duration, gcDiscardRatio float64) (store.Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	dataStore := &badgerStore{
		db:             db,
		chQuit:         make(chan struct{}, 1),
		gcInterval:     gcInterval,
		gcDiscardRatio: gcDiscardRatio,
	}
	dataStore.startGC()
	return dataStore, nil
}

func (s *badgerStore) startGC() {
	s.chWg.Add(1)

	go func() {
		defer s.chWg.Done()

		ticker := time.NewTicker(s.gcInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.chQuit:
				return

			case <-ticker.C:
				err := s.db.RunValueLogGC(s.gcDiscardRatio)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					log.Printf("RunValueLogGC(): %s\n", err.Error())
				}
			}
		}
	}()
}

func (s *badgerStore) stopGC() {
	s.chQuit <- struct{}{}
	s.chWg.Wait()
	close(s.chQuit)
}
