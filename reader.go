package minidb

import (
	"fmt"
	"os"
	"sync"

	"github.com/minidb-io/minidb/internal"
	"github.com/minidb-io/minidb/store"
	badgerstore "github.com/minidb-io/minidb/store/badger"
)

// Reader serves committed records in batches. Cursors opened from one
// Reader are independent: each holds its own snapshot transaction and
// position.
type Reader struct {
	store store.Store

	mu     sync.Mutex
	closed bool
}

// OpenReader opens the store at path for reading. A missing path fails
// with ErrStoreNotFound.
func OpenReader(path string, opts ...Option) (*Reader, error) {
	conf, err := defaultConfig().applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if conf.InMemory {
		return nil, fmt.Errorf("%w: an in-memory store cannot be reopened for reading", ErrInvalidArgument)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
	}

	s, err := badgerstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
	}
	return OpenReaderWithStore(s)
}

// OpenReaderWithStore opens a Reader over a caller-provided backend.
// The Reader takes ownership of the store and closes it on Close.
func OpenReaderWithStore(s store.Store) (*Reader, error) {
	return &Reader{store: s}, nil
}

// Cursor returns a new cursor positioned before the first record.
func (r *Reader) Cursor() (*Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	tx, err := r.store.Begin(false)
	if err != nil {
		return nil, err
	}
	return &Cursor{tx: tx}, nil
}

// Count returns the number of committed records.
func (r *Reader) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}

	tx, err := r.store.Begin(false)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cursor, err := tx.Cursor(true)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	if err := cursor.Seek(nil); err != nil {
		return 0, err
	}

	n := 0
	for ; cursor.Valid(); cursor.Next() {
		n++
	}
	return n, nil
}

// Close releases the underlying store. Cursors still open become
// invalid.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	return r.store.Close()
}

// Cursor iterates the records of a snapshot cyclically: past the last
// record it wraps back to the first. It is not safe for concurrent use;
// open one cursor per goroutine instead.
type Cursor struct {
	tx     store.Tx
	cur    store.Cursor
	closed bool
}

// NextBatch returns the next batchSize records, wrapping past the end
// of the store as many times as needed, and advances the cursor. It
// fails with ErrEmptyStore if the snapshot holds no records and with
// ErrInvalidArgument if batchSize is not positive.
func (c *Cursor) NextBatch(batchSize int) ([]Record, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidArgument, batchSize)
	}

	batch := make([]Record, 0, batchSize)
	for len(batch) < batchSize {
		if c.cur == nil || !c.cur.Valid() {
			if err := c.rewind(); err != nil {
				return nil, err
			}
			if !c.cur.Valid() {
				return nil, ErrEmptyStore
			}
		}

		item, err := c.cur.Item()
		if err != nil {
			return nil, err
		}
		key, value, err := internal.DecodeRecord(item.Value)
		if err != nil {
			return nil, err
		}
		batch = append(batch, Record{Key: key, Value: value})
		c.cur.Next()
	}
	return batch, nil
}

func (c *Cursor) rewind() error {
	if c.cur != nil {
		if err := c.cur.Close(); err != nil {
			return err
		}
		c.cur = nil
	}

	cur, err := c.tx.Cursor(true)
	if err != nil {
		return err
	}
	if err := cur.Seek(nil); err != nil {
		cur.Close()
		return err
	}
	c.cur = cur
	return nil
}

// Close releases the cursor's snapshot. It has no effect on committed
// records.
func (c *Cursor) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	if c.cur != nil {
		c.cur.Close()
	}
	return c.tx.Rollback()
}
