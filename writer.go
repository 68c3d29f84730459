package minidb

import (
	"fmt"
	"os"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/minidb-io/minidb/internal"
	"github.com/minidb-io/minidb/store"
	badgerstore "github.com/minidb-io/minidb/store/badger"
)

// Writer appends records to a store. A single Writer owns the sequence
// counter that fixes the insertion order, so all transactions against
// one store must go through the same Writer.
type Writer struct {
	store store.Store

	mu      sync.Mutex
	nextSeq uint64
	closed  bool
}

// OpenWriter opens the store at path for writing, creating it if
// absent. Failures are wrapped in ErrStoreOpen.
func OpenWriter(path string, opts ...Option) (*Writer, error) {
	conf, err := defaultConfig().applyOptions(opts)
	if err != nil {
		return nil, err
	}

	var s store.Store
	if conf.InMemory {
		s, err = badgerstore.OpenInMemory()
	} else {
		if err := os.MkdirAll(path, 0777); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
		}
		badgerOpts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
		s, err = badgerstore.OpenWithGC(badgerOpts, conf.GCReclaimInterval, conf.GCDiscardRatio)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
	}
	return OpenWriterWithStore(s)
}

// OpenWriterWithStore opens a Writer over a caller-provided backend.
// The Writer takes ownership of the store and closes it on Close.
func OpenWriterWithStore(s store.Store) (*Writer, error) {
	w := &Writer{store: s}
	if err := w.loadNextSeq(); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
	}
	return w, nil
}

// loadNextSeq recovers the sequence counter from the last committed
// record, so that a reopened store keeps extending its insertion order.
func (w *Writer) loadNextSeq() error {
	tx, err := w.store.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cursor, err := tx.Cursor(false)
	if err != nil {
		return err
	}
	defer cursor.Close()

	if err := cursor.Seek(nil); err != nil {
		return err
	}
	if !cursor.Valid() {
		return nil
	}

	item, err := cursor.Item()
	if err != nil {
		return err
	}
	seq, err := internal.DecodeSeqKey(item.Key)
	if err != nil {
		return err
	}
	w.nextSeq = seq + 1
	return nil
}

func (w *Writer) takeSeq() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	seq := w.nextSeq
	w.nextSeq++
	return seq, nil
}

// Begin starts a write transaction. Records put into the transaction
// become visible to readers only after Commit.
func (w *Writer) Begin() (*Tx, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}

	tx, err := w.store.Begin(true)
	if err != nil {
		return nil, err
	}
	return &Tx{w: w, tx: tx}, nil
}

// Close releases the underlying store. Transactions still pending are
// not committed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	return w.store.Close()
}

// Tx buffers record insertions until Commit. It is not safe for
// concurrent use.
type Tx struct {
	w    *Writer
	tx   store.Tx
	done bool
}

// Put appends a record to the transaction. Keys must be non-empty;
// duplicate keys and empty values are allowed.
func (tx *Tx) Put(key, value []byte) error {
	if tx.done {
		return ErrTxDone
	}
	if len(key) == 0 {
		return fmt.Errorf("%w: empty record key", ErrInvalidArgument)
	}

	seq, err := tx.w.takeSeq()
	if err != nil {
		return err
	}
	seqKey, err := internal.EncodeSeqKey(seq)
	if err != nil {
		return err
	}
	payload, err := internal.EncodeRecord(key, value)
	if err != nil {
		return err
	}
	return tx.tx.Set(seqKey, payload)
}

// Commit atomically publishes all records put into the transaction, in
// insertion order. On failure the store keeps its previous committed
// state and the error wraps ErrCommit.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	if err := tx.tx.Commit(); err != nil {
		_ = tx.tx.Rollback()
		return fmt.Errorf("%w: %v", ErrCommit, err)
	}
	return nil
}

// Rollback discards the transaction's pending records.
func (tx *Tx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	return tx.tx.Rollback()
}
