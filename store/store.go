package store

// Store is a transactional key/value backend. Keys iterate in ascending
// byte order.
type Store interface {
	Begin(update bool) (Tx, error)
	Close() error
}

type Tx interface {
	Set(key, value []byte) error
	Cursor(forward bool) (Cursor, error)
	Commit() error
	Rollback() error
}

// Cursor iterates the keys of a transaction snapshot in a single
// direction. Seek must be called before the first Item/Next; Seek(nil)
// positions at the first key for a forward cursor and at the last key
// for a reverse one.
type Cursor interface {
	Seek(key []byte) error
	Next()
	Valid() bool
	Item() (Item, error)
	Close() error
}

type Item struct {
	Key, Value []byte
}
