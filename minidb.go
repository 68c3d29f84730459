// Package minidb implements an ordered, durable key/value record store
// for machine-learning datasets: a Writer materializes records inside
// atomic transactions, and a Reader serves them back in fixed-size
// batches, cycling back to the first record when the store is
// exhausted so that a training loop can draw unlimited epochs from a
// finite dataset.
//
// Records keep their insertion order and may share keys: the store
// treats both key and value as opaque bytes and enforces no uniqueness.
package minidb

// Record is a single key/value pair. Both fields are opaque to the
// store; callers agree out-of-band on the value encoding (see the
// tensor package).
type Record struct {
	Key, Value []byte
}
