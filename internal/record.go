package internal

import (
	"github.com/google/orderedcode"
	"github.com/vmihailenco/msgpack/v5"
)

// Records are stored under a monotonically increasing sequence number
// rather than their user key, so that sorted backends iterate in
// insertion order and duplicate user keys never collide. The user key
// travels inside the stored payload.

type storedRecord struct {
	Key   []byte `msgpack:"k"`
	Value []byte `msgpack:"v"`
}

// EncodeSeqKey encodes seq so that byte-wise key order matches numeric
// order.
func EncodeSeqKey(seq uint64) ([]byte, error) {
	return orderedcode.Append(nil, seq)
}

func DecodeSeqKey(key []byte) (uint64, error) {
	var seq uint64
	_, err := orderedcode.Parse(string(key), &seq)
	return seq, err
}

func EncodeRecord(key, value []byte) ([]byte, error) {
	return msgpack.Marshal(&storedRecord{Key: key, Value: value})
}

func DecodeRecord(data []byte) (key, value []byte, err error) {
	var rec storedRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, nil, err
	}
	return rec.Key, rec.Value, nil
}
