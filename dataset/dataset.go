// Package dataset converts small tabular datasets into minidb stores
// of (features, label) tensor pairs and loads them back as training
// mini-batches.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/gofrs/uuid/v5"

	"github.com/minidb-io/minidb"
	"github.com/minidb-io/minidb/tensor"
)

// Example is one labeled sample: a float32 feature vector and an int32
// label scalar.
type Example struct {
	Features *tensor.Tensor
	Label    *tensor.Tensor
}

// LastColumn selects the rightmost column of each row as the label.
const LastColumn = -1

// ReadCSV parses rows of numeric columns into examples. The column at
// labelColumn (or the rightmost one, with LastColumn) becomes the
// label: numeric values are truncated to int32, string class names are
// assigned increasing ids in first-seen order. A leading header row is
// skipped only when all of its feature columns fail to parse as
// numbers; a first row that is merely corrupted is an error.
func ReadCSV(r io.Reader, labelColumn int) ([]Example, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	classes := make(map[string]int32)
	examples := make([]Example, 0, len(rows))

	for i, row := range rows {
		lc := labelColumn
		if lc == LastColumn {
			lc = len(row) - 1
		}
		if lc < 0 || lc >= len(row) {
			return nil, fmt.Errorf("row %d: label column %d out of range", i, labelColumn)
		}

		features := make([]float32, 0, len(row)-1)
		var rowErr error
		badFields := 0
		for col, field := range row {
			if col == lc {
				continue
			}
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				badFields++
				if rowErr == nil {
					rowErr = fmt.Errorf("row %d, column %d: %w", i, col, err)
				}
				continue
			}
			features = append(features, float32(v))
		}
		if rowErr != nil {
			// a header holds column names everywhere, so every feature
			// field fails; anything less is corrupted data
			if i == 0 && badFields == len(row)-1 {
				continue
			}
			return nil, rowErr
		}

		label, err := parseLabel(row[lc], classes)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		ft, err := tensor.FromFloat32([]int{len(features)}, features)
		if err != nil {
			return nil, err
		}
		examples = append(examples, Example{Features: ft, Label: tensor.Scalar(label)})
	}
	return examples, nil
}

func parseLabel(field string, classes map[string]int32) (int32, error) {
	if v, err := strconv.ParseFloat(field, 64); err == nil {
		return int32(v), nil
	}
	if field == "" {
		return 0, fmt.Errorf("empty label")
	}
	id, ok := classes[field]
	if !ok {
		id = int32(len(classes))
		classes[field] = id
	}
	return id, nil
}

// Split shuffles the examples and divides them into a training and a
// test set, with testFraction of the samples going to the test set.
func Split(examples []Example, testFraction float64, rng *rand.Rand) (train, test []Example) {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	shuffled := make([]Example, len(examples))
	for i, j := range rng.Perm(len(examples)) {
		shuffled[i] = examples[j]
	}

	nTest := int(float64(len(shuffled)) * testFraction)
	return shuffled[nTest:], shuffled[:nTest]
}

// Write materializes the examples into the store at path in one
// transaction. Record values are the concatenated encodings of the
// feature and label tensors; keys carry a random suffix so that their
// order bears no relation to the label distribution.
func Write(path string, examples []Example, opts ...minidb.Option) error {
	w, err := minidb.OpenWriter(path, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	tx, err := w.Begin()
	if err != nil {
		return err
	}

	for i, ex := range examples {
		value, err := tensor.EncodeAll(ex.Features, ex.Label)
		if err != nil {
			tx.Rollback()
			return err
		}
		key := fmt.Sprintf("%03d_%s", i, uuid.Must(uuid.NewV4()))
		if err := tx.Put([]byte(key), value); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Loader draws mini-batches from a store, cycling through the records
// forever: a training loop calls Next once per step regardless of
// dataset size.
type Loader struct {
	reader    *minidb.Reader
	cursor    *minidb.Cursor
	batchSize int
}

func NewLoader(path string, batchSize int, opts ...minidb.Option) (*Loader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", minidb.ErrInvalidArgument, batchSize)
	}

	r, err := minidb.OpenReader(path, opts...)
	if err != nil {
		return nil, err
	}
	cur, err := r.Cursor()
	if err != nil {
		r.Close()
		return nil, err
	}
	return &Loader{reader: r, cursor: cur, batchSize: batchSize}, nil
}

// Next returns the next batch as two stacked tensors: features of
// shape [batchSize, featureDims...] and labels of shape [batchSize].
func (l *Loader) Next() (features, labels *tensor.Tensor, err error) {
	batch, err := l.cursor.NextBatch(l.batchSize)
	if err != nil {
		return nil, nil, err
	}

	fts := make([]*tensor.Tensor, 0, len(batch))
	lbs := make([]*tensor.Tensor, 0, len(batch))
	for _, rec := range batch {
		ts, err := tensor.DecodeAll(rec.Value)
		if err != nil {
			return nil, nil, err
		}
		if len(ts) != 2 {
			return nil, nil, fmt.Errorf("record %q: want a (features, label) pair, got %d tensors", rec.Key, len(ts))
		}
		fts = append(fts, ts[0])
		lbs = append(lbs, ts[1])
	}

	if features, err = tensor.Stack(fts); err != nil {
		return nil, nil, err
	}
	if labels, err = tensor.Stack(lbs); err != nil {
		return nil, nil, err
	}
	return features, labels, nil
}

func (l *Loader) Close() error {
	l.cursor.Close()
	return l.reader.Close()
}
