// Package tensor implements a compact binary encoding for dense
// numeric arrays, used as the record value format of minidb data
// pipelines. The wire format is self-delimiting: a one-byte element
// type tag, a one-byte rank, rank little-endian uint32 dimension
// sizes, then the flat element buffer in little-endian order. Multiple
// tensors concatenate into a single value.
package tensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// DType tags the element type of a tensor.
type DType uint8

const (
	Float32 DType = iota + 1
	Float64
	Int32
	Int64
	Uint8
)

func (dt DType) size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8:
		return 1
	}
	return 0
}

func (dt DType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	}
	return fmt.Sprintf("DType(%d)", uint8(dt))
}

var ErrInvalidTensor = errors.New("invalid tensor")

const maxRank = 255

// Tensor is a dense numeric array: an element type, a shape and a flat
// little-endian element buffer. A rank-zero tensor is a scalar.
type Tensor struct {
	dtype DType
	dims  []int
	data  []byte
}

// New builds a tensor from a raw little-endian element buffer. The
// buffer length must match the shape.
func New(dtype DType, dims []int, data []byte) (*Tensor, error) {
	elemSize := dtype.size()
	if elemSize == 0 {
		return nil, fmt.Errorf("%w: unknown element type %d", ErrInvalidTensor, uint8(dtype))
	}
	if len(dims) > maxRank {
		return nil, fmt.Errorf("%w: rank %d exceeds %d", ErrInvalidTensor, len(dims), maxRank)
	}

	n := 1
	for _, d := range dims {
		if d < 0 || uint64(d) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: bad dimension size %d", ErrInvalidTensor, d)
		}
		if d > 0 && n > math.MaxInt32/d {
			return nil, fmt.Errorf("%w: shape %v overflows the element count", ErrInvalidTensor, dims)
		}
		n *= d
	}
	// compare via division so n*elemSize cannot overflow
	if len(data)%elemSize != 0 || len(data)/elemSize != n {
		return nil, fmt.Errorf("%w: shape %v wants %d elements of %d bytes, got %d bytes", ErrInvalidTensor, dims, n, elemSize, len(data))
	}

	return &Tensor{dtype: dtype, dims: dims, data: data}, nil
}

func (t *Tensor) DType() DType { return t.dtype }

// Dims returns the tensor shape. The slice must not be modified.
func (t *Tensor) Dims() []int { return t.dims }

func (t *Tensor) NumElements() int {
	return len(t.data) / t.dtype.size()
}

// Bytes returns the flat element buffer. The slice must not be
// modified.
func (t *Tensor) Bytes() []byte { return t.data }

func FromFloat32(dims []int, elems []float32) (*Tensor, error) {
	data := make([]byte, 4*len(elems))
	for i, v := range elems {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return New(Float32, dims, data)
}

func FromFloat64(dims []int, elems []float64) (*Tensor, error) {
	data := make([]byte, 8*len(elems))
	for i, v := range elems {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return New(Float64, dims, data)
}

func FromInt32(dims []int, elems []int32) (*Tensor, error) {
	data := make([]byte, 4*len(elems))
	for i, v := range elems {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(v))
	}
	return New(Int32, dims, data)
}

func FromInt64(dims []int, elems []int64) (*Tensor, error) {
	data := make([]byte, 8*len(elems))
	for i, v := range elems {
		binary.LittleEndian.PutUint64(data[8*i:], uint64(v))
	}
	return New(Int64, dims, data)
}

func FromUint8(dims []int, elems []byte) (*Tensor, error) {
	data := make([]byte, len(elems))
	copy(data, elems)
	return New(Uint8, dims, data)
}

// Scalar builds a rank-zero int32 tensor, the conventional label
// encoding.
func Scalar(v int32) *Tensor {
	t, _ := FromInt32(nil, []int32{v})
	return t
}

func (t *Tensor) Float32s() ([]float32, error) {
	if t.dtype != Float32 {
		return nil, fmt.Errorf("%w: want float32 elements, got %s", ErrInvalidTensor, t.dtype)
	}
	elems := make([]float32, t.NumElements())
	for i := range elems {
		elems[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.data[4*i:]))
	}
	return elems, nil
}

func (t *Tensor) Float64s() ([]float64, error) {
	if t.dtype != Float64 {
		return nil, fmt.Errorf("%w: want float64 elements, got %s", ErrInvalidTensor, t.dtype)
	}
	elems := make([]float64, t.NumElements())
	for i := range elems {
		elems[i] = math.Float64frombits(binary.LittleEndian.Uint64(t.data[8*i:]))
	}
	return elems, nil
}

func (t *Tensor) Int32s() ([]int32, error) {
	if t.dtype != Int32 {
		return nil, fmt.Errorf("%w: want int32 elements, got %s", ErrInvalidTensor, t.dtype)
	}
	elems := make([]int32, t.NumElements())
	for i := range elems {
		elems[i] = int32(binary.LittleEndian.Uint32(t.data[4*i:]))
	}
	return elems, nil
}

func (t *Tensor) Int64s() ([]int64, error) {
	if t.dtype != Int64 {
		return nil, fmt.Errorf("%w: want int64 elements, got %s", ErrInvalidTensor, t.dtype)
	}
	elems := make([]int64, t.NumElements())
	for i := range elems {
		elems[i] = int64(binary.LittleEndian.Uint64(t.data[8*i:]))
	}
	return elems, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (t *Tensor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 2+4*len(t.dims)+len(t.data))
	buf = append(buf, byte(t.dtype), byte(len(t.dims)))
	for _, d := range t.dims {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d))
	}
	return append(buf, t.data...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The input
// must hold exactly one tensor; use DecodeAll for streams.
func (t *Tensor) UnmarshalBinary(data []byte) error {
	dec, rest, err := decodeNext(data)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidTensor, len(rest))
	}
	*t = *dec
	return nil
}

func decodeNext(data []byte) (*Tensor, []byte, error) {
	if len(data) < 2 {
		return nil, nil, fmt.Errorf("%w: truncated header", ErrInvalidTensor)
	}
	dtype := DType(data[0])
	rank := int(data[1])
	data = data[2:]

	if len(data) < 4*rank {
		return nil, nil, fmt.Errorf("%w: truncated shape", ErrInvalidTensor)
	}
	dims := make([]int, rank)
	n := 1
	for i := range dims {
		dims[i] = int(binary.LittleEndian.Uint32(data[4*i:]))
		if dims[i] > 0 && n > math.MaxInt32/dims[i] {
			return nil, nil, fmt.Errorf("%w: shape %v overflows the element count", ErrInvalidTensor, dims)
		}
		n *= dims[i]
	}
	data = data[4*rank:]

	elemSize := dtype.size()
	if elemSize == 0 {
		return nil, nil, fmt.Errorf("%w: unknown element type %d", ErrInvalidTensor, uint8(dtype))
	}
	// compare via division so n*elemSize cannot overflow
	if len(data)/elemSize < n {
		return nil, nil, fmt.Errorf("%w: truncated element buffer", ErrInvalidTensor)
	}

	t, err := New(dtype, dims, data[:n*elemSize])
	if err != nil {
		return nil, nil, err
	}
	return t, data[n*elemSize:], nil
}

// EncodeAll concatenates the encodings of ts into one byte string.
func EncodeAll(ts ...*Tensor) ([]byte, error) {
	var buf []byte
	for _, t := range ts {
		enc, err := t.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// DecodeAll decodes a concatenation of tensor encodings.
func DecodeAll(data []byte) ([]*Tensor, error) {
	var ts []*Tensor
	for len(data) > 0 {
		t, rest, err := decodeNext(data)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
		data = rest
	}
	return ts, nil
}

// Stack combines tensors of identical type and shape into one tensor
// with a new leading batch dimension.
func Stack(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrInvalidTensor)
	}

	first := ts[0]
	data := make([]byte, 0, len(ts)*len(first.data))
	for _, t := range ts {
		if t.dtype != first.dtype {
			return nil, fmt.Errorf("%w: mixed element types %s and %s", ErrInvalidTensor, first.dtype, t.dtype)
		}
		if !equalDims(t.dims, first.dims) {
			return nil, fmt.Errorf("%w: mixed shapes %v and %v", ErrInvalidTensor, first.dims, t.dims)
		}
		data = append(data, t.data...)
	}

	dims := append([]int{len(ts)}, first.dims...)
	return New(first.dtype, dims, data)
}

func equalDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
