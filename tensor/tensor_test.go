package tensor

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat32RoundTrip(t *testing.T) {
	in, err := FromFloat32([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	enc, err := in.MarshalBinary()
	require.NoError(t, err)

	var out Tensor
	require.NoError(t, out.UnmarshalBinary(enc))
	require.Equal(t, Float32, out.DType())
	require.Equal(t, []int{2, 3}, out.Dims())

	elems, err := out.Float32s()
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, elems)
}

func TestAllDTypesRoundTrip(t *testing.T) {
	tensors := make([]*Tensor, 0, 5)

	f32, err := FromFloat32([]int{2}, []float32{1.5, -2.5})
	require.NoError(t, err)
	f64, err := FromFloat64([]int{2}, []float64{3.25, -4.75})
	require.NoError(t, err)
	i32, err := FromInt32([]int{3}, []int32{-1, 0, 1})
	require.NoError(t, err)
	i64, err := FromInt64([]int{1}, []int64{1 << 40})
	require.NoError(t, err)
	u8, err := FromUint8([]int{4}, []byte{0, 127, 128, 255})
	require.NoError(t, err)
	tensors = append(tensors, f32, f64, i32, i64, u8)

	enc, err := EncodeAll(tensors...)
	require.NoError(t, err)

	dec, err := DecodeAll(enc)
	require.NoError(t, err)
	require.Len(t, dec, len(tensors))

	for i, out := range dec {
		require.Equal(t, tensors[i].DType(), out.DType())
		require.Equal(t, tensors[i].Dims(), out.Dims())
		require.Equal(t, tensors[i].Bytes(), out.Bytes())
	}
}

func TestScalar(t *testing.T) {
	s := Scalar(7)
	require.Equal(t, Int32, s.DType())
	require.Empty(t, s.Dims())
	require.Equal(t, 1, s.NumElements())

	elems, err := s.Int32s()
	require.NoError(t, err)
	require.Equal(t, []int32{7}, elems)
}

func TestShapeMismatch(t *testing.T) {
	_, err := FromFloat32([]int{3}, []float32{1, 2})
	require.ErrorIs(t, err, ErrInvalidTensor)

	_, err = New(Float32, []int{2}, make([]byte, 7))
	require.ErrorIs(t, err, ErrInvalidTensor)
}

func TestUnknownDType(t *testing.T) {
	_, err := New(DType(99), []int{1}, []byte{0})
	require.ErrorIs(t, err, ErrInvalidTensor)
}

func TestDecodeTruncated(t *testing.T) {
	in, err := FromInt32([]int{2}, []int32{1, 2})
	require.NoError(t, err)

	enc, err := in.MarshalBinary()
	require.NoError(t, err)

	for _, n := range []int{0, 1, 3, len(enc) - 1} {
		var out Tensor
		require.ErrorIs(t, out.UnmarshalBinary(enc[:n]), ErrInvalidTensor)
	}
}

func TestDecodeShapeOverflow(t *testing.T) {
	// a corrupted header whose dimension product overflows int must be
	// rejected, not sliced
	enc := []byte{byte(Int32), 2}
	enc = binary.LittleEndian.AppendUint32(enc, 1<<31)
	enc = binary.LittleEndian.AppendUint32(enc, 1<<30)
	enc = append(enc, make([]byte, 8)...)

	_, err := DecodeAll(enc)
	require.ErrorIs(t, err, ErrInvalidTensor)

	var out Tensor
	require.ErrorIs(t, out.UnmarshalBinary(enc), ErrInvalidTensor)
}

func TestDecodeTrailingBytes(t *testing.T) {
	in, err := FromInt32([]int{1}, []int32{1})
	require.NoError(t, err)

	enc, err := in.MarshalBinary()
	require.NoError(t, err)

	var out Tensor
	require.ErrorIs(t, out.UnmarshalBinary(append(enc, 0)), ErrInvalidTensor)
}

func TestWrongElementAccessor(t *testing.T) {
	in, err := FromInt32([]int{1}, []int32{1})
	require.NoError(t, err)

	_, err = in.Float32s()
	require.ErrorIs(t, err, ErrInvalidTensor)
}

func TestStack(t *testing.T) {
	a, err := FromFloat32([]int{2}, []float32{1, 2})
	require.NoError(t, err)
	b, err := FromFloat32([]int{2}, []float32{3, 4})
	require.NoError(t, err)

	stacked, err := Stack([]*Tensor{a, b})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, stacked.Dims())

	elems, err := stacked.Float32s()
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4}, elems)
}

func TestStackScalars(t *testing.T) {
	stacked, err := Stack([]*Tensor{Scalar(1), Scalar(2), Scalar(3)})
	require.NoError(t, err)
	require.Equal(t, []int{3}, stacked.Dims())

	elems, err := stacked.Int32s()
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, 3}, elems)
}

func TestStackMismatch(t *testing.T) {
	a, err := FromFloat32([]int{2}, []float32{1, 2})
	require.NoError(t, err)
	b, err := FromFloat32([]int{3}, []float32{3, 4, 5})
	require.NoError(t, err)

	_, err = Stack([]*Tensor{a, b})
	require.ErrorIs(t, err, ErrInvalidTensor)

	_, err = Stack([]*Tensor{a, Scalar(1)})
	require.ErrorIs(t, err, ErrInvalidTensor)

	_, err = Stack(nil)
	require.ErrorIs(t, err, ErrInvalidTensor)
}
