package geostack

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arrayOf(dt DataType, vals ...float64) *Array {
	arr := NewArray(dt, 1, 1, len(vals))
	copy(arr.Data, vals)
	return arr
}

func minMax(b []uint8) (lo, hi uint8) {
	lo, hi = 255, 0
	for _, v := range b {
		lo, hi = min(lo, v), max(hi, v)
	}
	return
}

// 0~299 的确定性数据，覆盖超过255的取值
func wideArray() *Array {
	arr := NewArray(Int16, 1, 10, 10)
	for i := range arr.Data {
		arr.Data[i] = float64(i * 3)
	}
	return arr
}

func TestBytescaleHighValRange(t *testing.T) {
	ret, err := Bytescale(arrayOf(Int16, 1, 32767, 3, -32768))
	require.NoError(t, err)
	lo, hi := minMax(ret.Data)
	assert.Equal(t, uint8(0), lo)
	assert.Equal(t, uint8(255), hi)
}

func TestBytescaleDefaults(t *testing.T) {
	ret, err := Bytescale(wideArray())
	require.NoError(t, err)
	lo, hi := minMax(ret.Data)
	assert.Equal(t, uint8(0), lo)
	assert.Equal(t, uint8(255), hi)
	for i := 1; i < len(ret.Data); i++ {
		assert.GreaterOrEqual(t, ret.Data[i], ret.Data[i-1], "monotone input stays monotone")
	}
}

func TestBytescaleCminCmax(t *testing.T) {
	ret, err := Bytescale(wideArray(), CMin(10), CMax(240))
	require.NoError(t, err)
	lo, hi := minMax(ret.Data)
	assert.Equal(t, uint8(0), lo)
	assert.Equal(t, uint8(255), hi)

	ret, err = Bytescale(arrayOf(Float32, 0, 50, 100), CMin(0), CMax(100), Low(10), High(110))
	require.NoError(t, err)
	assert.Equal(t, []uint8{10, 60, 110}, ret.Data)
}

func TestBytescaleValidation(t *testing.T) {
	cases := []struct {
		opts []ScaleOption
		want error
	}{
		{[]ScaleOption{High(300)}, ErrScaleRange},
		{[]ScaleOption{Low(-100)}, ErrScaleRange},
		{[]ScaleOption{High(100), Low(150)}, ErrScaleRange},
		{[]ScaleOption{CMin(100), CMax(50)}, ErrCmaxBelowCmin},
		{[]ScaleOption{CMin(100), CMax(100)}, ErrCminEqualsCmax},
	}
	for _, c := range cases {
		_, err := Bytescale(wideArray(), c.opts...)
		assert.True(t, errors.Is(err, c.want), "%v", err)
		assert.True(t, errors.Is(err, ErrValidation))
	}
	_, err := Bytescale(arrayOf(Float64, 7, 7, 7))
	assert.True(t, errors.Is(err, ErrCminEqualsCmax))
	_, err = Bytescale(nil)
	assert.True(t, errors.Is(err, ErrNilArray))
}

func TestBytescaleByteIdentity(t *testing.T) {
	in := arrayOf(Byte, 0, 17, 255)
	ret, err := Bytescale(in, High(300))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 17, 255}, ret.Data)
}

func TestBytescaleMaskedAndNaN(t *testing.T) {
	in := arrayOf(Float64, 0, 1000, 10, math.NaN())
	in.Mask = []bool{false, true, false, false}
	ret, err := Bytescale(in)
	require.NoError(t, err)
	// 被掩膜的1000不参与范围计算，并被截断到high
	assert.Equal(t, []uint8{0, 255, 255, 0}, ret.Data)
	assert.Equal(t, []bool{false, true, false, true}, ret.Mask)

	allMasked := arrayOf(Float64, 1, 2)
	allMasked.Mask = []bool{true, true}
	_, err = Bytescale(allMasked)
	assert.True(t, errors.Is(err, ErrNoValidData))
}
