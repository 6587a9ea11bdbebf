package geostack

import (
	"fmt"
	"math"
)

type scaleOpts struct {
	cmin, cmax *float64
	high, low  float64
}

type ScaleOption func(o *scaleOpts)

// 拉伸下限，默认取有效像元最小值
func CMin(v float64) ScaleOption {
	return func(o *scaleOpts) { o.cmin = &v }
}

// 拉伸上限，默认取有效像元最大值
func CMax(v float64) ScaleOption {
	return func(o *scaleOpts) { o.cmax = &v }
}

// 输出上限，默认255
func High(v float64) ScaleOption {
	return func(o *scaleOpts) { o.high = v }
}

// 输出下限，默认0
func Low(v float64) ScaleOption {
	return func(o *scaleOpts) { o.low = v }
}

// 有效像元（未掩膜、有限值）的最小最大值
func validRange(a *Array) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i, v := range a.Data {
		if a.Masked(i) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		ok = true
	}
	return
}

// 线性拉伸到[low,high]并转为uint8；Byte类型输入原样返回
func Bytescale(data *Array, opts ...ScaleOption) (ret *ByteArray, err error) {
	if data == nil {
		err = ErrNilArray
		return
	}
	o := scaleOpts{high: 255, low: 0}
	for _, opt := range opts {
		opt(&o)
	}
	ret = &ByteArray{Bands: data.Bands, Rows: data.Rows, Cols: data.Cols, Data: make([]uint8, len(data.Data))}
	if data.Mask != nil {
		ret.Mask = append([]bool(nil), data.Mask...)
	}
	if data.DType == Byte {
		for i, v := range data.Data {
			ret.Data[i] = uint8(v)
		}
		return
	}
	if o.low < 0 || o.high > 255 || o.low > o.high {
		ret, err = nil, fmt.Errorf("%w: low=%v high=%v", ErrScaleRange, o.low, o.high)
		return
	}
	var (
		lo, hi, ok = validRange(data)
		cmin, cmax = lo, hi
	)
	if o.cmin != nil {
		cmin = *o.cmin
	}
	if o.cmax != nil {
		cmax = *o.cmax
	}
	if !ok && (o.cmin == nil || o.cmax == nil) {
		ret, err = nil, ErrNoValidData
		return
	}
	switch {
	case cmax < cmin:
		ret, err = nil, ErrCmaxBelowCmin
		return
	case cmax == cmin:
		ret, err = nil, ErrCminEqualsCmax
		return
	}
	scale := (o.high - o.low) / (cmax - cmin)
	for i, v := range data.Data {
		if math.IsNaN(v) {
			ret.Data[i] = uint8(o.low)
			if ret.Mask == nil {
				ret.Mask = make([]bool, len(ret.Data))
			}
			ret.Mask[i] = true
			continue
		}
		v = math.Min(v, cmax)
		v = (v-cmin)*scale + o.low
		v = math.Max(o.low, math.Min(o.high, v))
		ret.Data[i] = uint8(v + 0.5)
	}
	return
}
