package geostack

import "fmt"

// 由QA/标志栅格生成0/1掩膜：值属于vals的像元为1
func MakeCloudMask(flags *Array, vals []int) (mask *Array, err error) {
	if flags == nil {
		err = ErrNilArray
		return
	}
	set := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		set[float64(v)] = struct{}{}
	}
	mask = NewArray(Byte, flags.Bands, flags.Rows, flags.Cols)
	for i, v := range flags.Data {
		if _, ok := set[v]; ok {
			mask.Data[i] = 1
		}
	}
	return
}

// 将0/1掩膜应用到数组：单波段掩膜广播到全部波段，与已有掩膜取或，不会取消已掩膜的像元
func ApplyCloudMask(arr, mask *Array) (ret *Array, err error) {
	if arr == nil || mask == nil {
		err = ErrNilArray
		return
	}
	if mask.Rows != arr.Rows || mask.Cols != arr.Cols || (mask.Bands != 1 && mask.Bands != arr.Bands) {
		err = fmt.Errorf("%w: mask %dx%dx%d, array %dx%dx%d", ErrArrayShape,
			mask.Bands, mask.Rows, mask.Cols, arr.Bands, arr.Rows, arr.Cols)
		return
	}
	hit := false
	for _, v := range mask.Data {
		if v == 1 {
			hit = true
			break
		}
	}
	if !hit {
		err = ErrNothingToMask
		return
	}
	ret = arr.Clone()
	out := ret.ensureMask()
	n := arr.Rows * arr.Cols
	for b := 0; b < arr.Bands; b++ {
		src := mask.Data
		if mask.Bands > 1 {
			src = mask.Band(b)
		} else {
			src = src[:n]
		}
		for i, v := range src {
			if v == 1 {
				out[b*n+i] = true
			}
		}
	}
	return
}

// MakeCloudMask 与 ApplyCloudMask 的组合
func MakeApplyMask(arr, flags *Array, vals []int) (*Array, error) {
	mask, err := MakeCloudMask(flags, vals)
	if err != nil {
		return nil, err
	}
	return ApplyCloudMask(arr, mask)
}
