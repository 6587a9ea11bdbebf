package geostack

import (
	"fmt"
	"math"

	"github.com/wgdzlh/geostack/log"

	"go.uber.org/zap"
)

const (
	DefaultAzimuth  = 30.0
	DefaultAltitude = 30.0

	indexLogTag = "Index:"
)

// 归一化差值 (b2-b1)/(b2+b1)，结果非有限值的像元被掩膜。
// 分母为0时返回NumericWarning（非错误）
func NormalizedDiff(b1, b2 *Array) (ret *Array, warn *NumericWarning, err error) {
	if b1 == nil || b2 == nil {
		err = ErrNilArray
		return
	}
	if !b1.SameShape(b2) {
		err = ErrArrayShape
		return
	}
	ret = NewArray(Float64, b1.Bands, b1.Rows, b1.Cols)
	var zeros int
	for i := range ret.Data {
		v1, v2 := b1.Data[i], b2.Data[i]
		num, den := v2-v1, v2+v1
		if den == 0 {
			zeros++
		}
		v := num / den
		ret.Data[i] = v
		if b1.Masked(i) || b2.Masked(i) || math.IsNaN(v) || math.IsInf(v, 0) {
			ret.ensureMask()[i] = true
		}
	}
	if zeros > 0 {
		warn = &NumericWarning{Op: OP_NORM_DIFF, Count: zeros}
		log.Warn(indexLogTag+"divide by zero in normalized difference", zap.Int("pixels", zeros))
	}
	return
}

// 沿一个方向的梯度：内部中心差分，两端单侧差分
func gradient(get func(i int) float64, n int, set func(i int, v float64)) {
	if n < 2 {
		for i := 0; i < n; i++ {
			set(i, 0)
		}
		return
	}
	set(0, get(1)-get(0))
	for i := 1; i < n-1; i++ {
		set(i, (get(i+1)-get(i-1))/2)
	}
	set(n-1, get(n-1)-get(n-2))
}

// 单波段DEM的山体阴影，输出范围0~255
func Hillshade(dem *Array, azimuth, altitude float64) (ret *Array, err error) {
	if dem == nil {
		err = ErrNilArray
		return
	}
	if dem.Bands != 1 {
		err = ErrSingleBand
		return
	}
	if altitude < 0 || altitude > 90 || azimuth < 0 || azimuth > 360 {
		err = fmt.Errorf("%w: azimuth=%v altitude=%v", ErrHillshadeAngle, azimuth, altitude)
		return
	}
	rows, cols := dem.Rows, dem.Cols
	gx := make([]float64, rows*cols) // 沿行方向
	gy := make([]float64, rows*cols) // 沿列方向
	for c := 0; c < cols; c++ {
		gradient(func(r int) float64 { return dem.Data[r*cols+c] }, rows,
			func(r int, v float64) { gx[r*cols+c] = v })
	}
	for r := 0; r < rows; r++ {
		gradient(func(c int) float64 { return dem.Data[r*cols+c] }, cols,
			func(c int, v float64) { gy[r*cols+c] = v })
	}
	az := (360 - azimuth) * math.Pi / 180
	alt := altitude * math.Pi / 180
	ret = NewArray(Float64, 1, rows, cols)
	if dem.Mask != nil {
		ret.Mask = append([]bool(nil), dem.Mask...)
	}
	for i := range ret.Data {
		x, y := gx[i], gy[i]
		slope := math.Pi/2 - math.Atan(math.Sqrt(x*x+y*y))
		aspect := math.Atan2(-x, y)
		shaded := math.Sin(alt)*math.Sin(slope) + math.Cos(alt)*math.Cos(slope)*math.Cos(az-math.Pi/2-aspect)
		ret.Data[i] = 255 * (shaded + 1) / 2
	}
	return
}
