package geostack

import (
	"fmt"
	"math"
)

// 像元数据类型，与GDAL的类型名一致
type DataType int

const (
	Unknown DataType = iota
	Byte
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
)

var dataTypeNames = [...]string{"Unknown", "Byte", "UInt16", "Int16", "UInt32", "Int32", "Float32", "Float64"}

func (dt DataType) String() string {
	if dt < 0 || int(dt) >= len(dataTypeNames) {
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
	return dataTypeNames[dt]
}

// GDAL顺序的仿射变换参数：
// x = gt[0] + col*gt[1] + row*gt[2]
// y = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

var IdentityTransform = GeoTransform{0, 1, 0, 0, 0, 1}

// 像元坐标转地理坐标
func (gt GeoTransform) Apply(col, row float64) (x, y float64) {
	x = gt[0] + col*gt[1] + row*gt[2]
	y = gt[3] + col*gt[4] + row*gt[5]
	return
}

// 逆变换，不可逆时ok为false
func (gt GeoTransform) Invert() (inv GeoTransform, ok bool) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 || math.IsNaN(det) {
		return
	}
	inv[1] = gt[5] / det
	inv[2] = -gt[2] / det
	inv[4] = -gt[4] / det
	inv[5] = gt[1] / det
	inv[0] = -(inv[1]*gt[0] + inv[2]*gt[3])
	inv[3] = -(inv[4]*gt[0] + inv[5]*gt[3])
	ok = true
	return
}

// 原点平移到(col,row)像元左上角，像元大小不变
func (gt GeoTransform) Shift(col, row int) GeoTransform {
	x, y := gt.Apply(float64(col), float64(row))
	return GeoTransform{x, gt[1], gt[2], y, gt[4], gt[5]}
}

func (gt GeoTransform) Equal(o GeoTransform) bool {
	for i := range gt {
		if math.Abs(gt[i]-o[i]) > 1e-9*math.Max(1, math.Abs(gt[i])) {
			return false
		}
	}
	return true
}

// 栅格元数据
type Meta struct {
	Driver    string
	DType     DataType
	Width     int
	Height    int
	Count     int
	Transform GeoTransform
	CRS       string
	NoData    *float64
}

func (m Meta) Clone() Meta {
	if m.NoData != nil {
		nd := *m.NoData
		m.NoData = &nd
	}
	return m
}

// 像元窗口
type Window struct {
	ColOff, RowOff int
	Width, Height  int
}

func (w Window) Empty() bool {
	return w.Width <= 0 || w.Height <= 0
}

func (w Window) Intersect(o Window) Window {
	c0, r0 := max(w.ColOff, o.ColOff), max(w.RowOff, o.RowOff)
	c1, r1 := min(w.ColOff+w.Width, o.ColOff+o.Width), min(w.RowOff+w.Height, o.RowOff+o.Height)
	return Window{ColOff: c0, RowOff: r0, Width: c1 - c0, Height: r1 - r0}
}

// 三维数组(band,row,col)，Mask为true表示该像元无效；Mask为nil表示无掩膜
type Array struct {
	DType DataType
	Bands int
	Rows  int
	Cols  int
	Data  []float64
	Mask  []bool
}

func NewArray(dt DataType, bands, rows, cols int) *Array {
	return &Array{
		DType: dt,
		Bands: bands,
		Rows:  rows,
		Cols:  cols,
		Data:  make([]float64, bands*rows*cols),
	}
}

func (a *Array) Len() int {
	return a.Bands * a.Rows * a.Cols
}

func (a *Array) Index(band, row, col int) int {
	return (band*a.Rows+row)*a.Cols + col
}

func (a *Array) At(band, row, col int) float64 {
	return a.Data[a.Index(band, row, col)]
}

func (a *Array) Masked(i int) bool {
	return a.Mask != nil && a.Mask[i]
}

// 单个波段的数据切片（共享底层数组）
func (a *Array) Band(b int) []float64 {
	n := a.Rows * a.Cols
	return a.Data[b*n : (b+1)*n]
}

func (a *Array) SameShape(o *Array) bool {
	return a.Bands == o.Bands && a.Rows == o.Rows && a.Cols == o.Cols
}

// 有效像元（未掩膜且非NaN）的和
func (a *Array) Sum() (s float64) {
	for i, v := range a.Data {
		if !a.Masked(i) && !math.IsNaN(v) {
			s += v
		}
	}
	return
}

func (a *Array) MaskedCount() (n int) {
	for _, m := range a.Mask {
		if m {
			n++
		}
	}
	return
}

func (a *Array) Clone() *Array {
	c := *a
	c.Data = append([]float64(nil), a.Data...)
	if a.Mask != nil {
		c.Mask = append([]bool(nil), a.Mask...)
	}
	return &c
}

func (a *Array) ensureMask() []bool {
	if a.Mask == nil {
		a.Mask = make([]bool, len(a.Data))
	}
	return a.Mask
}

// Bytescale的结果
type ByteArray struct {
	Bands int
	Rows  int
	Cols  int
	Data  []uint8
	Mask  []bool
}

// 可读栅格
type Source interface {
	Path() string
	Meta() Meta
	// 读取窗口内全部波段，窗口须在栅格范围内
	ReadWindow(w Window) (*Array, error)
}

type Dataset interface {
	Source
	Close() error
}

// 栅格存储：按路径打开与写出
type Store interface {
	Open(path string) (Dataset, error)
	Write(path string, arr *Array, meta Meta) error
	Exists(path string) bool
	DirExists(dir string) bool
}

// 可选：存储层自行判断两个CRS是否等价
type CRSComparer interface {
	SameCRS(a, b string) bool
}

func fullWindow(m Meta) Window {
	return Window{Width: m.Width, Height: m.Height}
}
