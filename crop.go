package geostack

import (
	"github.com/paulmach/orb"
)

// 计算几何与栅格的剪切窗口
func CropWindow(meta Meta, shapes []orb.Geometry) (win Window, err error) {
	if len(shapes) == 0 {
		err = ErrEmptyGeometry
		return
	}
	// 点或水平/垂直线，无论是否与像元边对齐都无法剪切
	if b := shapesBound(shapes); b.Max[0] == b.Min[0] || b.Max[1] == b.Min[1] {
		err = ErrEmptyWindow
		return
	}
	pix, err := toPixelSpace(shapes, meta.Transform)
	if err != nil {
		return
	}
	win = pixelWindow(pix)
	if win.Empty() {
		err = ErrEmptyWindow
		return
	}
	if win = win.Intersect(fullWindow(meta)); win.Empty() {
		err = ErrNoOverlap
	}
	return
}

// 按几何剪切栅格，几何外的像元填充nodata（未设置时为0）并掩膜
func CropImage(src Source, geom Geometry, allTouched bool) (arr *Array, meta Meta, err error) {
	shapes, err := Normalize(geom)
	if err != nil {
		return
	}
	srcMeta := src.Meta()
	win, err := CropWindow(srcMeta, shapes)
	if err != nil {
		err = withPath(err, OP_CROP, src.Path())
		return
	}
	if arr, err = src.ReadWindow(win); err != nil {
		return
	}
	grid, err := Rasterize(shapes, srcMeta.Transform, win, allTouched)
	if err != nil {
		return
	}
	fill := 0.0
	if srcMeta.NoData != nil {
		fill = *srcMeta.NoData
	}
	mask := arr.ensureMask()
	n := win.Width * win.Height
	for b := 0; b < arr.Bands; b++ {
		for i, in := range grid {
			if !in {
				arr.Data[b*n+i] = fill
				mask[b*n+i] = true
			}
		}
	}
	meta = srcMeta.Clone()
	meta.Driver = DRIVER_GTIFF
	meta.Width = win.Width
	meta.Height = win.Height
	meta.Transform = srcMeta.Transform.Shift(win.ColOff, win.RowOff)
	return
}
