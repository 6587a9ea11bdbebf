package geostack

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCRS = "EPSG:4326"

// 10x10单波段栅格，第2~4行、第2~4列为1，其余为0
func basicImage() *Array {
	arr := NewArray(Byte, 1, 10, 10)
	for r := 2; r < 5; r++ {
		for c := 2; c < 5; c++ {
			arr.Data[arr.Index(0, r, c)] = 1
		}
	}
	return arr
}

func basicMeta() Meta {
	return Meta{Driver: DRIVER_GTIFF, Transform: IdentityTransform, CRS: testCRS}
}

func basicSource(t *testing.T) Dataset {
	t.Helper()
	s := NewMemStore()
	s.Put("basic.tif", basicImage(), basicMeta())
	ds, err := s.Open("basic.tif")
	require.NoError(t, err)
	return ds
}

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func TestCropAllTouched(t *testing.T) {
	src := basicSource(t)
	geom := Shape{Geom: square(2, 2, 4.25, 4.25)}

	arr, meta, err := CropImage(src, geom, true)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Width)
	assert.Equal(t, 3, meta.Height)
	assert.Equal(t, 1, arr.Bands)
	assert.Equal(t, 9.0, arr.Sum())
	assert.Equal(t, GeoTransform{2, 1, 0, 2, 0, 1}, meta.Transform)

	arr, _, err = CropImage(src, geom, false)
	require.NoError(t, err)
	assert.Equal(t, 4.0, arr.Sum())
	assert.Equal(t, 5, arr.MaskedCount())
}

func TestCropSupersetProperty(t *testing.T) {
	src := basicSource(t)
	geom := Shape{Geom: orb.Polygon{{{1.3, 1.1}, {6.7, 2.2}, {5.1, 7.9}, {1.3, 1.1}}}}
	touched, m1, err := CropImage(src, geom, true)
	require.NoError(t, err)
	centers, m2, err := CropImage(src, geom, false)
	require.NoError(t, err)
	require.Equal(t, m1, m2)
	for i := range touched.Mask {
		if !centers.Mask[i] {
			assert.False(t, touched.Mask[i], "pixel %d in center set but not in all-touched set", i)
		}
	}
	assert.GreaterOrEqual(t, touched.Sum(), centers.Sum())
}

func TestCropBigPolygonReturnsSource(t *testing.T) {
	src := basicSource(t)
	arr, meta, err := CropImage(src, BoundingBox{MinX: -1, MinY: -1, MaxX: 11, MaxY: 11}, true)
	require.NoError(t, err)
	assert.Equal(t, 10, meta.Width)
	assert.Equal(t, 10, meta.Height)
	assert.Equal(t, IdentityTransform, meta.Transform)
	assert.Equal(t, basicImage().Data, arr.Data)
	assert.Zero(t, arr.MaskedCount())
}

func TestCropNodataFill(t *testing.T) {
	s := NewMemStore()
	meta := basicMeta()
	nd := -9.0
	meta.NoData = &nd
	img := basicImage()
	for i := range img.Data {
		img.Data[i] += 5
	}
	s.Put("nd.tif", img, meta)
	ds, err := s.Open("nd.tif")
	require.NoError(t, err)

	arr, out, err := CropImage(ds, Shape{Geom: orb.Polygon{{{0, 0}, {4, 0}, {0, 4}, {0, 0}}}}, false)
	require.NoError(t, err)
	require.NotNil(t, out.NoData)
	assert.Equal(t, nd, *out.NoData)
	for i, v := range arr.Data {
		if arr.Mask[i] {
			assert.Equal(t, nd, v)
		} else {
			assert.GreaterOrEqual(t, v, 5.0)
		}
	}
}

func TestCropDegenerateGeometry(t *testing.T) {
	src := basicSource(t)
	for name, g := range map[string]Geometry{
		"point":             Shape{Geom: orb.Point{3, 3}},
		"horizontal":        Shape{Geom: orb.LineString{{1, 3}, {6, 3}}},
		"vertical":          Shape{Geom: orb.LineString{{3, 1}, {3, 6}}},
		"off-grid point":    Shape{Geom: orb.Point{3.5, 3.5}},
		"off-grid line":     Shape{Geom: orb.LineString{{1, 3.5}, {6, 3.5}}},
		"off-grid vertical": Shape{Geom: orb.LineString{{3.5, 1}, {3.5, 6}}},
		"flat box":          BoundingBox{MinX: 3.5, MinY: 3.5, MaxX: 3.5, MaxY: 3.5},
		"flat box list":     ShapeList{orb.Point{2.5, 2.5}, orb.LineString{{2.5, 2.5}, {7.5, 2.5}}},
	} {
		for _, allTouched := range []bool{true, false} {
			_, _, err := CropImage(src, g, allTouched)
			assert.True(t, errors.Is(err, ErrEmptyWindow), name)
			assert.True(t, errors.Is(err, ErrValidation), name)
		}
	}
}

func TestCropCenterOnBoundary(t *testing.T) {
	src := basicSource(t)
	geom := Shape{Geom: square(2.5, 2.5, 4.5, 4.5)}

	arr, meta, err := CropImage(src, geom, false)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Width)
	assert.Equal(t, 3, meta.Height)
	// 边上的8个像元中心不计入，只留中间一个
	assert.Equal(t, 1.0, arr.Sum())
	assert.Equal(t, 8, arr.MaskedCount())
	assert.False(t, arr.Mask[arr.Index(0, 1, 1)])

	arr, _, err = CropImage(src, geom, true)
	require.NoError(t, err)
	assert.Equal(t, 9.0, arr.Sum())
	assert.Zero(t, arr.MaskedCount())
}

func TestRasterizeHoleBoundary(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {5, 0}, {5, 5}, {0, 5}, {0, 0}},
		{{1.5, 1.5}, {3.5, 1.5}, {3.5, 3.5}, {1.5, 3.5}, {1.5, 1.5}},
	}
	grid, err := Rasterize([]orb.Geometry{poly}, IdentityTransform, Window{Width: 5, Height: 5}, false)
	require.NoError(t, err)
	n := 0
	for _, in := range grid {
		if in {
			n++
		}
	}
	// 洞内1个加洞边上8个像元中心都不在面内
	assert.Equal(t, 16, n)
	assert.False(t, grid[1*5+1])
	assert.False(t, grid[2*5+2])
	assert.True(t, grid[0])

	grid, err = Rasterize([]orb.Geometry{poly}, IdentityTransform, Window{Width: 5, Height: 5}, true)
	require.NoError(t, err)
	assert.True(t, grid[1*5+1], "hole edge crosses the cell")
	assert.False(t, grid[2*5+2])
}

func TestOnSegment(t *testing.T) {
	a, b := orb.Point{2.5, 2.5}, orb.Point{4.5, 2.5}
	assert.True(t, onSegment(a, b, orb.Point{3.5, 2.5}))
	assert.True(t, onSegment(a, b, a))
	assert.False(t, onSegment(a, b, orb.Point{5.5, 2.5}))
	assert.False(t, onSegment(a, b, orb.Point{3.5, 2.6}))
	assert.True(t, onSegment(orb.Point{0, 4}, orb.Point{4, 0}, orb.Point{1.5, 2.5}))
}

func TestCropNoOverlap(t *testing.T) {
	src := basicSource(t)
	_, _, err := CropImage(src, Shape{Geom: square(20, 20, 30, 30)}, true)
	assert.True(t, errors.Is(err, ErrNoOverlap))
	assert.Contains(t, err.Error(), "basic.tif")
}

func TestCropLine(t *testing.T) {
	src := basicSource(t)
	arr, meta, err := CropImage(src, Shape{Geom: orb.LineString{{2.5, 2.5}, {4.5, 4.5}}}, false)
	require.NoError(t, err)
	assert.Equal(t, Window{Width: 3, Height: 3}, Window{Width: meta.Width, Height: meta.Height})
	// 对角线穿过的3个像元
	assert.Equal(t, 3.0, arr.Sum())
}

func TestCropEmptyGeometry(t *testing.T) {
	src := basicSource(t)
	_, _, err := CropImage(src, ShapeList{}, true)
	assert.True(t, errors.Is(err, ErrEmptyGeometry))
	_, _, err = CropImage(src, nil, true)
	assert.True(t, errors.Is(err, ErrEmptyGeometry))
}

func TestRasterizeHole(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {5, 0}, {5, 5}, {0, 5}, {0, 0}},
		{{2, 2}, {3, 2}, {3, 3}, {2, 3}, {2, 2}},
	}
	grid, err := Rasterize([]orb.Geometry{poly}, IdentityTransform, Window{Width: 5, Height: 5}, false)
	require.NoError(t, err)
	n := 0
	for _, in := range grid {
		if in {
			n++
		}
	}
	assert.Equal(t, 24, n)
	assert.False(t, grid[2*5+2])
}

func TestRasterizeNotInvertible(t *testing.T) {
	_, err := Rasterize([]orb.Geometry{square(0, 0, 1, 1)}, GeoTransform{0, 0, 0, 0, 0, 0}, Window{Width: 1, Height: 1}, true)
	assert.True(t, errors.Is(err, ErrNotInvertible))
}

func TestCrossesCell(t *testing.T) {
	// 沿像元边界的线段不算穿过
	assert.False(t, crossesCell(orb.Point{2, 0}, orb.Point{2, 5}, 2, 1))
	assert.False(t, crossesCell(orb.Point{2, 0}, orb.Point{2, 5}, 1, 1))
	assert.True(t, crossesCell(orb.Point{2.5, 0}, orb.Point{2.5, 5}, 2, 1))
	// 只经过角点
	assert.False(t, crossesCell(orb.Point{0, 2}, orb.Point{2, 0}, 1, 1))
	assert.True(t, crossesCell(orb.Point{0, 0}, orb.Point{3, 3}, 1, 1))
}
