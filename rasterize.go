package geostack

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

const pixelEps = 1e-9

// 地理坐标几何转为像元坐标（列,行）几何，不修改输入
func toPixelSpace(shapes []orb.Geometry, gt GeoTransform) (pix []orb.Geometry, err error) {
	inv, ok := gt.Invert()
	if !ok {
		err = ErrNotInvertible
		return
	}
	proj := func(p orb.Point) orb.Point {
		c, r := inv.Apply(p[0], p[1])
		return orb.Point{c, r}
	}
	pix = make([]orb.Geometry, len(shapes))
	for i, g := range shapes {
		pix[i] = project.Geometry(orb.Clone(g), proj)
	}
	return
}

func snapFloor(v float64) int {
	if r := math.Round(v); math.Abs(v-r) < pixelEps {
		return int(r)
	}
	return int(math.Floor(v))
}

func snapCeil(v float64) int {
	if r := math.Round(v); math.Abs(v-r) < pixelEps {
		return int(r)
	}
	return int(math.Ceil(v))
}

// 像元空间几何的外包窗口：起点向下取整，终点向上取整
func pixelWindow(pix []orb.Geometry) Window {
	b := shapesBound(pix)
	c0, r0 := snapFloor(b.Min[0]), snapFloor(b.Min[1])
	c1, r1 := snapCeil(b.Max[0]), snapCeil(b.Max[1])
	return Window{ColOff: c0, RowOff: r0, Width: c1 - c0, Height: r1 - r0}
}

// 几何栅格化到窗口内，返回 Height*Width 的布尔网格，true为几何覆盖的像元。
// allTouched为true时包含被边界穿过的像元，否则只取中心严格落在面内（不含边界）的像元
func Rasterize(shapes []orb.Geometry, gt GeoTransform, win Window, allTouched bool) (grid []bool, err error) {
	pix, err := toPixelSpace(shapes, gt)
	if err != nil {
		return
	}
	b := burner{win: win, grid: make([]bool, max(win.Width, 0)*max(win.Height, 0))}
	for _, g := range pix {
		b.burn(g, allTouched)
	}
	grid = b.grid
	return
}

type burner struct {
	win  Window
	grid []bool
}

func (b *burner) set(col, row int) {
	c, r := col-b.win.ColOff, row-b.win.RowOff
	if c < 0 || r < 0 || c >= b.win.Width || r >= b.win.Height {
		return
	}
	b.grid[r*b.win.Width+c] = true
}

func (b *burner) burn(g orb.Geometry, allTouched bool) {
	switch v := g.(type) {
	case orb.Point:
		b.point(v)
	case orb.MultiPoint:
		for _, p := range v {
			b.point(p)
		}
	case orb.LineString:
		b.line(v)
	case orb.MultiLineString:
		for _, l := range v {
			b.line(l)
		}
	case orb.Ring:
		b.polygon(orb.Polygon{v}, allTouched)
	case orb.Polygon:
		b.polygon(v, allTouched)
	case orb.MultiPolygon:
		for _, p := range v {
			b.polygon(p, allTouched)
		}
	case orb.Bound:
		b.polygon(v.ToPolygon(), allTouched)
	case orb.Collection:
		for _, sub := range v {
			b.burn(sub, allTouched)
		}
	}
}

func (b *burner) point(p orb.Point) {
	b.set(int(math.Floor(p[0])), int(math.Floor(p[1])))
}

func (b *burner) line(l orb.LineString) {
	for i := 1; i < len(l); i++ {
		b.segment(l[i-1], l[i])
	}
	for _, p := range l {
		b.point(p)
	}
}

// 标记线段穿过内部的所有像元
func (b *burner) segment(p, q orb.Point) {
	c0 := max(int(math.Floor(math.Min(p[0], q[0]))), b.win.ColOff)
	c1 := min(int(math.Floor(math.Max(p[0], q[0]))), b.win.ColOff+b.win.Width-1)
	r0 := max(int(math.Floor(math.Min(p[1], q[1]))), b.win.RowOff)
	r1 := min(int(math.Floor(math.Max(p[1], q[1]))), b.win.RowOff+b.win.Height-1)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if crossesCell(p, q, float64(c), float64(r)) {
				b.set(c, r)
			}
		}
	}
}

func (b *burner) polygon(poly orb.Polygon, allTouched bool) {
	if len(poly) == 0 {
		return
	}
	bound := poly.Bound()
	c0 := max(int(math.Floor(bound.Min[0])), b.win.ColOff)
	c1 := min(int(math.Ceil(bound.Max[0])), b.win.ColOff+b.win.Width)
	r0 := max(int(math.Floor(bound.Min[1])), b.win.RowOff)
	r1 := min(int(math.Ceil(bound.Max[1])), b.win.RowOff+b.win.Height)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			center := orb.Point{float64(c) + 0.5, float64(r) + 0.5}
			if !onBoundary(poly, center) && planar.PolygonContains(poly, center) {
				b.set(c, r)
			}
		}
	}
	if !allTouched {
		return
	}
	for _, ring := range poly {
		for i := 1; i < len(ring); i++ {
			b.segment(ring[i-1], ring[i])
		}
	}
}

// 点是否落在任一环的边上，边上的像元中心不算在面内
func onBoundary(poly orb.Polygon, p orb.Point) bool {
	for _, ring := range poly {
		for i := 1; i < len(ring); i++ {
			if onSegment(ring[i-1], ring[i], p) {
				return true
			}
		}
	}
	return false
}

func onSegment(a, b, p orb.Point) bool {
	dx, dy := b[0]-a[0], b[1]-a[1]
	cross := dx*(p[1]-a[1]) - dy*(p[0]-a[0])
	if math.Abs(cross) > pixelEps*math.Max(1, math.Hypot(dx, dy)) {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-pixelEps && p[0] <= math.Max(a[0], b[0])+pixelEps &&
		p[1] >= math.Min(a[1], b[1])-pixelEps && p[1] <= math.Max(a[1], b[1])+pixelEps
}

// 线段pq是否穿过像元(c,r)的开区域：Liang-Barsky裁剪后取中点判断
func crossesCell(p, q orb.Point, c, r float64) bool {
	dx, dy := q[0]-p[0], q[1]-p[1]
	t0, t1 := 0.0, 1.0
	clip := func(den, num float64) bool {
		if den == 0 {
			return num >= 0
		}
		t := num / den
		if den > 0 {
			if t < t0 {
				return false
			}
			t1 = math.Min(t1, t)
		} else {
			if t > t1 {
				return false
			}
			t0 = math.Max(t0, t)
		}
		return true
	}
	if !clip(-dx, p[0]-c) || !clip(dx, c+1-p[0]) || !clip(-dy, p[1]-r) || !clip(dy, r+1-p[1]) {
		return false
	}
	if t0 > t1 {
		return false
	}
	tm := (t0 + t1) / 2
	mx, my := p[0]+tm*dx, p[1]+tm*dy
	return mx > c+pixelEps && mx < c+1-pixelEps && my > r+pixelEps && my < r+1-pixelEps
}
