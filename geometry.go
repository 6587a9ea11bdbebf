package geostack

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 剪切用几何，取值为 BoundingBox、Shape、ShapeList、Collection 之一
type Geometry interface {
	shapes() ([]orb.Geometry, error)
}

// 矩形范围
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b BoundingBox) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

func (b BoundingBox) Polygon() orb.Polygon {
	return b.Bound().ToPolygon()
}

func (b BoundingBox) WKT() string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", b.MinX, b.MaxX, b.MinY, b.MaxY)
}

func (b BoundingBox) shapes() ([]orb.Geometry, error) {
	if !b.Valid() {
		return nil, ErrInvalidBounds
	}
	return []orb.Geometry{b.Polygon()}, nil
}

// 单个几何
type Shape struct {
	Geom orb.Geometry
}

func (s Shape) shapes() ([]orb.Geometry, error) {
	return flatten(nil, s.Geom), nil
}

// 几何列表
type ShapeList []orb.Geometry

func (l ShapeList) shapes() ([]orb.Geometry, error) {
	var out []orb.Geometry
	for _, g := range l {
		out = flatten(out, g)
	}
	return out, nil
}

// 要素集合，按全部要素的并集剪切
type Collection struct {
	FC *geojson.FeatureCollection
}

func (c Collection) shapes() ([]orb.Geometry, error) {
	if c.FC == nil {
		return nil, nil
	}
	var out []orb.Geometry
	for _, f := range c.FC.Features {
		if f != nil {
			out = flatten(out, f.Geometry)
		}
	}
	return out, nil
}

func flatten(out []orb.Geometry, g orb.Geometry) []orb.Geometry {
	switch v := g.(type) {
	case nil:
	case orb.Collection:
		for _, sub := range v {
			out = flatten(out, sub)
		}
	case orb.Bound:
		out = append(out, v.ToPolygon())
	default:
		out = append(out, g)
	}
	return out
}

// 将各种几何统一为几何列表
func Normalize(geom Geometry) (shapes []orb.Geometry, err error) {
	if geom == nil {
		err = ErrEmptyGeometry
		return
	}
	if shapes, err = geom.shapes(); err != nil {
		return
	}
	if len(shapes) == 0 {
		err = ErrEmptyGeometry
	}
	return
}

func shapesBound(shapes []orb.Geometry) orb.Bound {
	b := shapes[0].Bound()
	for _, g := range shapes[1:] {
		b = b.Union(g.Bound())
	}
	return b
}

// 解析GeoJSON（FeatureCollection、Feature或裸几何）
func ParseGeoJSON(data []byte) (geom Geometry, err error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err = json.Unmarshal(data, &probe); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
		return
	}
	switch probe.Type {
	case "FeatureCollection":
		var fc *geojson.FeatureCollection
		if fc, err = geojson.UnmarshalFeatureCollection(data); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
			return
		}
		geom = Collection{FC: fc}
	case "Feature":
		var f *geojson.Feature
		if f, err = geojson.UnmarshalFeature(data); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
			return
		}
		geom = Shape{Geom: f.Geometry}
	case "":
		err = fmt.Errorf("%w: missing type", ErrInvalidGeoJSON)
	default:
		var g *geojson.Geometry
		if g, err = geojson.UnmarshalGeometry(data); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
			return
		}
		geom = Shape{Geom: g.Geometry()}
	}
	return
}

// 范围转GeoJSON多边形：BoundingBox取自身，Collection取全部要素的外包框
func ExtentToGeoJSON(geom Geometry) (ret []byte, err error) {
	var b orb.Bound
	switch v := geom.(type) {
	case BoundingBox:
		if !v.Valid() {
			err = ErrInvalidBounds
			return
		}
		b = v.Bound()
	case Collection:
		var shapes []orb.Geometry
		if shapes, err = Normalize(v); err != nil {
			return
		}
		b = shapesBound(shapes)
	default:
		err = fmt.Errorf("%w: extent needs a bounding box or a feature collection", ErrValidation)
		return
	}
	return geojson.NewGeometry(b.ToPolygon()).MarshalJSON()
}
