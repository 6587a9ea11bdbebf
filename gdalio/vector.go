package gdalio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wgdzlh/geostack"
	"github.com/wgdzlh/geostack/log"
	"github.com/wgdzlh/geostack/utils"

	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

const (
	SHP_DRIVER_NAME     = "ESRI Shapefile"
	GEOJSON_DRIVER_NAME = "GeoJSON"
	GPKG_DRIVER_NAME    = "GPKG"

	vectorLogTag = "GdalVector:"
)

var vectorDrivers = map[string]string{
	".shp":     SHP_DRIVER_NAME,
	".json":    GEOJSON_DRIVER_NAME,
	".geojson": GEOJSON_DRIVER_NAME,
	".gpkg":    GPKG_DRIVER_NAME,
}

var ErrGdalDriverOpen = errors.New("gdal driver open err")

// 按字段值筛选要素，Values为空时不筛选
type Filter struct {
	Field  string
	Values []string
}

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

// 查找字段，UTF-8字段名找不到时再按GBK字段名查找
func fieldIndex(def gdal.FeatureDefinition, name string) (idx int) {
	if idx = def.FieldIndex(name); idx >= 0 {
		return
	}
	if gbk, e := utils.Utf8StrToGbk(name); e == nil && gbk != name {
		idx = def.FieldIndex(gbk)
	}
	return
}

// 读取矢量文件第一个图层的全部要素，返回要素集合及图层坐标系WKT
func ReadVector(path string, filter ...Filter) (coll geostack.Collection, crs string, err error) {
	driverName, ok := vectorDrivers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		err = fmt.Errorf("%w: unsupported vector file %s", geostack.ErrValidation, path)
		return
	}
	if !utils.FileExists(path) {
		err = fmt.Errorf("%w: %s", geostack.ErrNotFound, path)
		return
	}
	ds, ok := gdal.OGRDriverByName(driverName).Open(path, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	var (
		layer   = ds.LayerByIndex(0)
		def     = layer.Definition()
		isUtf8  = utils.ShpIsUtf8(path)
		fc      = geojson.NewFeatureCollection()
		names   = make([]string, def.FieldCount())
		fIdx    = -1
		values  []string
		feature *gdal.Feature
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	decode := func(s string) string {
		if !isUtf8 {
			if d, e := utils.GbkStrToUtf8(s); e == nil {
				return d
			}
		}
		return utils.ToUtf8(s)
	}
	for i := range names {
		names[i] = decode(def.FieldDefinition(i).Name())
	}
	if len(filter) > 0 && filter[0].Field != "" && len(filter[0].Values) > 0 {
		if fIdx = fieldIndex(def, filter[0].Field); fIdx < 0 {
			err = fmt.Errorf("%w: field %s is missing in %s", geostack.ErrValidation, filter[0].Field, path)
			return
		}
		values = filter[0].Values
	}
	if sp := layer.SpatialReference(); sp != (gdal.SpatialReference{}) {
		crs, _ = sp.ToWKT()
	}
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		if fIdx >= 0 && !utils.ContainsString(values, decode(feature.FieldAsString(fIdx))) {
			continue
		}
		raw, e := feature.Geometry().ToWKB()
		if e != nil {
			log.Error(vectorLogTag+"err in wkb convert", zap.String("file", path), zap.Int64("fid", feature.FID()), zap.Error(e))
			continue
		}
		geom, e := wkb.Unmarshal(raw)
		if e != nil {
			log.Error(vectorLogTag+"err in wkb decode", zap.String("file", path), zap.Int64("fid", feature.FID()), zap.Error(e))
			continue
		}
		f := geojson.NewFeature(geom)
		f.ID = feature.FID()
		for i, name := range names {
			f.Properties[name] = decode(feature.FieldAsString(i))
		}
		fc.Append(f)
	}
	log.Info(vectorLogTag+"read vector", zap.String("file", path), zap.Int("features", len(fc.Features)))
	coll = geostack.Collection{FC: fc}
	return
}
