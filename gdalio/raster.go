package gdalio

import (
	"fmt"
	"os"
	"sync"

	"github.com/wgdzlh/geostack"
	"github.com/wgdzlh/geostack/log"
	"github.com/wgdzlh/geostack/utils"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

const storeLogTag = "GdalStore:"

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

var dataTypes = map[godal.DataType]geostack.DataType{
	godal.Byte:    geostack.Byte,
	godal.UInt16:  geostack.UInt16,
	godal.Int16:   geostack.Int16,
	godal.UInt32:  geostack.UInt32,
	godal.Int32:   geostack.Int32,
	godal.Float32: geostack.Float32,
	godal.Float64: geostack.Float64,
}

func toGodalType(dt geostack.DataType) godal.DataType {
	for k, v := range dataTypes {
		if v == dt {
			return k
		}
	}
	return godal.Float64
}

// 基于GDAL的栅格存储
type Store struct {
	crs    *crsCache
	coOpts []string
	logTag string
}

// 初始化GDAL栅格存储，creationOptions为写出时的-co参数
func NewStore(creationOptions ...string) *Store {
	register()
	return &Store{
		crs:    newCrsCache(),
		coOpts: creationOptions,
		logTag: storeLogTag,
	}
}

func (s *Store) SameCRS(a, b string) bool {
	return s.crs.same(a, b)
}

func (s *Store) Exists(path string) bool {
	return utils.FileExists(path)
}

func (s *Store) DirExists(dir string) bool {
	return utils.DirExists(dir)
}

func (s *Store) Open(path string) (geostack.Dataset, error) {
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", geostack.ErrNoRaster, path)
	}
	sds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		log.Error(s.logTag+"open tif failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	d := &dataset{path: path, ds: sds}
	if err = d.loadMeta(); err != nil {
		sds.Close()
		return nil, err
	}
	return d, nil
}

type dataset struct {
	path  string
	ds    *godal.Dataset
	bands []godal.Band
	meta  geostack.Meta
}

func (d *dataset) loadMeta() (err error) {
	st := d.ds.Structure()
	d.bands = d.ds.Bands()
	if len(d.bands) == 0 {
		err = fmt.Errorf("%s: raster has no band", d.path)
		return
	}
	gt, e := d.ds.GeoTransform()
	if e != nil {
		gt = geostack.IdentityTransform
	}
	driver, _ := geostack.DriverForPath(d.path)
	d.meta = geostack.Meta{
		Driver:    driver,
		DType:     dataTypes[st.DataType],
		Width:     st.SizeX,
		Height:    st.SizeY,
		Count:     st.NBands,
		Transform: gt,
		CRS:       d.ds.Projection(),
	}
	if nd, ok := d.bands[0].NoData(); ok {
		d.meta.NoData = &nd
	}
	log.Debug(storeLogTag+"opened raster", zap.String("path", d.path), zap.Int("bands", st.NBands),
		zap.Int("width", st.SizeX), zap.Int("height", st.SizeY), zap.String("dt", st.DataType.String()))
	return
}

func (d *dataset) Path() string {
	return d.path
}

func (d *dataset) Meta() geostack.Meta {
	return d.meta.Clone()
}

func (d *dataset) ReadWindow(w geostack.Window) (arr *geostack.Array, err error) {
	if w.Empty() || w.ColOff < 0 || w.RowOff < 0 || w.ColOff+w.Width > d.meta.Width || w.RowOff+w.Height > d.meta.Height {
		err = fmt.Errorf("read %s: window %+v out of %dx%d raster", d.path, w, d.meta.Width, d.meta.Height)
		return
	}
	arr = geostack.NewArray(d.meta.DType, len(d.bands), w.Height, w.Width)
	for i, band := range d.bands {
		if err = band.Read(w.ColOff, w.RowOff, arr.Band(i), w.Width, w.Height); err != nil {
			log.Error(storeLogTag+"read tif band failed", zap.String("path", d.path), zap.Int("band", i), zap.Error(err))
			arr = nil
			return
		}
	}
	return
}

func (d *dataset) Close() error {
	return d.ds.Close()
}

// 先在内存中组装数据集，再Translate为目标格式的临时文件，最后rename为正式文件
func (s *Store) Write(path string, arr *geostack.Array, meta geostack.Meta) (err error) {
	driver := meta.Driver
	if driver == "" {
		driver = geostack.DRIVER_GTIFF
	}
	mds, err := godal.Create(godal.Memory, "", arr.Bands, toGodalType(arr.DType), arr.Cols, arr.Rows)
	if err != nil {
		log.Error(s.logTag+"create mem dataset failed", zap.Error(err))
		return
	}
	defer mds.Close()
	if err = mds.SetGeoTransform(meta.Transform); err != nil {
		return
	}
	if meta.CRS != "" {
		var ref *godal.SpatialRef
		if ref, err = s.crs.get(meta.CRS); err != nil {
			return
		}
		if err = mds.SetSpatialRef(ref); err != nil {
			log.Error(s.logTag+"set spatial ref failed", zap.Error(err))
			return
		}
	}
	for i, band := range mds.Bands() {
		if err = band.Write(0, 0, arr.Band(i), arr.Cols, arr.Rows); err != nil {
			return
		}
		if meta.NoData != nil {
			if err = band.SetNoData(*meta.NoData); err != nil {
				return
			}
		}
	}
	switches := []string{"-of", driver}
	for _, co := range s.coOpts {
		switches = append(switches, "-co", co)
	}
	tmp := utils.TempSibling(path)
	ods, err := mds.Translate(tmp, switches)
	if err != nil {
		log.Error(s.logTag+"failed to translate raster", zap.String("out", path), zap.Error(err))
		os.Remove(tmp)
		return
	}
	if err = ods.Close(); err != nil {
		os.Remove(tmp)
		return
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return
	}
	log.Info(s.logTag+"wrote raster", zap.String("out", path), zap.String("driver", driver), zap.Int("bands", arr.Bands))
	return
}
