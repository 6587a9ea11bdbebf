package geostack

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/wgdzlh/geostack/log"
	"github.com/wgdzlh/geostack/utils"

	"go.uber.org/zap"
)

type Toolbox struct {
	store  Store
	cfg    *Config
	logTag string
}

// 初始化栅格工具箱，cfg为可选配置（未提供时取默认配置）
func NewToolbox(store Store, cfg ...*Config) *Toolbox {
	t := &Toolbox{
		store:  store,
		cfg:    DefaultConfig(),
		logTag: "Toolbox:",
	}
	if len(cfg) > 0 && cfg[0] != nil {
		t.cfg = cfg[0]
	}
	return t
}

func (t *Toolbox) Config() *Config {
	return t.cfg
}

func (t *Toolbox) sameCRS(a, b string) bool {
	if c, ok := t.store.(CRSComparer); ok {
		return c.SameCRS(a, b)
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// 打开并完整读取一个栅格，读完即关闭；check不通过时不读取像元
func (t *Toolbox) readAll(path string, check func(Meta) error) (arr *Array, err error) {
	ds, err := t.store.Open(path)
	if err != nil {
		log.Error(t.logTag+"open raster failed", zap.String("path", path), zap.Error(err))
		return
	}
	defer ds.Close()
	meta := ds.Meta()
	if err = check(meta); err != nil {
		return
	}
	arr, err = ds.ReadWindow(fullWindow(meta))
	if err != nil {
		log.Error(t.logTag+"read raster failed", zap.String("path", path), zap.Error(err))
	}
	return
}

// 检查输出文件名：须带扩展名、驱动可写、所在目录存在
func (t *Toolbox) checkOutPath(op, out string) (driver string, err error) {
	ext := filepath.Ext(out)
	if ext == "" || utils.GetFilenameWithoutExt(out) == "" {
		err = withPath(ErrInvalidOutputName, op, out)
		return
	}
	driver, ok := DriverForPath(out)
	if !ok || !DriverWritable(driver) {
		err = withPath(ErrUnsupportedDriver, op, out)
		return
	}
	if !t.store.DirExists(filepath.Dir(out)) {
		err = withPath(ErrOutputDirMissing, op, filepath.Dir(out))
	}
	return
}

// 叠加多个栅格的波段；outPath非空时同时写出，nodata非空时掩膜等于nodata的像元
func (t *Toolbox) Stack(bandPaths []string, outPath string, nodata *float64) (arr *Array, meta Meta, err error) {
	if len(bandPaths) < 2 {
		err = ErrTooFewFiles
		return
	}
	bandPaths = t.cfg.DataHome.ResolveAll(bandPaths)
	var outDriver string
	if outPath != "" {
		outPath = t.cfg.DataHome.Resolve(outPath)
		if outDriver, err = t.checkOutPath(OP_STACK, outPath); err != nil {
			return
		}
	}
	log.Info(t.logTag+"start stack bands", zap.Int("files", len(bandPaths)), zap.String("out", outPath))
	parts := make([]*Array, 0, len(bandPaths))
	for i, path := range bandPaths {
		check := func(m Meta) error {
			if i > 0 {
				return t.checkStackable(meta, m, path)
			}
			meta = m
			if outDriver != "" && outDriver != m.Driver {
				return fmt.Errorf("%w: source data is %s, please specify corresponding output extension",
					withPath(ErrDriverMismatch, OP_STACK, outPath), m.Driver)
			}
			return nil
		}
		var part *Array
		if part, err = t.readAll(path, check); err != nil {
			return
		}
		parts = append(parts, part)
	}
	arr = concatBands(parts)
	meta.Count = arr.Bands
	if nodata != nil {
		nd := *nodata
		maskValue(arr, nd)
		meta.NoData = &nd
	}
	if outPath != "" {
		meta.Driver = outDriver
		if err = t.store.Write(outPath, arr, meta); err != nil {
			log.Error(t.logTag+"write stack failed", zap.String("out", outPath), zap.Error(err))
			return
		}
	}
	log.Info(t.logTag+"end stack bands", zap.Int("bands", arr.Bands), zap.Int("width", meta.Width), zap.Int("height", meta.Height))
	return
}

func (t *Toolbox) checkStackable(base, m Meta, path string) error {
	switch {
	case m.Width != base.Width || m.Height != base.Height:
		return withPath(ErrShapeMismatch, OP_STACK, path)
	case !t.sameCRS(base.CRS, m.CRS):
		return withPath(ErrCRSMismatch, OP_STACK, path)
	case !base.Transform.Equal(m.Transform):
		return withPath(ErrTransformMismatch, OP_STACK, path)
	}
	return nil
}

func concatBands(parts []*Array) *Array {
	var (
		first = parts[0]
		bands int
		mask  bool
	)
	for _, p := range parts {
		bands += p.Bands
		mask = mask || p.Mask != nil
	}
	out := NewArray(first.DType, bands, first.Rows, first.Cols)
	if mask {
		out.Mask = make([]bool, out.Len())
	}
	off := 0
	for _, p := range parts {
		copy(out.Data[off:], p.Data)
		if p.Mask != nil {
			copy(out.Mask[off:], p.Mask)
		}
		off += p.Len()
	}
	return out
}

func maskValue(arr *Array, nd float64) {
	mask := arr.ensureMask()
	isNaN := math.IsNaN(nd)
	for i, v := range arr.Data {
		if v == nd || (isNaN && math.IsNaN(v)) {
			mask[i] = true
		}
	}
}

// 按几何剪切单个栅格文件
func (t *Toolbox) CropImage(path string, geom Geometry, allTouched bool) (arr *Array, meta Meta, err error) {
	path = t.cfg.DataHome.Resolve(path)
	ds, err := t.store.Open(path)
	if err != nil {
		log.Error(t.logTag+"open raster failed", zap.String("path", path), zap.Error(err))
		return
	}
	defer ds.Close()
	arr, meta, err = CropImage(ds, geom, allTouched)
	if err != nil {
		log.Error(t.logTag+"crop raster failed", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info(t.logTag+"cropped raster", zap.String("path", path), zap.Int("width", meta.Width), zap.Int("height", meta.Height))
	return
}
