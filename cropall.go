package geostack

import (
	"fmt"
	"path/filepath"

	"github.com/wgdzlh/geostack/log"
	"github.com/wgdzlh/geostack/utils"

	"go.uber.org/zap"
)

// 批量剪切的输出位置，取值为 OutputDir 或 OutputPaths
type Destination interface {
	outputs(inputs []string, suffix string) ([]string, error)
}

// 输出目录，文件名为 <原文件名>_crop<原扩展名>
type OutputDir string

func (d OutputDir) outputs(inputs []string, suffix string) ([]string, error) {
	outs := make([]string, len(inputs))
	for i, in := range inputs {
		outs[i] = utils.CropOutputName(string(d), in, suffix)
	}
	return outs, nil
}

// 逐个指定输出路径，数量须与输入一致
type OutputPaths []string

func (p OutputPaths) outputs(inputs []string, _ string) ([]string, error) {
	if len(p) != len(inputs) {
		return nil, ErrLengthMismatch
	}
	return append([]string(nil), p...), nil
}

type CropAllOptions struct {
	Overwrite  bool
	Verbose    bool
	AllTouched bool
}

func DefaultCropAllOptions() CropAllOptions {
	return CropAllOptions{Verbose: true, AllTouched: true}
}

// 按同一几何剪切多个栅格并逐个写出。
// 所有检查在写出前完成；中途失败时已写出的文件保留。
// Verbose为true时返回输出路径列表，否则返回nil
func (t *Toolbox) CropAll(bandPaths []string, dst Destination, geom Geometry, opts CropAllOptions) (outs []string, err error) {
	if dst == nil {
		err = fmt.Errorf("%s: %w: destination is required", OP_CROP_ALL, ErrValidation)
		return
	}
	bandPaths = t.cfg.DataHome.ResolveAll(bandPaths)
	if outs, err = dst.outputs(bandPaths, t.cfg.CropSuffix); err != nil {
		return
	}
	outs = t.cfg.DataHome.ResolveAll(outs)
	if err = t.checkCropOutputs(outs, opts.Overwrite); err != nil {
		outs = nil
		return
	}
	shapes, err := Normalize(geom)
	if err != nil {
		outs = nil
		return
	}
	cropGeom := ShapeList(shapes)
	for i, path := range bandPaths {
		if err = t.cropOne(path, outs[i], cropGeom, opts.AllTouched); err != nil {
			log.Error(t.logTag+"crop all stopped", zap.Int("done", i), zap.Int("total", len(bandPaths)), zap.Error(err))
			outs = nil
			return
		}
		if opts.Verbose {
			log.Info(t.logTag+"cropped", zap.String("in", path), zap.String("out", outs[i]))
		}
	}
	if !opts.Verbose {
		outs = nil
	}
	return
}

// 写出前检查全部输出：文件名与驱动、目录存在、互不重复、未覆盖已有文件
func (t *Toolbox) checkCropOutputs(outs []string, overwrite bool) error {
	seen := make(map[string]bool, len(outs))
	for _, out := range outs {
		if _, err := t.checkOutPath(OP_CROP_ALL, out); err != nil {
			return err
		}
		key := filepath.Clean(out)
		if seen[key] {
			return withPath(ErrDuplicateOutput, OP_CROP_ALL, out)
		}
		seen[key] = true
	}
	if overwrite {
		return nil
	}
	for _, out := range outs {
		if t.store.Exists(out) {
			return withPath(ErrFileExists, OP_CROP_ALL, out)
		}
	}
	return nil
}

func (t *Toolbox) cropOne(in, out string, geom Geometry, allTouched bool) (err error) {
	ds, err := t.store.Open(in)
	if err != nil {
		return
	}
	arr, meta, err := CropImage(ds, geom, allTouched)
	ds.Close()
	if err != nil {
		return
	}
	meta.Driver, _ = DriverForPath(out)
	return t.store.Write(out, arr, meta)
}
