package geostack

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DRIVER_GTIFF   = "GTiff"
	DRIVER_JP2     = "JP2OpenJPEG"
	DRIVER_HFA     = "HFA"
	DRIVER_VRT     = "VRT"
	DEFAULT_SUFFIX = "_crop"

	OP_STACK     = "stack"
	OP_CROP      = "crop_image"
	OP_CROP_ALL  = "crop_all"
	OP_BYTESCALE = "bytescale"
	OP_NORM_DIFF = "normalized_diff"
	OP_MASK      = "mask"
	OP_HILLSHADE = "hillshade"
)

// 扩展名对应的驱动
var extDrivers = map[string]string{
	".tif":  DRIVER_GTIFF,
	".tiff": DRIVER_GTIFF,
	".jp2":  DRIVER_JP2,
	".img":  DRIVER_HFA,
	".vrt":  DRIVER_VRT,
}

// 可写出的驱动
var writableDrivers = map[string]bool{
	DRIVER_GTIFF: true,
	DRIVER_JP2:   true,
	DRIVER_HFA:   true,
}

// 按文件扩展名推断驱动
func DriverForPath(path string) (driver string, ok bool) {
	driver, ok = extDrivers[strings.ToLower(filepath.Ext(path))]
	return
}

func DriverWritable(driver string) bool {
	return writableDrivers[driver]
}

// 数据根目录，相对路径以其为基准
type DataHome string

func (h DataHome) Resolve(path string) string {
	if h == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(string(h), path)
}

func (h DataHome) ResolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = h.Resolve(p)
	}
	return out
}

type Config struct {
	DataHome        DataHome `yaml:"data_home"`
	CropSuffix      string   `yaml:"crop_suffix"`
	CreationOptions []string `yaml:"creation_options"`
	LogLevel        string   `yaml:"log_level"`
	Verbose         bool     `yaml:"verbose"`
}

func DefaultConfig() *Config {
	return &Config{
		CropSuffix: DEFAULT_SUFFIX,
		LogLevel:   "info",
		Verbose:    true,
	}
}

// 从yaml文件加载配置，未给出的字段取默认值
func LoadConfig(path string) (cfg *Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	cfg = DefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		cfg = nil
		return
	}
	if cfg.CropSuffix == "" {
		cfg.CropSuffix = DEFAULT_SUFFIX
	}
	return
}
