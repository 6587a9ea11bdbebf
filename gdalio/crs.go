package gdalio

import (
	"strconv"
	"strings"
	"sync"

	"github.com/wgdzlh/geostack/log"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

const epsgPrefix = "EPSG:"

// 坐标系缓存，按定义字符串复用，生命周期与进程一致故无需回收
type crsCache struct {
	refMap map[string]*godal.SpatialRef
	rLock  sync.Mutex
	logTag string
}

func newCrsCache() *crsCache {
	return &crsCache{
		refMap: map[string]*godal.SpatialRef{},
		logTag: "CrsCache:",
	}
}

// 解析坐标系定义：EPSG:xxxx、proj4串或WKT
func parseSpatialRef(def string) (*godal.SpatialRef, error) {
	switch {
	case strings.HasPrefix(strings.ToUpper(def), epsgPrefix):
		code, err := strconv.Atoi(strings.TrimSpace(def[len(epsgPrefix):]))
		if err != nil {
			return nil, err
		}
		return godal.NewSpatialRefFromEPSG(code)
	case strings.HasPrefix(def, "+proj"):
		return godal.NewSpatialRefFromProj4(def)
	default:
		return godal.NewSpatialRefFromWKT(def)
	}
}

func (c *crsCache) get(def string) (ref *godal.SpatialRef, err error) {
	c.rLock.Lock()
	defer c.rLock.Unlock()
	ref, ok := c.refMap[def]
	if ok {
		return
	}
	if ref, err = parseSpatialRef(def); err != nil {
		log.Error(c.logTag+"parse crs failed", zap.String("crs", def), zap.Error(err))
		return
	}
	c.refMap[def] = ref
	return
}

// 判断两个坐标系定义是否等价；任一无法解析时退化为字符串比较
func (c *crsCache) same(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	ra, err := c.get(a)
	if err != nil {
		return false
	}
	rb, err := c.get(b)
	if err != nil {
		return false
	}
	return ra.IsSame(rb)
}
