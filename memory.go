package geostack

import (
	"fmt"
	"path/filepath"
	"sync"
)

type memRaster struct {
	arr  *Array
	meta Meta
}

// 内存栅格存储，用于已持有像元数据的调用方以及测试
type MemStore struct {
	lock    sync.RWMutex
	rasters map[string]memRaster
	dirs    map[string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		rasters: map[string]memRaster{},
		dirs:    map[string]bool{".": true, "/": true},
	}
}

func memKey(path string) string {
	return filepath.Clean(path)
}

// 登记一个栅格，meta中的尺寸与波段数以arr为准
func (s *MemStore) Put(path string, arr *Array, meta Meta) {
	meta = meta.Clone()
	meta.Width, meta.Height, meta.Count = arr.Cols, arr.Rows, arr.Bands
	if meta.DType == Unknown {
		meta.DType = arr.DType
	}
	if meta.Driver == "" {
		meta.Driver, _ = DriverForPath(path)
	}
	key := memKey(path)
	s.lock.Lock()
	s.rasters[key] = memRaster{arr: arr.Clone(), meta: meta}
	s.mkdir(filepath.Dir(key))
	s.lock.Unlock()
}

// 登记目录（含全部上级目录）
func (s *MemStore) Mkdir(dir string) {
	s.lock.Lock()
	s.mkdir(memKey(dir))
	s.lock.Unlock()
}

func (s *MemStore) mkdir(dir string) {
	for !s.dirs[dir] {
		s.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

func (s *MemStore) Open(path string) (Dataset, error) {
	s.lock.RLock()
	r, ok := s.rasters[memKey(path)]
	s.lock.RUnlock()
	if !ok {
		return nil, withPath(ErrNoRaster, "open", path)
	}
	return &memDataset{path: path, raster: r}, nil
}

func (s *MemStore) Write(path string, arr *Array, meta Meta) error {
	s.Put(path, arr, meta)
	return nil
}

func (s *MemStore) Exists(path string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.rasters[memKey(path)]
	return ok
}

func (s *MemStore) DirExists(dir string) bool {
	if dir == "" {
		dir = "."
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.dirs[memKey(dir)]
}

// 已写入的栅格路径
func (s *MemStore) Paths() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]string, 0, len(s.rasters))
	for k := range s.rasters {
		out = append(out, k)
	}
	return out
}

type memDataset struct {
	path   string
	raster memRaster
	closed bool
}

func (d *memDataset) Path() string {
	return d.path
}

func (d *memDataset) Meta() Meta {
	return d.raster.meta.Clone()
}

func (d *memDataset) ReadWindow(w Window) (*Array, error) {
	if d.closed {
		return nil, fmt.Errorf("read %s: dataset closed", d.path)
	}
	src := d.raster.arr
	if w.Empty() || w.ColOff < 0 || w.RowOff < 0 || w.ColOff+w.Width > src.Cols || w.RowOff+w.Height > src.Rows {
		return nil, fmt.Errorf("read %s: window %+v out of %dx%d raster", d.path, w, src.Cols, src.Rows)
	}
	out := NewArray(src.DType, src.Bands, w.Height, w.Width)
	if src.Mask != nil {
		out.Mask = make([]bool, out.Len())
	}
	for b := 0; b < src.Bands; b++ {
		for r := 0; r < w.Height; r++ {
			from := src.Index(b, w.RowOff+r, w.ColOff)
			to := out.Index(b, r, 0)
			copy(out.Data[to:to+w.Width], src.Data[from:from+w.Width])
			if src.Mask != nil {
				copy(out.Mask[to:to+w.Width], src.Mask[from:from+w.Width])
			}
		}
	}
	return out, nil
}

func (d *memDataset) Close() error {
	d.closed = true
	return nil
}
