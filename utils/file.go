package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"

	tmpMark = ".tmp-"
)

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 输出文件同目录下的临时文件名，写完后再rename为正式文件
func TempSibling(path string) string {
	dir, name := filepath.Split(path)
	return filepath.Join(dir, tmpMark+uuid.NewString()+"-"+name)
}

// 剪切结果文件名：<原文件名><suffix><原扩展名>
func CropOutputName(dir, src, suffix string) string {
	return filepath.Join(dir, GetFilenameWithoutExt(src)+suffix+filepath.Ext(src))
}

func DirExists(path string) bool {
	if path == "" {
		path = "."
	}
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// 由shp旁的cpg文件判断属性编码是否为UTF-8，无cpg时视为GBK
func ShpIsUtf8(shp string) (utf8 bool) {
	if !strings.EqualFold(filepath.Ext(shp), FILE_EXT_SHP) {
		return true
	}
	enc, err := os.ReadFile(strings.TrimSuffix(shp, filepath.Ext(shp)) + FILE_EXT_CPG)
	if err != nil || len(enc) == 0 {
		return
	}
	encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
	utf8 = encStr == UTF_8 || encStr == UTF8
	return
}
