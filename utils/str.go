package utils

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// GBK string 转 UTF-8
func GbkStrToUtf8(s string) (d string, e error) {
	reader := transform.NewReader(strings.NewReader(s), simplifiedchinese.GBK.NewDecoder())
	t, e := io.ReadAll(reader)
	if e != nil {
		return
	}
	d = string(t)
	return
}

// UTF-8 string 转 GBK
func Utf8StrToGbk(s string) (d string, e error) {
	reader := transform.NewReader(strings.NewReader(s), simplifiedchinese.GBK.NewEncoder())
	t, e := io.ReadAll(reader)
	if e != nil {
		return
	}
	d = string(t)
	return
}

// 属性值若不是合法UTF-8，则按GBK解码；解码失败时去掉非法字节
func ToUtf8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	if d, e := GbkStrToUtf8(s); e == nil && utf8.ValidString(d) {
		return d
	}
	return PurifyForUtf8(s)
}

func PurifyForUtf8(s string) string {
	return strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), "")
}

func ContainsString(group []string, s string) bool {
	for _, a := range group {
		if a == s {
			return true
		}
	}
	return false
}
