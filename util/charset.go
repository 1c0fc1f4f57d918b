package util

import (
	"github.com/piex/transcode"
)

// GBK 相关的排序规则编号
const (
	CharsetGBKChineseCI = 28
	CharsetGBKBin       = 87
)

// IsGBK 判断字符集编号是否为GBK
func IsGBK(charset uint16) bool {
	return charset == CharsetGBKChineseCI || charset == CharsetGBKBin
}

// DecodeCharset 按列字符集将原始字节转换为字符串，GBK 列需要转码
func DecodeCharset(value []byte, charset uint16) string {
	if len(value) == 0 {
		return ""
	}
	if IsGBK(charset) {
		return transcode.FromByteArray(value).Decode("GBK").ToString()
	}
	return string(value)
}

// EncodeCharset 将字符串编码为列字符集的字节
func EncodeCharset(value string, charset uint16) []byte {
	if IsGBK(charset) {
		return transcode.FromString(value).Encode("GBK").ToByteArray()
	}
	return []byte(value)
}
