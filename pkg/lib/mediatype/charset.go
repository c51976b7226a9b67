package mediatype

import (
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// DecodeString 按指定字符集将字节解码为 Go 字符串
//
// name 为空或 utf-8 时走原生路径，非法 UTF-8 序列替换为 U+FFFD；
// us-ascii 将高位字节替换为 '?'；其余字符集通过 IANA 注册表解析
// （iso-8859-1、utf-16 及其 BE/LE 变体等），解析不到时返回
// ErrUnsupportedCharset。
func DecodeString(data []byte, name string) (string, error) {
	folded := strings.ToLower(strings.TrimSpace(name))
	switch folded {
	case "", "utf-8", "utf8":
		return strings.ToValidUTF8(string(data), "�"), nil
	case "us-ascii", "ascii":
		return decodeASCII(data), nil
	}

	enc, err := ianaindex.IANA.Encoding(folded)
	if err != nil || enc == nil {
		return "", unsupportedCharset(name)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeASCII 做 7-bit 投影，高位字节替换为 '?'
func decodeASCII(data []byte) string {
	clean := true
	for _, c := range data {
		if c > 0x7f {
			clean = false
			break
		}
	}
	if clean {
		return string(data)
	}
	buf := make([]byte, len(data))
	for i, c := range data {
		if c > 0x7f {
			buf[i] = '?'
		} else {
			buf[i] = c
		}
	}
	return string(buf)
}
