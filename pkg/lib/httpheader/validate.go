package httpheader

import (
	"golang.org/x/net/http/httpguts"
)

// validateName 校验头名称（输入须已折叠为小写）
//
// 伪头只允许白名单内的五种；普通头须为合法 token。
func validateName(name string) error {
	if name == "" {
		return invalidName(name, "empty name")
	}
	if IsPseudo(name) {
		if !isKnownPseudo(name) {
			return invalidName(name, "unknown pseudo header")
		}
		return nil
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return invalidName(name, "illegal token character")
	}
	return nil
}

// validateValue 校验头值
//
// 拒绝控制字符（CR/LF/NUL 等），防止头注入。
func validateValue(name, value string) error {
	if !httpguts.ValidHeaderFieldValue(value) {
		return invalidValue(name, value, "illegal value character")
	}
	return nil
}
