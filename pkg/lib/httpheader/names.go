package httpheader

// 伪头名称（HTTP/2 风格，携带请求行/状态行信息）
//
// 伪头始终排在普通头之前，且每种至多出现一次。
const (
	PseudoMethod    = ":method"
	PseudoPath      = ":path"
	PseudoStatus    = ":status"
	PseudoAuthority = ":authority"
	PseudoScheme    = ":scheme"
)

// 常用头名称（统一小写形式）
const (
	NameContentType     = "content-type"
	NameContentLength   = "content-length"
	NameContentEncoding = "content-encoding"
	NameTrailer         = "trailer"
	NameTransferEncoding = "transfer-encoding"
	NameAcceptEncoding  = "accept-encoding"
	NameLocation        = "location"
	NameUserAgent       = "user-agent"
)

// IsPseudo 判断名称是否为伪头（以冒号开头）
func IsPseudo(name string) bool {
	return len(name) > 0 && name[0] == ':'
}

// isKnownPseudo 判断是否为受支持的伪头名称（输入须已折叠为小写）
func isKnownPseudo(name string) bool {
	switch name {
	case PseudoMethod, PseudoPath, PseudoStatus, PseudoAuthority, PseudoScheme:
		return true
	default:
		return false
	}
}

// foldName 将头名称折叠为小写（ASCII）
//
// 头名称匹配大小写不敏感，内部统一以小写存储。
// 已是小写时直接返回原串，避免分配。
func foldName(name string) string {
	lower := true
	for i := 0; i < len(name); i++ {
		if c := name[i]; 'A' <= c && c <= 'Z' {
			lower = false
			break
		}
	}
	if lower {
		return name
	}
	buf := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		buf[i] = c
	}
	return string(buf)
}
