// Package mediatype 提供 MIME 媒体类型解析
//
// 解析 content-type 风格的字符串（type/subtype 加分号分隔的参数），
// 解析结果不可变。头块在流间大量复用相同的 content-type 值，
// Parse 通过全局 LRU 缓存对成功结果做记忆化。
package mediatype

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// 解析缓存容量。content-type 取值高度重复，小缓存即可覆盖热点。
const parseCacheSize = 256

var parseCache *lru.Cache[string, *MediaType]

func init() {
	// 容量为正时 New 不会失败
	parseCache, _ = lru.New[string, *MediaType](parseCacheSize)
}

// Param 一个媒体类型参数（名称为小写）
type Param struct {
	Name  string
	Value string
}

// MediaType 解析后的媒体类型，构建后不可变
type MediaType struct {
	mainType string
	subType  string
	params   []Param
}

// 常用媒体类型
var (
	PlainText = &MediaType{mainType: "text", subType: "plain"}
	JSON      = &MediaType{mainType: "application", subType: "json"}
	OctetStream = &MediaType{mainType: "application", subType: "octet-stream"}
)

// Parse 解析媒体类型字符串
//
// 接受 "type/subtype" 及可选的 ";name=value" 参数，参数值允许双引号包裹。
// type、subtype 与参数名折叠为小写，参数值原样保留。
// 成功结果进入全局 LRU 缓存，相同输入的后续调用直接命中。
func Parse(s string) (*MediaType, error) {
	if mt, ok := parseCache.Get(s); ok {
		return mt, nil
	}
	mt, err := parse(s)
	if err != nil {
		return nil, err
	}
	parseCache.Add(s, mt)
	return mt, nil
}

func parse(s string) (*MediaType, error) {
	parts := strings.Split(s, ";")
	head := strings.TrimSpace(parts[0])

	slash := strings.IndexByte(head, '/')
	if slash <= 0 || slash == len(head)-1 {
		return nil, invalidType(s, "missing type/subtype")
	}
	mainType := strings.ToLower(head[:slash])
	subType := strings.ToLower(head[slash+1:])
	if !validToken(mainType) || !validToken(subType) {
		return nil, invalidType(s, "illegal token character")
	}

	mt := &MediaType{mainType: mainType, subType: subType}
	for _, raw := range parts[1:] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		eq := strings.IndexByte(raw, '=')
		if eq <= 0 {
			return nil, invalidType(s, "malformed parameter")
		}
		name := strings.ToLower(strings.TrimSpace(raw[:eq]))
		value := strings.TrimSpace(raw[eq+1:])
		if !validToken(name) {
			return nil, invalidType(s, "illegal parameter name")
		}
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		mt.params = append(mt.params, Param{Name: name, Value: value})
	}
	return mt, nil
}

// validToken 校验 RFC 7230 token（媒体类型与参数名的合法字符集）
func validToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		case c == '!' || c == '#' || c == '$' || c == '%' || c == '&' ||
			c == '\'' || c == '*' || c == '+' || c == '-' || c == '.' ||
			c == '^' || c == '_' || c == '`' || c == '|' || c == '~':
		default:
			return false
		}
	}
	return true
}

// MainType 返回主类型（小写）
func (m *MediaType) MainType() string {
	return m.mainType
}

// Subtype 返回子类型（小写）
func (m *MediaType) Subtype() string {
	return m.subType
}

// Param 返回参数值（参数名大小写不敏感）
func (m *MediaType) Param(name string) (string, bool) {
	folded := strings.ToLower(name)
	for _, p := range m.params {
		if p.Name == folded {
			return p.Value, true
		}
	}
	return "", false
}

// Params 返回全部参数的副本（按出现顺序）
func (m *MediaType) Params() []Param {
	if len(m.params) == 0 {
		return nil
	}
	out := make([]Param, len(m.params))
	copy(out, m.params)
	return out
}

// Charset 返回 charset 参数
func (m *MediaType) Charset() (string, bool) {
	return m.Param("charset")
}

// Is 判断是否匹配 "type/subtype" 模式，subtype 可为 "*" 通配
//
//	mt.Is("application/json")
//	mt.Is("text/*")
func (m *MediaType) Is(pattern string) bool {
	slash := strings.IndexByte(pattern, '/')
	if slash < 0 {
		return false
	}
	pt := strings.ToLower(pattern[:slash])
	ps := strings.ToLower(pattern[slash+1:])
	if pt != m.mainType {
		return false
	}
	return ps == "*" || ps == m.subType
}

// IsText 判断内容是否为文本类
//
// 主类型为 text，或子类型为 json/xml/javascript 及其 +json/+xml 变体。
func (m *MediaType) IsText() bool {
	if m.mainType == "text" {
		return true
	}
	switch m.subType {
	case "json", "xml", "javascript", "x-www-form-urlencoded":
		return true
	}
	return strings.HasSuffix(m.subType, "+json") || strings.HasSuffix(m.subType, "+xml")
}

// Equal 判断媒体类型是否相等（类型、子类型与全部参数按序一致）
func (m *MediaType) Equal(other *MediaType) bool {
	if m == other {
		return true
	}
	if other == nil || m.mainType != other.mainType || m.subType != other.subType ||
		len(m.params) != len(other.params) {
		return false
	}
	for i, p := range m.params {
		if other.params[i] != p {
			return false
		}
	}
	return true
}

// String 返回规范化的媒体类型字符串
func (m *MediaType) String() string {
	var sb strings.Builder
	sb.WriteString(m.mainType)
	sb.WriteByte('/')
	sb.WriteString(m.subType)
	for _, p := range m.params {
		sb.WriteString("; ")
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		if needsQuoting(p.Value) {
			sb.WriteByte('"')
			sb.WriteString(p.Value)
			sb.WriteByte('"')
		} else {
			sb.WriteString(p.Value)
		}
	}
	return sb.String()
}

func needsQuoting(v string) bool {
	if v == "" {
		return true
	}
	return !validToken(strings.ToLower(v))
}
