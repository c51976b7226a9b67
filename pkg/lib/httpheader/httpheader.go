// Package httpheader 提供不可变的 HTTP 头块
//
// Block 是一组有序的名称/值字段：名称匹配大小写不敏感（内部统一小写存储），
// 值保留原样；同名字段可重复并保持插入顺序；伪头（:method、:path、:status、
// :authority、:scheme）始终排在普通头之前。
//
// Block 构建完成后不可变，可在多个流与多个 goroutine 之间安全共享。
// 修改通过 Builder 完成：ToBuilder 拷贝出可变副本，Build 重新封存。
//
// 名称与值在进入 Builder 时即校验（token 字符、禁止控制字符），
// 因此已构建的 Block 必然合法，消费侧无需重复校验。
package httpheader

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Field 一个名称/值字段（名称为折叠后的小写形式）
type Field struct {
	Name  string
	Value string
}

// Block 不可变的有序头块
type Block struct {
	fields []Field
	index  map[string][]int
	pseudo int
	hash   uint64
}

var emptyBlock = newBlock(nil)

// Empty 返回共享的空头块
func Empty() *Block {
	return emptyBlock
}

// Of 从交替的名称/值序列构建头块
//
//	h, err := httpheader.Of(":method", "GET", ":path", "/items")
func Of(pairs ...string) (*Block, error) {
	if len(pairs)%2 != 0 {
		return nil, ErrOddPairs
	}
	b := NewBuilder()
	for i := 0; i < len(pairs); i += 2 {
		if err := b.Add(pairs[i], pairs[i+1]); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// newBlock 从已排序、已校验的字段构建 Block（构建索引与哈希）
func newBlock(fields []Field) *Block {
	blk := &Block{
		fields: fields,
		index:  make(map[string][]int, len(fields)),
	}
	h := fnv.New64a()
	for i, f := range fields {
		if IsPseudo(f.Name) {
			blk.pseudo++
		}
		blk.index[f.Name] = append(blk.index[f.Name], i)
		h.Write([]byte(f.Name))
		h.Write([]byte{0x00})
		h.Write([]byte(f.Value))
		h.Write([]byte{0x01})
	}
	blk.hash = h.Sum64()
	return blk
}

// ==================== 查询 ====================

// Get 返回名称对应的首个值
func (b *Block) Get(name string) (string, bool) {
	pos, ok := b.index[foldName(name)]
	if !ok || len(pos) == 0 {
		return "", false
	}
	return b.fields[pos[0]].Value, true
}

// GetOr 返回名称对应的首个值，缺失时返回 def
func (b *Block) GetOr(name, def string) string {
	if v, ok := b.Get(name); ok {
		return v
	}
	return def
}

// GetAll 返回名称对应的全部值（按插入顺序）
func (b *Block) GetAll(name string) []string {
	pos, ok := b.index[foldName(name)]
	if !ok {
		return nil
	}
	values := make([]string, len(pos))
	for i, p := range pos {
		values[i] = b.fields[p].Value
	}
	return values
}

// Contains 判断名称是否存在
func (b *Block) Contains(name string) bool {
	_, ok := b.index[foldName(name)]
	return ok
}

// ContainsValue 判断名称下是否存在指定值（值比较大小写敏感）
func (b *Block) ContainsValue(name, value string) bool {
	for _, p := range b.index[foldName(name)] {
		if b.fields[p].Value == value {
			return true
		}
	}
	return false
}

// Len 返回字段总数（含重复名）
func (b *Block) Len() int {
	return len(b.fields)
}

// IsEmpty 判断是否无任何字段
func (b *Block) IsEmpty() bool {
	return len(b.fields) == 0
}

// Names 返回去重后的名称列表（按首次出现顺序）
func (b *Block) Names() []string {
	names := make([]string, 0, len(b.index))
	seen := make(map[string]struct{}, len(b.index))
	for _, f := range b.fields {
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}

// Fields 返回全部字段的副本（伪头在前，插入顺序）
func (b *Block) Fields() []Field {
	out := make([]Field, len(b.fields))
	copy(out, b.fields)
	return out
}

// ForEach 按序遍历字段，fn 返回 false 时提前终止
func (b *Block) ForEach(fn func(name, value string) bool) {
	for _, f := range b.fields {
		if !fn(f.Name, f.Value) {
			return
		}
	}
}

// ==================== 伪头快捷访问 ====================

// Method 返回 :method 伪头
func (b *Block) Method() (string, bool) {
	return b.Get(PseudoMethod)
}

// Path 返回 :path 伪头
func (b *Block) Path() (string, bool) {
	return b.Get(PseudoPath)
}

// Authority 返回 :authority 伪头
func (b *Block) Authority() (string, bool) {
	return b.Get(PseudoAuthority)
}

// Scheme 返回 :scheme 伪头
func (b *Block) Scheme() (string, bool) {
	return b.Get(PseudoScheme)
}

// Status 返回解析后的 :status 伪头
//
// 伪头缺失或非数字时返回 (0, false)。
func (b *Block) Status() (int, bool) {
	v, ok := b.Get(PseudoStatus)
	if !ok {
		return 0, false
	}
	code, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return code, true
}

// IsRequest 判断是否为请求头块（携带 :method）
func (b *Block) IsRequest() bool {
	return b.Contains(PseudoMethod)
}

// IsResponse 判断是否为响应头块（携带 :status）
func (b *Block) IsResponse() bool {
	return b.Contains(PseudoStatus)
}

// ==================== 内容元信息 ====================

// ContentLength 返回解析后的 content-length
//
// 头缺失、非数字、为负或多个值不一致时返回 -1。
func (b *Block) ContentLength() int64 {
	values := b.GetAll(NameContentLength)
	if len(values) == 0 {
		return -1
	}
	n, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return -1
		}
	}
	return n
}

// ContentType 返回 content-type 原始值
func (b *Block) ContentType() (string, bool) {
	return b.Get(NameContentType)
}

// ContentEncoding 返回 content-encoding 原始值
func (b *Block) ContentEncoding() (string, bool) {
	return b.Get(NameContentEncoding)
}

// ==================== 相等与哈希 ====================

// Equal 判断两个头块是否相等
//
// 相等要求字段序列完全一致：同样的名称（大小写不敏感）、
// 同样的值（大小写敏感）、同样的顺序。
func (b *Block) Equal(other *Block) bool {
	if b == other {
		return true
	}
	if other == nil || len(b.fields) != len(other.fields) {
		return false
	}
	if b.hash != other.hash {
		return false
	}
	for i, f := range b.fields {
		if other.fields[i] != f {
			return false
		}
	}
	return true
}

// Hash 返回头块的 FNV-1a 哈希（与 Equal 一致：相等则哈希相同）
func (b *Block) Hash() uint64 {
	return b.hash
}

// ==================== 其他 ====================

// ToBuilder 拷贝出可变的 Builder
func (b *Block) ToBuilder() *Builder {
	nb := NewBuilder()
	nb.pseudo = append(nb.pseudo, b.fields[:b.pseudo]...)
	nb.fields = append(nb.fields, b.fields[b.pseudo:]...)
	return nb
}

// String 返回调试用表示，如 [:method: GET, content-type: text/plain]
func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range b.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Value)
	}
	sb.WriteByte(']')
	return sb.String()
}
