package httpheader

import "strconv"

// Builder 可变的头块构建器
//
// 名称与值在 Add/Set 时即校验并返回错误，Build 本身不会失败。
// Builder 非并发安全，构建出的 Block 不可变。
type Builder struct {
	pseudo []Field
	fields []Field
}

// NewBuilder 创建空的构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 追加一个字段
//
// 普通头追加到尾部，允许同名重复；伪头每种至多一个，
// 重复 Add 伪头按替换处理。
func (b *Builder) Add(name, value string) error {
	folded := foldName(name)
	if err := validateName(folded); err != nil {
		return err
	}
	if err := validateValue(folded, value); err != nil {
		return err
	}
	if IsPseudo(folded) {
		b.putPseudo(folded, value)
		return nil
	}
	b.fields = append(b.fields, Field{Name: folded, Value: value})
	return nil
}

// Set 设置字段的唯一值
//
// 已存在时替换首个同名字段并删除其余重复项（位置保持稳定），
// 不存在时追加到尾部。
func (b *Builder) Set(name, value string) error {
	folded := foldName(name)
	if err := validateName(folded); err != nil {
		return err
	}
	if err := validateValue(folded, value); err != nil {
		return err
	}
	if IsPseudo(folded) {
		b.putPseudo(folded, value)
		return nil
	}
	out := b.fields[:0]
	replaced := false
	for _, f := range b.fields {
		if f.Name == folded {
			if !replaced {
				out = append(out, Field{Name: folded, Value: value})
				replaced = true
			}
			continue
		}
		out = append(out, f)
	}
	if !replaced {
		out = append(out, Field{Name: folded, Value: value})
	}
	b.fields = out
	return nil
}

// Remove 删除名称对应的全部字段，返回是否有字段被删除
func (b *Builder) Remove(name string) bool {
	folded := foldName(name)
	if IsPseudo(folded) {
		for i, f := range b.pseudo {
			if f.Name == folded {
				b.pseudo = append(b.pseudo[:i], b.pseudo[i+1:]...)
				return true
			}
		}
		return false
	}
	out := b.fields[:0]
	removed := false
	for _, f := range b.fields {
		if f.Name == folded {
			removed = true
			continue
		}
		out = append(out, f)
	}
	b.fields = out
	return removed
}

// putPseudo 写入伪头（每种至多一个）
func (b *Builder) putPseudo(name, value string) {
	for i, f := range b.pseudo {
		if f.Name == name {
			b.pseudo[i].Value = value
			return
		}
	}
	b.pseudo = append(b.pseudo, Field{Name: name, Value: value})
}

// ==================== 伪头快捷设置 ====================

// SetMethod 设置 :method 伪头
func (b *Builder) SetMethod(method string) error {
	return b.Set(PseudoMethod, method)
}

// SetPath 设置 :path 伪头
func (b *Builder) SetPath(path string) error {
	return b.Set(PseudoPath, path)
}

// SetAuthority 设置 :authority 伪头
func (b *Builder) SetAuthority(authority string) error {
	return b.Set(PseudoAuthority, authority)
}

// SetScheme 设置 :scheme 伪头
func (b *Builder) SetScheme(scheme string) error {
	return b.Set(PseudoScheme, scheme)
}

// SetStatus 设置 :status 伪头
//
// 状态码须为三位数（100-999）。
func (b *Builder) SetStatus(code int) error {
	if code < 100 || code > 999 {
		return invalidValue(PseudoStatus, strconv.Itoa(code), "status code out of range")
	}
	return b.Set(PseudoStatus, strconv.Itoa(code))
}

// SetContentLength 设置 content-length 头
func (b *Builder) SetContentLength(n int64) error {
	if n < 0 {
		return invalidValue(NameContentLength, strconv.FormatInt(n, 10), "negative length")
	}
	return b.Set(NameContentLength, strconv.FormatInt(n, 10))
}

// SetContentType 设置 content-type 头
func (b *Builder) SetContentType(ct string) error {
	return b.Set(NameContentType, ct)
}

// ==================== 构建 ====================

// Len 返回当前字段总数
func (b *Builder) Len() int {
	return len(b.pseudo) + len(b.fields)
}

// Build 封存为不可变 Block（伪头在前）
//
// Builder 在 Build 后仍可继续修改并再次 Build，
// 各次构建出的 Block 互不影响。
func (b *Builder) Build() *Block {
	fields := make([]Field, 0, len(b.pseudo)+len(b.fields))
	fields = append(fields, b.pseudo...)
	fields = append(fields, b.fields...)
	return newBlock(fields)
}
