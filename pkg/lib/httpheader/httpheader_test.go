package httpheader

import (
	"errors"
	"testing"
)

func mustOf(t *testing.T, pairs ...string) *Block {
	t.Helper()
	h, err := Of(pairs...)
	if err != nil {
		t.Fatalf("Of(%v) error: %v", pairs, err)
	}
	return h
}

// TestOfAndGet 测试基本构建与大小写不敏感查询
func TestOfAndGet(t *testing.T) {
	h := mustOf(t,
		":method", "GET",
		":path", "/items",
		"Content-Type", "text/plain; charset=utf-8",
	)

	tests := []struct {
		name  string
		want  string
		found bool
	}{
		{"content-type", "text/plain; charset=utf-8", true},
		{"CONTENT-TYPE", "text/plain; charset=utf-8", true},
		{"Content-Type", "text/plain; charset=utf-8", true},
		{"x-missing", "", false},
	}
	for _, tt := range tests {
		v, ok := h.Get(tt.name)
		if ok != tt.found || v != tt.want {
			t.Errorf("Get(%q) = (%q, %v), want (%q, %v)", tt.name, v, ok, tt.want, tt.found)
		}
	}

	if got := h.GetOr("x-missing", "fallback"); got != "fallback" {
		t.Errorf("GetOr() = %q, want fallback", got)
	}
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	if !h.IsRequest() || h.IsResponse() {
		t.Error("request headers misclassified")
	}
}

// TestDuplicateNamesKeepOrder 测试同名字段保序
func TestDuplicateNamesKeepOrder(t *testing.T) {
	h := mustOf(t,
		"set-cookie", "a=1",
		"x-other", "v",
		"Set-Cookie", "b=2",
	)

	all := h.GetAll("set-cookie")
	if len(all) != 2 || all[0] != "a=1" || all[1] != "b=2" {
		t.Errorf("GetAll() = %v, want [a=1 b=2]", all)
	}
	if first, _ := h.Get("set-cookie"); first != "a=1" {
		t.Errorf("Get() = %q, want first inserted value", first)
	}
	if !h.ContainsValue("set-cookie", "b=2") || h.ContainsValue("set-cookie", "c=3") {
		t.Error("ContainsValue misreported")
	}
}

// TestPseudoHeadersFirst 测试伪头始终排在普通头之前
func TestPseudoHeadersFirst(t *testing.T) {
	b := NewBuilder()
	for _, f := range []Field{{"x-trace", "abc"}, {":path", "/late"}, {":method", "POST"}} {
		if err := b.Add(f.Name, f.Value); err != nil {
			t.Fatalf("Add(%q) error: %v", f.Name, err)
		}
	}
	h := b.Build()

	fields := h.Fields()
	if len(fields) != 3 {
		t.Fatalf("Fields() len = %d, want 3", len(fields))
	}
	if fields[0].Name != ":path" || fields[1].Name != ":method" || fields[2].Name != "x-trace" {
		t.Errorf("field order = %v, pseudo headers must come first", fields)
	}
}

// TestPseudoAtMostOnce 测试伪头重复 Add 按替换处理
func TestPseudoAtMostOnce(t *testing.T) {
	b := NewBuilder()
	if err := b.Add(":method", "GET"); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(":method", "PUT"); err != nil {
		t.Fatal(err)
	}
	h := b.Build()

	if m, _ := h.Method(); m != "PUT" {
		t.Errorf("Method() = %q, want PUT", m)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

// TestValidation 测试非法名称与值的拒绝
func TestValidation(t *testing.T) {
	tests := []struct {
		testName string
		name     string
		value    string
		wantErr  error
	}{
		{"名称含空格", "bad name", "v", ErrInvalidHeaderName},
		{"空名称", "", "v", ErrInvalidHeaderName},
		{"未知伪头", ":bogus", "v", ErrInvalidHeaderName},
		{"值含 CRLF", "x-ok", "line1\r\nline2", ErrInvalidHeaderValue},
		{"值含 NUL", "x-ok", "a\x00b", ErrInvalidHeaderValue},
		{"合法", "x-ok", "value", nil},
	}

	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			b := NewBuilder()
			err := b.Add(tt.name, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add(%q, %q) = %v, want %v", tt.name, tt.value, err, tt.wantErr)
			}
			if tt.wantErr != nil && b.Len() != 0 {
				t.Error("rejected field must not be stored")
			}
		})
	}

	// 错误应携带违规名称
	b := NewBuilder()
	err := b.Add("x-ok", "bad\r\nvalue")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v is not *ValidationError", err)
	}
	if verr.Name != "x-ok" {
		t.Errorf("ValidationError.Name = %q, want x-ok", verr.Name)
	}
}

// TestSetReplacesInPlace 测试 Set 的替换语义
func TestSetReplacesInPlace(t *testing.T) {
	b := NewBuilder()
	for _, f := range []Field{{"a", "1"}, {"dup", "x"}, {"b", "2"}, {"dup", "y"}} {
		if err := b.Add(f.Name, f.Value); err != nil {
			t.Fatal(err)
		}
	}

	if err := b.Set("dup", "z"); err != nil {
		t.Fatal(err)
	}
	h := b.Build()

	if all := h.GetAll("dup"); len(all) != 1 || all[0] != "z" {
		t.Errorf("GetAll(dup) = %v, want [z]", all)
	}
	if fields := h.Fields(); fields[1].Name != "dup" {
		t.Error("Set must keep the position of the first occurrence")
	}

	if err := b.Set("new", "n"); err != nil {
		t.Fatal(err)
	}
	if v, ok := b.Build().Get("new"); !ok || v != "n" {
		t.Error("Set of a missing name must append")
	}
}

// TestRemove 测试字段删除
func TestRemove(t *testing.T) {
	b := NewBuilder()
	if err := b.SetStatus(200); err != nil {
		t.Fatal(err)
	}
	if err := b.Add("x-a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := b.Add("x-a", "2"); err != nil {
		t.Fatal(err)
	}

	if !b.Remove("X-A") {
		t.Error("Remove should be case-insensitive")
	}
	if b.Remove("x-a") {
		t.Error("second Remove should report nothing removed")
	}
	if !b.Remove(":status") {
		t.Error("pseudo header removal failed")
	}
	if !b.Build().IsEmpty() {
		t.Error("block not empty after removing everything")
	}
}

// TestEqualAndHash 测试相等与哈希的一致性
func TestEqualAndHash(t *testing.T) {
	h1 := mustOf(t, ":method", "GET", "X-Trace", "abc")
	h2 := mustOf(t, ":METHOD", "GET", "x-trace", "abc")
	h3 := mustOf(t, ":method", "GET", "x-trace", "ABC")
	h4 := mustOf(t, "x-trace", "abc", ":method", "GET")

	if !h1.Equal(h2) {
		t.Error("name case must not affect equality")
	}
	if h1.Hash() != h2.Hash() {
		t.Error("equal blocks must share a hash")
	}
	if h1.Equal(h3) {
		t.Error("value case must affect equality")
	}
	if !h1.Equal(h4) {
		t.Error("pseudo reordering must normalize")
	}
	if h1.Equal(nil) {
		t.Error("Equal(nil) must be false")
	}
	if !Empty().Equal(Empty()) {
		t.Error("empty blocks must be equal")
	}
}

// TestContentLength 测试 content-length 解析
func TestContentLength(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		want  int64
	}{
		{"normal", []string{"content-length", "1024"}, 1024},
		{"zero", []string{"content-length", "0"}, 0},
		{"absent", nil, -1},
		{"non-numeric", []string{"content-length", "abc"}, -1},
		{"negative", []string{"content-length", "-5"}, -1},
		{"duplicate same", []string{"content-length", "7", "content-length", "7"}, 7},
		{"duplicate conflict", []string{"content-length", "7", "content-length", "8"}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustOf(t, tt.pairs...).ContentLength(); got != tt.want {
				t.Errorf("ContentLength() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestStatusAccessor 测试 :status 解析
func TestStatusAccessor(t *testing.T) {
	b := NewBuilder()
	if err := b.SetStatus(204); err != nil {
		t.Fatal(err)
	}
	h := b.Build()

	if code, ok := h.Status(); !ok || code != 204 {
		t.Errorf("Status() = (%d, %v), want (204, true)", code, ok)
	}
	if !h.IsResponse() {
		t.Error("IsResponse() = false for a status-bearing block")
	}

	if err := b.SetStatus(99); err == nil {
		t.Error("SetStatus(99) accepted a two-digit code")
	}
	if err := b.SetStatus(1000); err == nil {
		t.Error("SetStatus(1000) accepted a four-digit code")
	}
	if _, ok := Empty().Status(); ok {
		t.Error("empty block reported a status")
	}
}

// TestToBuilderIsolation 测试 ToBuilder 与原块隔离
func TestToBuilderIsolation(t *testing.T) {
	h := mustOf(t, ":method", "GET", "x-a", "1")

	nb := h.ToBuilder()
	if err := nb.Set("x-a", "2"); err != nil {
		t.Fatal(err)
	}
	if err := nb.Add("x-b", "3"); err != nil {
		t.Fatal(err)
	}
	h2 := nb.Build()

	if v, _ := h.Get("x-a"); v != "1" {
		t.Error("original block mutated through ToBuilder")
	}
	if v, _ := h2.Get("x-a"); v != "2" {
		t.Error("rebuilt block missing the update")
	}
	if m, _ := h2.Method(); m != "GET" {
		t.Error("pseudo header lost through ToBuilder")
	}
}

// TestNamesAndForEach 测试名称列表与遍历
func TestNamesAndForEach(t *testing.T) {
	h := mustOf(t, ":status", "200", "b", "1", "a", "2", "b", "3")

	names := h.Names()
	want := []string{":status", "b", "a"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	var visited []string
	h.ForEach(func(name, value string) bool {
		visited = append(visited, name+"="+value)
		return len(visited) < 2
	})
	if len(visited) != 2 || visited[0] != ":status=200" || visited[1] != "b=1" {
		t.Errorf("ForEach visited %v, want early stop after 2", visited)
	}
}

// TestOfOddPairs 测试奇数参数报错
func TestOfOddPairs(t *testing.T) {
	if _, err := Of("only-name"); !errors.Is(err, ErrOddPairs) {
		t.Errorf("Of(odd) = %v, want ErrOddPairs", err)
	}
}

// TestString 测试调试字符串
func TestString(t *testing.T) {
	h := mustOf(t, ":method", "GET", "x-a", "1")
	if got := h.String(); got != "[:method: GET, x-a: 1]" {
		t.Errorf("String() = %q", got)
	}
	if got := Empty().String(); got != "[]" {
		t.Errorf("empty String() = %q", got)
	}
}
