package veil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"theory/internal/preprocess"
	"theory/internal/veil"
	"theory/pkg/contract"
)

// UT-VEIL-01: 同一标识符复用首个令牌
func TestMask_ReusesIdentifier(t *testing.T) {
	v := veil.New(preprocess.NewJava())
	got, err := v.Mask("int x = 5;\nint y = x;")
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	want := []string{"int %mask_0% = %mask_1%;", "int %mask_2% = %mask_0%;"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	if v.Len() != 3 {
		t.Fatalf("令牌数=%d", v.Len())
	}
}

// UT-VEIL-02: 掩码后反掩码还原源文本
func TestMask_RoundTrip(t *testing.T) {
	src := "String s = \"hi there\";\nint n = s.length();"
	v := veil.New(preprocess.NewJava())
	lines, err := v.Mask(src)
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if got := v.Unmask(strings.Join(lines, "\n")); got != src {
		t.Fatalf("round trip:\n%q\n%q", got, src)
	}
}

// UT-VEIL-03: 相对化与还原互逆
func TestRelative_Idempotent(t *testing.T) {
	v := veil.New(preprocess.NewCobol())
	rel := v.ToRelative("MOVE %mask_7% TO %mask_3%")
	if rel != "MOVE %mask_0% TO %mask_1%" {
		t.Fatalf("rel=%q", rel)
	}
	if diff := cmp.Diff([]string{"%mask_7%", "%mask_3%"}, v.Window()); diff != "" {
		t.Fatalf("window (-want +got)\n%s", diff)
	}
	back, err := v.FromRelative("%mask_1%.Set(%mask_0%);")
	if err != nil {
		t.Fatalf("from relative: %v", err)
	}
	if back != "%mask_3%.Set(%mask_7%);" {
		t.Fatalf("back=%q", back)
	}
}

// UT-VEIL-04: 相对索引越界
func TestFromRelative_Overflow(t *testing.T) {
	v := veil.New(preprocess.NewCobol())
	v.ToRelative("DISPLAY %mask_4%")
	_, err := v.FromRelative("%mask_0% %mask_1%")
	if !errors.Is(err, veil.ErrRelativeOverflow) || !errors.Is(err, contract.ErrInvariantViolation) {
		t.Fatalf("应返回越界错误: %v", err)
	}
}

// 空窗口原样返回
func TestFromRelative_EmptyWindow(t *testing.T) {
	v := veil.New(preprocess.NewCobol())
	v.ToRelative("EXIT")
	got, err := v.FromRelative("%mask_9%")
	if err != nil || got != "%mask_9%" {
		t.Fatalf("got %q %v", got, err)
	}
}

func TestNextSaveUnmask(t *testing.T) {
	v := veil.New(preprocess.NewCobol())
	tok := v.Next()
	if tok != "%mask_0%" {
		t.Fatalf("next=%q", tok)
	}
	v.Save(tok, "WS-TOTAL", true)
	if src, _ := v.Source(tok); src != "WsTotal" {
		t.Fatalf("COBOL 标识符应转 TitleCase: %q", src)
	}
	v.Save(v.Next(), "abc", false)
	if got := v.Unmask("%mask_0% + %mask_1%"); got != "WsTotal + abc" {
		t.Fatalf("unmask=%q", got)
	}
	if _, ok := v.Lookup("abc"); ok {
		t.Fatalf("未规范化保存不应进入反向索引")
	}
	v.Reset()
	if v.Len() != 0 || v.Next() != "%mask_0%" {
		t.Fatalf("reset 未清空")
	}
}

func TestOffset(t *testing.T) {
	if got := veil.Offset("%mask_0% < %mask_2%", 3); got != "%mask_3% < %mask_5%" {
		t.Fatalf("got %q", got)
	}
	if got := veil.Offset("%mask_3%", -3); got != "%mask_0%" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitLines(t *testing.T) {
	got := veil.SplitLines("a\r\nb\rc\n")
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	if veil.SplitLines("") != nil {
		t.Fatalf("空串应返回 nil")
	}
}

func TestNarrow(t *testing.T) {
	v := veil.New(preprocess.NewCobol())
	v.ToRelative("PERFORM %mask_4% UNTIL %mask_8% = %mask_9%")
	restore := v.Narrow(1)
	got, err := v.FromRelative("%mask_0% = %mask_1%")
	if err != nil {
		t.Fatalf("from relative: %v", err)
	}
	if got != "%mask_8% = %mask_9%" {
		t.Fatalf("narrowed=%q", got)
	}
	restore()
	if diff := cmp.Diff([]string{"%mask_4%", "%mask_8%", "%mask_9%"}, v.Window()); diff != "" {
		t.Fatalf("restore (-want +got)\n%s", diff)
	}
	restore = v.Narrow(10)
	if len(v.Window()) != 0 {
		t.Fatalf("超出窗口长度时应为空窗口")
	}
	restore()
}

func TestRelativizeKeepsWindow(t *testing.T) {
	v := veil.New(preprocess.NewJava())
	v.ToRelative("%mask_7% = %mask_3%;")
	if got := veil.Relativize("%mask_9%(%mask_2%, %mask_9%)"); got != "%mask_0%(%mask_1%, %mask_2%)" {
		t.Fatalf("relativize=%q", got)
	}
	if diff := cmp.Diff([]string{"%mask_7%", "%mask_3%"}, v.Window()); diff != "" {
		t.Fatalf("窗口不应变化 (-want +got)\n%s", diff)
	}
}
