package preprocess

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"theory/internal/lvp"
	"theory/internal/veil"
	"theory/pkg/contract"
)

func TestFindScope(t *testing.T) {
	s, e, ok := FindScope("a{b{c}d}e", "{", "}", false)
	if !ok || s != 2 || e != 7 {
		t.Fatalf("got %d,%d,%v", s, e, ok)
	}
	s, e, ok = FindScope("a{b{c}d}e", "{", "}", true)
	if !ok || s != 1 || e != 8 {
		t.Fatalf("include: got %d,%d,%v", s, e, ok)
	}
	if _, _, ok := FindScope("a{b", "{", "}", true); ok {
		t.Fatalf("未闭合应失败")
	}
}

func TestFindScopeWithDepth(t *testing.T) {
	got := FindScopeWithDepth("{a{b}c{d}e}", "{", "}", 1)
	want := [][2]int{{0, 3}, {4, 7}, {8, 11}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
}

func TestStandard_BlockCommentKeepsLineCount(t *testing.T) {
	v := veil.New(NewCpp())
	src := "/* a\nb */\nint x;"
	lines, err := v.Mask(src)
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("行数=%d: %q", len(lines), lines)
	}
	if lines[0] != "/*%mask_0%*/" {
		t.Fatalf("line0=%q", lines[0])
	}
	if src, _ := v.Source("%mask_0%"); src != " a\nb " {
		t.Fatalf("块注释源=%q", src)
	}
}

func TestStandard_TagsMembers(t *testing.T) {
	src := "class A {\n  private int x;\n  public void f() {\n    x = 1;\n  }\n}"
	out := tagScopes(src)
	want := "class A {\n  %member% private int x;\n  %member% public void f() {\n    x = 1;\n  }\n}"
	if out != want {
		t.Fatalf("got:\n%s", out)
	}
}

func TestStandard_SeparatesTrailingComment(t *testing.T) {
	v := veil.New(NewJava())
	lines, err := v.Mask("  int a = 1; // one")
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "  //") || !strings.HasPrefix(lines[1], "  int") {
		t.Fatalf("got %q", lines)
	}
}

func TestStandard_MasksLiteralsWhole(t *testing.T) {
	v := veil.New(NewJava())
	lines, _ := v.Mask(`System.out.println("hi");`)
	if lines[0] != "System.out.println(%mask_0%);" {
		t.Fatalf("got %q", lines[0])
	}
	if src, _ := v.Source("%mask_0%"); src != `"hi"` {
		t.Fatalf("src=%q", src)
	}
}

func TestJava_ReservedRegexes(t *testing.T) {
	j := NewJava()
	for _, tok := range []string{"@Override", "RuntimeException", "class"} {
		if !j.IsReserved(tok) {
			t.Fatalf("%q 应保留", tok)
		}
	}
	if j.IsReserved("counter") {
		t.Fatalf("普通标识符不应保留")
	}
}

func TestCobol_StringsAndNumerics(t *testing.T) {
	v := veil.New(NewCobol())
	lines, err := v.Mask("       05 WS-X PIC 9(2) VALUE 99\n       DISPLAY 'HELLO WORLD'")
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if !strings.HasSuffix(lines[0], "VALUE %mask_1%") {
		t.Fatalf("全 9 数值应掩码: %q", lines[0])
	}
	if src, _ := v.Source("%mask_1%"); src != "99" {
		t.Fatalf("数值源=%q", src)
	}
	if lines[1] != "       DISPLAY '%mask_0%'" {
		t.Fatalf("字符串: %q", lines[1])
	}
	if src, _ := v.Source("%mask_0%"); src != "HELLO WORLD" {
		t.Fatalf("字符串源应保持原样: %q", src)
	}
}

func TestCobol_SkipsMetadataLines(t *testing.T) {
	c := NewCobol()
	for _, l := range []string{"* comment", "PROGRAM-ID. PAYROLL", "AUTHOR. JANE"} {
		if c.ShouldMaskSeq(l) {
			t.Fatalf("%q 不应掩码", l)
		}
	}
	if c.ShouldMaskToken("%scope_close%") || c.ShouldMaskToken("'%mask_3%'") {
		t.Fatalf("作用域标记与掩码字符串不应掩码")
	}
	if c.ProcessSrcToken("0042") != "0042" || c.ProcessSrcToken("A-100-MAIN") != "A100Main" {
		t.Fatalf("ProcessSrcToken 异常")
	}
}

func TestForLVP(t *testing.T) {
	for _, l := range lvp.All() {
		if _, err := ForLVP(l); err != nil {
			t.Fatalf("%s: %v", l, err)
		}
	}
	if _, err := ForLVP(lvp.LVP(0)); !errors.Is(err, contract.ErrUnknownLVP) {
		t.Fatalf("未知 LVP 应报错: %v", err)
	}
}
