package itl_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/internal/datamap"
	"theory/internal/itl"
	"theory/internal/lvp"
	"theory/internal/preprocess"
	"theory/internal/store"
	"theory/internal/template"
	"theory/internal/veil"
	"theory/pkg/contract"
)

type cobolEnv struct {
	itl   *itl.Cobol
	veil  *veil.Veil
	tmpl  *template.Cobol
	store *store.Cobol
	// direct 记录 Direct 收到的子句及其 %mask_0% 所指全局令牌
	direct []string
}

func newCobolEnv(t *testing.T, sources ...string) *cobolEnv {
	t.Helper()
	tmpl, err := template.NewCobol()
	require.NoError(t, err)
	env := &cobolEnv{veil: veil.New(preprocess.NewCobol()), tmpl: tmpl, store: store.NewCobol(tmpl)}
	for _, s := range sources {
		env.veil.Save(env.veil.Next(), s, true)
	}
	env.itl, err = itl.NewCobol(itl.Deps{
		Veil:     env.veil,
		Table:    datamap.New(),
		Store:    env.store,
		Template: tmpl,
		Direct: func(ctx context.Context, line string, _, _ bool) (string, error) {
			g, _ := env.veil.FromRelative("%mask_0%")
			env.direct = append(env.direct, line+" @ "+g)
			out, ok, err := env.itl.Translate(ctx, line, 0)
			if err != nil {
				return "", err
			}
			if !ok {
				return strings.Replace(line, " = ", " == ", 1), nil
			}
			return out, nil
		},
	})
	require.NoError(t, err)
	return env
}

// translate 以全局令牌行输入，模拟编排器的相对化。
func (e *cobolEnv) translate(t *testing.T, global string, indent int) (string, bool) {
	t.Helper()
	rel := e.veil.ToRelative(global)
	out, ok, err := e.itl.Translate(context.Background(), rel, indent)
	require.NoError(t, err)
	return out, ok
}

// UT-ITL-01: 精确映射与按参数个数展开的 GO TO DEPENDING ON
func TestCobol_Literals(t *testing.T) {
	env := newCobolEnv(t)
	cases := map[string]string{
		"%scope_close%": "}",
		"ELSE":          "} else {",
		"GO TO %mask_4% %mask_9% DEPENDING ON %mask_2%": "COBOLUtils.CallByNum(%mask_2%, new Action[] { %mask_0%, %mask_1% });",
		"CALL '%mask_3%' USING %mask_1%, %mask_2%":      "%mask_0%(%mask_1%, %mask_2%);",
		"DISPLAY SPACES":                                `Console.WriteLine(" ");`,
	}
	for in, want := range cases {
		got, ok := env.translate(t, in, 11)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	got, ok := env.translate(t, "GOBACK", 11)
	require.True(t, ok)
	assert.Empty(t, got)
	_, ok = env.translate(t, "COMPUTE %mask_0% = %mask_1% + 1", 11)
	assert.False(t, ok, "未知语句不应命中")
}

// UT-ITL-02: MOVE 到多个目标
func TestCobol_MoveMultipleDestinations(t *testing.T) {
	env := newCobolEnv(t)
	got, ok := env.translate(t, "MOVE '%mask_5%' TO %mask_6%, %mask_7%", 11)
	require.True(t, ok)
	assert.Equal(t, "%mask_1%.Set(\"%mask_0%\");\n%mask_2%.Set(\"%mask_0%\");", got)
}

// UT-ITL-03: 88 级条件项缺少父项是结构性错误
func TestCobol_BoolItemWithoutParent(t *testing.T) {
	env := newCobolEnv(t)
	rel := env.veil.ToRelative("88 %mask_1% VALUE '%mask_2%'")
	_, _, err := env.itl.Translate(context.Background(), rel, 11)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrInvariantViolation))
}

// UT-ITL-04: 88 级条件项引用最近的数据项
func TestCobol_BoolItemWithParent(t *testing.T) {
	env := newCobolEnv(t)
	env.tmpl.SetCurrentTag(template.MemberVarAssignments)
	env.store.Update("05 WS-EOF PIC X")
	env.store.PostTranslationHook("WsEof = new COBOLVar(size: 1);")

	got, ok := env.translate(t, "88 %mask_3% VALUE '%mask_4%'", 11)
	require.True(t, ok)
	assert.Contains(t, got, "conditionVar: WsEof,")
	assert.Contains(t, got, `conditionFunc: item => item.value == "%mask_1%"`)

	got, ok = env.translate(t, "88 %mask_3% VALUES 1 THRU 5", 11)
	require.True(t, ok)
	assert.Contains(t, got, "item.value >= 1 && item.value <= 5")

	got, ok = env.translate(t, "88 %mask_3% VALUES 'A' 'B' 3", 11)
	require.True(t, ok)
	assert.Contains(t, got, `new dynamic[] { "A", "B", 3 }`)
}

// UT-ITL-05: PERFORM THRU 依扫描顺序展开
func TestCobol_PerformThru(t *testing.T) {
	env := newCobolEnv(t, "PARA-A", "PARA-B", "PARA-C")
	env.store.Scan("       PARA-A.\n           DISPLAY 'A'.\n       PARA-B.\n       PARA-C.\n")

	got, ok := env.translate(t, "PERFORM %mask_0% THRU %mask_2%", 11)
	require.True(t, ok)
	assert.Equal(t, "ParaA();\nParaB();\nParaC();", got)

	_, _, err := env.itl.Translate(context.Background(), env.veil.ToRelative("PERFORM %mask_2% THRU %mask_0%"), 11)
	require.Error(t, err)
	assert.ErrorIs(t, err, itl.ErrUnknownMethod)
}

// UT-ITL-06: UNTIL 条件在收窄窗口内递归翻译并求反
func TestCobol_PerformUntil(t *testing.T) {
	env := newCobolEnv(t, "PARA-A", "WS-EOF", "DONE")
	got, ok := env.translate(t, "PERFORM %mask_0% UNTIL %mask_1% = %mask_2%", 11)
	require.True(t, ok)
	assert.Equal(t, "while (WsEof != Done) {\nParaA();\n}", got)
	require.Len(t, env.direct, 1)
	assert.Equal(t, "%mask_0% = %mask_1% @ %mask_1%", env.direct[0])
}

// UT-ITL-07: READ INTO ... AT END 保留赋值并翻译子句
func TestCobol_ReadIntoAtEnd(t *testing.T) {
	env := newCobolEnv(t)
	got, ok := env.translate(t, "READ %mask_4% INTO %mask_5% AT END MOVE %mask_6% TO %mask_7%", 11)
	require.True(t, ok)
	assert.Equal(t, "%mask_1%.Set(%mask_0%.Read());\n%mask_3%.Set(%mask_2%);", got)
}

// UT-ITL-08: 节与段落方法以及节内段落调用
func TestCobol_SectionsAndParagraphs(t *testing.T) {
	env := newCobolEnv(t, "MAIN-SEC", "PARA-A", "PARA-B", "NEXT-SEC")
	for _, line := range []string{"%mask_0% SECTION", "%mask_1%", "%mask_2%", "%mask_3% SECTION"} {
		out, ok := env.translate(t, line, 7)
		require.True(t, ok, line)
		env.tmpl.Append(template.MemberFuncs, out)
	}
	funcs := env.tmpl.Content(template.MemberFuncs)
	require.Len(t, funcs, 4)
	assert.Equal(t, "public void MainSec()\n{", funcs[0])
	assert.Equal(t, "ParaA();\nParaB();\n}\n\npublic void ParaA()\n{", funcs[1])
	assert.Equal(t, "}\n\npublic void ParaB()\n{", funcs[2])
	assert.Equal(t, []string{"MainSec();", "ParaA();", "ParaB();", "NextSec();"}, env.tmpl.Content(template.Main))
	assert.Empty(t, env.itl.BuildSectionCalls())

	// 缩进不是 7 时不视为段落头
	_, ok := env.translate(t, "%mask_1%", 11)
	assert.False(t, ok)
}

// UT-ITL-09: SD 文件在 Run() 末尾删除
func TestCobol_SortFileDeleted(t *testing.T) {
	env := newCobolEnv(t, "SORT-FILE", "SORT-REC")
	got, ok := env.translate(t, "SD %mask_0% DATA RECORD IS %mask_1%", 11)
	require.True(t, ok)
	assert.Equal(t, "%mask_0%.AttachData(%mask_1%);", got)
	assert.Equal(t, []string{"\n// Delete temporary sort files", "SortFile.delete();"}, env.tmpl.Content(template.DeleteSortFiles))
}

// UT-ITL-10: IDMS OBTAIN 注入数据库连接并记录最近记录
func TestCobol_IDMS(t *testing.T) {
	env := newCobolEnv(t, "EMPLOYEE", "DEPT-EMPLOYEE")
	got, ok := env.translate(t, "OBTAIN NEXT %mask_0% WITHIN %mask_1%", 11)
	require.True(t, ok)
	assert.Equal(t, "Employee.Set(Db.QueryNext());", got)
	assert.True(t, env.itl.UsesDB())
	require.Len(t, env.tmpl.Content(template.MemberVars), 1)

	got, ok = env.translate(t, "IF NOT DB-END-OF-SET", 11)
	require.True(t, ok)
	assert.Equal(t, "if (Employee != null) {", got)

	env.itl.Reset()
	assert.False(t, env.itl.UsesDB())
	got, _ = env.translate(t, "DB-END-OF-SET", 11)
	assert.Equal(t, "true", got)
}

func TestNewCobol_RequiresCollaborators(t *testing.T) {
	_, err := itl.NewCobol(itl.Deps{Veil: veil.New(preprocess.NewCobol())})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

// UT-ITL-11: 花括号语系 → Node.js
func TestJavaToNode(t *testing.T) {
	v := veil.New(preprocess.NewJava())
	v.Save(v.Next(), "java.util.List", false)
	tr, err := itl.ForLVP(lvp.Java14ToNodeJS14, itl.Deps{Veil: v})
	require.NoError(t, err)

	cases := map[string]string{
		"}":                                  "}",
		"System.out.println(%mask_0%);":      "console.log(%mask_0%);",
		"System.out.print(%mask_0%);":        "process.stdout.write(String(%mask_0%));",
		"int %mask_0% = %mask_1%;":           "let %mask_0% = %mask_1%;",
		"for (int %mask_0% = 0; %mask_0% < %mask_1%; %mask_0%++) {": "for (let %mask_0% = 0; %mask_0% < %mask_1%; %mask_0%++) {",
		"@Override":                          "",
		"package %mask_0%;":                  "// package %mask_0%;",
		"public class %mask_0% extends %mask_1% implements %mask_2% {": "class %mask_0% extends %mask_1% {",
		"%member% public static void %mask_0%(String[] %mask_1%) {": "static %mask_0%(%mask_1%) {",
		"%member% private int %mask_0% = 0;": "%mask_0% = 0;",
	}
	for in, want := range cases {
		got, ok, err := tr.Translate(context.Background(), in, 0)
		require.NoError(t, err)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	v.ToRelative("import %mask_0%;")
	got, ok, err := tr.Translate(context.Background(), "import %mask_0%;", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `// require("%mask_0%");`, got)
	src, _ := v.Source("%mask_0%")
	assert.Equal(t, "java/util/List", src)
}

// UT-ITL-12: Java → Python 的语句块与 switch 提示
func TestJavaToPython(t *testing.T) {
	tr, err := itl.ForLVP(lvp.Java14ToPython3, itl.Deps{Veil: veil.New(preprocess.NewJava())})
	require.NoError(t, err)

	cases := map[string]string{
		"}":                                         "",
		"if (%mask_0% != %mask_1% && !%mask_2%) {":  "if %mask_0% != %mask_1% and not %mask_2%:",
		"} else {":                                  "else:",
		"} else if (%mask_0% == null) {":            "elif %mask_0% == None:",
		"for (int %mask_0% = 0; %mask_0% < %mask_1%; %mask_0%++) {": "for %mask_0% in range(%mask_1%):",
		"System.out.println(%mask_0%);":             "print(%mask_0%)",
		"boolean %mask_0% = true;":                  "%mask_0% = True",
		"import %mask_0%;":                          "# import %mask_0%",
		"public final class %mask_0% {":             "class %mask_0%:",
		"%member% public void %mask_0%(int %mask_1%) {": "def %mask_0%(self, %mask_1%):",
		"// %mask_0%":                               "# %mask_0%",
		"/* %mask_0% %mask_1% */":                   "# %mask_0% %mask_1%",
		"/** %mask_0% */":                           "# %mask_0%",
		"/*":                                        "#",
	}
	for in, want := range cases {
		got, ok, err := tr.Translate(context.Background(), in, 0)
		require.NoError(t, err)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok, err := tr.Translate(context.Background(), "switch (%mask_0%) {", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "# [theory] ERROR:"))
	assert.True(t, strings.HasSuffix(got, "# switch (%mask_0%) {"))
}

// UT-ITL-13: C++ include 改写为 require 并去掉源令牌引号
func TestCppToNode(t *testing.T) {
	v := veil.New(preprocess.NewCpp())
	v.Save(v.Next(), `"util.h"`, false)
	table := datamap.New()
	table.Add("x+=1;", "x += 1;")
	tr, err := itl.ForLVP(lvp.Cpp17ToNodeJS14, itl.Deps{Veil: v, Table: table})
	require.NoError(t, err)

	v.ToRelative("#include %mask_0%")
	got, ok, err := tr.Translate(context.Background(), "#include %mask_0%", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `require("%mask_0%");`, got)
	src, _ := v.Source("%mask_0%")
	assert.Equal(t, "util.h", src)

	for in, want := range map[string]string{
		"#pragma once":                           "",
		"using namespace std;":                   "// using namespace std;",
		"cout << %mask_0% << %mask_1% << endl;":  "console.log(%mask_0%, %mask_1%);",
		"std::cout << %mask_0%;":                 "process.stdout.write(String(%mask_0%));",
	} {
		got, ok, err := tr.Translate(context.Background(), in, 0)
		require.NoError(t, err)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok = tr.Map("x += 1;")
	require.True(t, ok)
	assert.Equal(t, "x += 1;", got)
}

func TestForLVP_RequiresVeil(t *testing.T) {
	_, err := itl.ForLVP(lvp.Java14ToNodeJS14, itl.Deps{})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
