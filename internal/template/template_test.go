package template

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeneric() *Processor {
	return New("A:<a>\nB:<b>", []Tag{"a", "b"}, []Delineator{
		{Re: regexp.MustCompile(`^START$`), Tag: "a"},
		{Re: regexp.MustCompile(`^NEXT$`), Tag: "b"},
	})
}

// UT-TPL-01: 分隔规则切换当前标签，Build 跳过空行回填骨架
func TestProcessorBuild(t *testing.T) {
	p := newGeneric()
	assert.Equal(t, Tag("a"), p.CurrentTag(), "初始为首个分隔规则的标签")
	p.Update("x")
	p.UpdateDelineator("NEXT", 0)
	p.Update("y")
	p.Update("")
	p.Update("z")

	out, err := p.Build()
	require.NoError(t, err)
	assert.Equal(t, "A:x\nB:y\nz", out)
}

// UT-TPL-02: 有内容但骨架缺少占位符时报错
func TestProcessorMissingPlaceholder(t *testing.T) {
	p := New("<a>", []Tag{"a", "b"}, nil)
	p.SetCurrentTag("b")
	p.Update("orphan")
	_, err := p.Build()
	assert.Error(t, err)

	p.Reset()
	out, err := p.Build()
	require.NoError(t, err, "空标签不要求占位符")
	assert.Equal(t, "", out)
}

// UT-TPL-03: DeferCurrentTag 在下一行源码时恢复
func TestProcessorDefer(t *testing.T) {
	p := newGeneric()
	p.DeferCurrentTag()
	p.SetCurrentTag("b")
	p.Update("once")
	p.UpdateDelineator("plain", 0)
	assert.Equal(t, Tag("a"), p.CurrentTag())

	p.Replace("b", 0, "twice")
	p.Replace("b", 5, "ignored")
	assert.Equal(t, []string{"twice"}, p.Content("b"))
}

// UT-TPL-04: COBOL 分区：PROGRAM-ID 决定类名，FD 行临时归入 file_data_attachments
func TestCobolDelineators(t *testing.T) {
	c, err := NewCobol()
	require.NoError(t, err)
	assert.Equal(t, FileDetails, c.CurrentTag())

	c.UpdateDelineator("PROGRAM-ID. HELLO-WORLD", 7)
	assert.Equal(t, []string{"HELLO-WORLD"}, c.Content(ProgramName))
	assert.Equal(t, []string{"HelloWorld"}, c.Content(ClassName))

	c.UpdateDelineator("WORKING-STORAGE SECTION", 8)
	assert.Equal(t, MemberVarAssignments, c.CurrentTag())

	c.UpdateDelineator("FD IN-FILE", 7)
	assert.Equal(t, FileDataAttachments, c.CurrentTag())
	c.UpdateDelineator("01 IN-REC", 7)
	assert.Equal(t, MemberVarAssignments, c.CurrentTag(), "FD 之后恢复原标签")

	c.UpdateDelineator("PROCEDURE DIVISION", 7)
	assert.Equal(t, Main, c.CurrentTag())
	c.UpdateDelineator("MAIN-PARA", 7)
	assert.Equal(t, MemberFuncs, c.CurrentTag())
	c.UpdateDelineator("OTHER-PARA", 11)
	assert.Equal(t, MemberFuncs, c.CurrentTag(), "非第 8 列不视为段落头")
}

// UT-TPL-05: Build 为最后一个成员方法补上闭合括号并替换全部同名占位符
func TestCobolBuild(t *testing.T) {
	c, err := NewCobol()
	require.NoError(t, err)
	c.UpdateDelineator("PROGRAM-ID. HELLO", 7)
	c.SetCurrentTag(MemberFuncs)
	c.Update("public void MainPara()\n{")
	c.Update("Console.WriteLine(\"x\");")

	out, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Hello"), "类名占位符出现三次")
	assert.NotContains(t, out, "<class_name>")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "Console.WriteLine(\"x\");\n}\n}"), out)
}
