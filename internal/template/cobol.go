package template

import (
	"regexp"

	"theory/internal/cobol"
)

// COBOL→C# 骨架分区。
const (
	FileDetails          Tag = "file_details"
	ProgramName          Tag = "program_name"
	ClassName            Tag = "class_name"
	MemberVars           Tag = "member_vars"
	MemberVarAssignments Tag = "member_var_assignments"
	FileDataAttachments  Tag = "file_data_attachments"
	MemberFuncs          Tag = "member_funcs"
	Main                 Tag = "main"
	DeleteSortFiles      Tag = "delete_sort_files"
)

// CobolSkeleton: 内嵌骨架文件名。
const CobolSkeleton = "cobol_to_csharp_9.cs.tmpl"

var cobolTags = []Tag{
	FileDetails, ProgramName, ClassName, MemberVars, MemberVarAssignments,
	FileDataAttachments, MemberFuncs, Main, DeleteSortFiles,
}

var cobolDelineators = []Delineator{
	{Re: regexp.MustCompile(`^IDENTIFICATION\s+DIVISION$`), Tag: FileDetails},
	{Re: regexp.MustCompile(`^FILE-CONTROL$`), Tag: MemberVarAssignments},
	{Re: regexp.MustCompile(`^WORKING-STORAGE\s+SECTION$`), Tag: MemberVarAssignments},
	{Re: regexp.MustCompile(`^PROCEDURE\s+DIVISION$`), Tag: Main},
}

// Cobol: COBOL→C# 9 模板处理器。
type Cobol struct {
	*Processor
}

var _ Template = (*Cobol)(nil)

// NewCobol 以内嵌骨架构造。
func NewCobol() (*Cobol, error) {
	sk, err := Load(CobolSkeleton)
	if err != nil {
		return nil, err
	}
	return &Cobol{Processor: New(sk, cobolTags, cobolDelineators)}, nil
}

// UpdateDelineator 在通用规则之前处理：FD/SD 行单独归入 file_data_attachments，
// PROGRAM-ID 决定类名，第 8 列起的段落/节头进入 member_funcs。
func (c *Cobol) UpdateDelineator(srcLine string, indent int) {
	c.ApplyDeferred()

	if cobol.SrcFileDataRe.MatchString(srcLine) {
		c.DeferCurrentTag()
		c.SetCurrentTag(FileDataAttachments)
		return
	}
	if m := cobol.ProgramIDRe.FindStringSubmatch(srcLine); m != nil {
		name, _ := cobol.Group(cobol.ProgramIDRe, m, "name")
		c.Append(ProgramName, name)
		c.Append(ClassName, cobol.TitleCase(name, true))
		return
	}
	if indent == 7 {
		if m := cobol.ParagraphSrcRe.FindStringSubmatch(srcLine); m != nil {
			if name, _ := cobol.Group(cobol.ParagraphSrcRe, m, "name"); !cobol.IsReserved(name) {
				c.SetCurrentTag(MemberFuncs)
				return
			}
		}
	}
	c.matchDelineator(srcLine)
}

// Build 为最后一个成员方法补上闭合括号。
func (c *Cobol) Build() (string, error) {
	if c.Len(MemberFuncs) > 0 {
		c.Append(MemberFuncs, "}")
	}
	return c.Processor.Build()
}
