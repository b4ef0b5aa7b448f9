// Package mtl 实现宏翻译层：在逐行翻译之前对整份掩码文本做跨行改写。
// 目前只有 COBOL→C# 9 需要。
package mtl

import (
	"strings"

	"theory/internal/cobol"
	"theory/internal/lvp"
	"theory/internal/veil"
)

// MTL: 宏翻译层。输出行数应与输入一致。
type MTL interface {
	TranslateAll(lines []string) ([]string, error)
}

// ForLVP 返回 LVP 对应的 MTL；无 MTL 的 LVP 返回 nil。
func ForLVP(l lvp.LVP, v *veil.Veil) MTL {
	if l == lvp.CobolToCSharp9 {
		return NewCobol(v)
	}
	return nil
}

// Cobol: COBOL→C# 9 宏翻译。
type Cobol struct {
	v *veil.Veil
}

var _ MTL = (*Cobol)(nil)

func NewCobol(v *veil.Veil) *Cobol { return &Cobol{v: v} }

func (c *Cobol) TranslateAll(lines []string) ([]string, error) {
	text := strings.Join(lines, "\n")
	text = rmIsolatedKeywords(text)
	text = c.lengthOf(text)
	text = returnAtEnd(text)
	text = c.fileDataRefs(text)
	text = c.execBlocks(text)
	return strings.Split(text, "\n"), nil
}

var isolatedRepl = []string{"\n", " ", "."}

// rmIsolatedKeywords 去掉与上下文无关的存储格式关键字。
func rmIsolatedKeywords(text string) string {
	for i, re := range cobol.IsolatedKeywordRes {
		text = re.ReplaceAllString(text, isolatedRepl[i])
	}
	return text
}

// lengthOf 把 LENGTH OF x 替换为新令牌 X.Length。
func (c *Cobol) lengthOf(text string) string {
	return cobol.LengthOfRe.ReplaceAllStringFunc(text, func(m string) string {
		sm := cobol.LengthOfRe.FindStringSubmatch(m)
		name, _ := cobol.Group(cobol.LengthOfRe, sm, "var_name")
		tok := c.v.Next()
		c.v.Save(tok, c.v.Unmask(name)+".Length", false)
		return tok
	})
}

// returnAtEnd 只保留 RETURN ... AT END 的子句。
func returnAtEnd(text string) string {
	return cobol.ReturnAtEndRe.ReplaceAllStringFunc(text, func(m string) string {
		sm := cobol.ReturnAtEndRe.FindStringSubmatch(m)
		atEnd, _ := cobol.Group(cobol.ReturnAtEndRe, sm, "at_end")
		return strings.TrimSpace(atEnd)
	})
}

// fileDataRefs 把 WRITE 的数据记录引用改为其所属文件（依 FD/SD ... DATA RECORD IS 配对）。
func (c *Cobol) fileDataRefs(text string) string {
	files := make(map[string]string)
	for _, m := range cobol.GlobalFileDataRe.FindAllStringSubmatch(text, -1) {
		data, ok := cobol.Group(cobol.GlobalFileDataRe, m, "data_name")
		if !ok {
			continue
		}
		file, _ := cobol.Group(cobol.GlobalFileDataRe, m, "file_name")
		if src, ok := c.v.Source(data); ok {
			files[src] = file
		}
	}
	if len(files) == 0 {
		return text
	}
	return cobol.ReplFileDataRefRe.ReplaceAllStringFunc(text, func(m string) string {
		sm := cobol.ReplFileDataRefRe.FindStringSubmatch(m)
		to, _ := cobol.Group(cobol.ReplFileDataRefRe, sm, "write_to")
		src, _ := c.v.Source(to)
		file, ok := files[src]
		if !ok {
			return m
		}
		return strings.Replace(m, to, file, 1)
	})
}

// execBlocks 把 EXEC ... END-EXEC 块整体注释为单个令牌，并补回被吞掉的换行。
func (c *Cobol) execBlocks(text string) string {
	return cobol.ExecBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		tok := c.v.Next()
		c.v.Save(tok, "/*\n"+c.v.Unmask(m)+"\n*/", false)
		return tok + strings.Repeat("\n", strings.Count(m, "\n"))
	})
}
