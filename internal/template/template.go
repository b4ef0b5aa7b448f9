// Package template 维护目标文件骨架的标签分区：逐行把译文归入当前标签，最后整体回填骨架。
package template

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
)

//go:embed skeletons/*.tmpl
var skeletons embed.FS

// Tag: 骨架中的命名分区，以 <tag> 形式出现。
type Tag string

// Template: 编排器使用的模板处理器能力。
type Template interface {
	Reset()
	// Update 把一行译文追加到当前标签。
	Update(line string)
	// UpdateDelineator 依据格式化后的源行（已 strip）切换当前标签。
	UpdateDelineator(srcLine string, indent int)
	Build() (string, error)
}

// Delineator: 源行命中 Re 时切换到 Tag。
type Delineator struct {
	Re  *regexp.Regexp
	Tag Tag
}

// Processor: 通用标签处理器。非并发安全。
type Processor struct {
	skeleton    string
	tags        []Tag
	delineators []Delineator
	content     map[Tag][]string
	current     Tag
	next        Tag
}

var _ Template = (*Processor)(nil)

// New 以骨架文本、默认标签（骨架中的出现顺序）与分隔规则构造处理器。
func New(skeleton string, tags []Tag, delineators []Delineator) *Processor {
	p := &Processor{skeleton: skeleton, tags: tags, delineators: delineators}
	p.Reset()
	return p
}

// Load 读取内嵌骨架。
func Load(name string) (string, error) {
	b, err := skeletons.ReadFile("skeletons/" + name)
	if err != nil {
		return "", fmt.Errorf("skeleton %s: %w", name, err)
	}
	return string(b), nil
}

// Reset 恢复默认（空）分区，当前标签置为首个分隔规则的标签。
func (p *Processor) Reset() {
	p.content = make(map[Tag][]string, len(p.tags))
	for _, t := range p.tags {
		p.content[t] = nil
	}
	p.current = ""
	if len(p.delineators) > 0 {
		p.current = p.delineators[0].Tag
	} else if len(p.tags) > 0 {
		p.current = p.tags[0]
	}
	p.next = ""
}

func (p *Processor) CurrentTag() Tag { return p.current }

// SetCurrentTag 直接切换当前标签。
func (p *Processor) SetCurrentTag(t Tag) { p.current = t }

// DeferCurrentTag 记住当前标签，在下一行源码到来时恢复。
func (p *Processor) DeferCurrentTag() { p.next = p.current }

func (p *Processor) Update(line string) { p.Append(p.current, line) }

func (p *Processor) Append(t Tag, line string) { p.content[t] = append(p.content[t], line) }

func (p *Processor) Set(t Tag, lines []string) { p.content[t] = lines }

// Content 返回标签当前内容（只读视图）。
func (p *Processor) Content(t Tag) []string { return p.content[t] }

// Len 返回标签当前行数。
func (p *Processor) Len(t Tag) int { return len(p.content[t]) }

// Replace 改写标签内第 i 个条目；越界时忽略。
func (p *Processor) Replace(t Tag, i int, line string) {
	if i >= 0 && i < len(p.content[t]) {
		p.content[t][i] = line
	}
}

// ApplyDeferred 恢复上一次 DeferCurrentTag 记录的标签。
func (p *Processor) ApplyDeferred() {
	if p.next != "" {
		p.current = p.next
		p.next = ""
	}
}

func (p *Processor) UpdateDelineator(srcLine string, _ int) {
	p.ApplyDeferred()
	p.matchDelineator(srcLine)
}

func (p *Processor) matchDelineator(srcLine string) bool {
	for _, d := range p.delineators {
		if d.Re.MatchString(srcLine) {
			p.current = d.Tag
			return true
		}
	}
	return false
}

// Build 以各标签非空条目（换行连接）替换骨架中的 <tag>。
// 有内容但骨架缺少对应占位符视为错误。
func (p *Processor) Build() (string, error) {
	out := p.skeleton
	for _, t := range p.tags {
		ph := "<" + string(t) + ">"
		lines := nonEmpty(p.content[t])
		if len(lines) > 0 && !strings.Contains(out, ph) {
			return "", fmt.Errorf("skeleton has no placeholder for %s", ph)
		}
		out = strings.ReplaceAll(out, ph, strings.Join(lines, "\n"))
	}
	return out, nil
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
