package store

import (
	"regexp"
	"strings"

	"theory/internal/cobol"
	"theory/internal/template"
)

var scanParagraphRe = regexp.MustCompile(`^\s(?P<name>[0-9a-zA-Z\-:]+)(?:\s+SECTION)?\.(?:\s+EXIT\.)?$`)

// Item: 布局树节点。Var 为 true 时 Value 是该数据项的译文。
type Item struct {
	Name     string
	Level    int
	Var      bool
	Value    string
	Children []*Item
}

// Cobol: COBOL→C# 9 状态存储。
type Cobol struct {
	tmpl *template.Cobol

	methodNames  []string
	lastItem     string
	deferredLast string
	deferred     *Item

	roots         []*Item
	stack         []*Item
	built         bool
	lastBuiltRoot bool
	defs          []string
	assigns       []string
}

var _ Store = (*Cobol)(nil)

func NewCobol(t *template.Cobol) *Cobol {
	s := &Cobol{tmpl: t}
	s.Reset()
	return s
}

func (s *Cobol) Reset() {
	s.methodNames = nil
	s.lastItem, s.deferredLast = "", ""
	s.deferred = nil
	s.roots, s.stack = nil, nil
	s.built, s.lastBuiltRoot = false, false
	s.defs, s.assigns = nil, nil
}

// MethodNames 返回按源顺序的段落/节方法名（TitleCase）。
func (s *Cobol) MethodNames() []string { return s.methodNames }

// LastItemName 返回最近一个完成翻译的非 88 级数据项名。
func (s *Cobol) LastItemName() (string, bool) { return s.lastItem, s.lastItem != "" }

// HasRoot 报告布局中是否存在该顶层数据项。
func (s *Cobol) HasRoot(name string) bool {
	for _, r := range s.roots {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Roots 返回布局顶层节点。
func (s *Cobol) Roots() []*Item { return s.roots }

func (s *Cobol) LayoutBuilt() bool { return s.built }

// Scan 从原始源码第 8-72 列收集段落与节名。
func (s *Cobol) Scan(raw string) {
	for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if len(l) <= 6 {
			continue
		}
		seg := strings.TrimRight(l[6:min(len(l), 72)], " \t\r")
		m := scanParagraphRe.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		name, _ := cobol.Group(scanParagraphRe, m, "name")
		if cobol.IsReserved(name) {
			continue
		}
		s.methodNames = append(s.methodNames, cobol.TitleCase(name, true))
	}
}

// Update 在数据区记录层级；离开数据区（进入 PROCEDURE DIVISION 或首个段落）时构建一次布局。
func (s *Cobol) Update(line string) {
	switch s.tmpl.CurrentTag() {
	case template.MemberVarAssignments:
		s.track(line)
	case template.Main, template.MemberFuncs:
		if !s.built {
			s.BuildLayout()
		}
	}
}

func (s *Cobol) track(line string) {
	if m := cobol.GroupItemRe.FindStringSubmatch(line); m != nil {
		lvl, _ := cobol.Group(cobol.GroupItemRe, m, "lvl")
		name, _ := cobol.Group(cobol.GroupItemRe, m, "name")
		it := &Item{Name: cobol.TitleCase(name, true), Level: cobol.Level(lvl)}
		s.popTo(it.Level)
		s.attach(it)
		s.stack = append(s.stack, it)
		s.deferredLast = it.Name
		return
	}
	m := cobol.ElemItemRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	lvl, _ := cobol.Group(cobol.ElemItemRe, m, "lvl")
	name, _ := cobol.Group(cobol.ElemItemRe, m, "name")
	it := &Item{Name: cobol.TitleCase(name, true), Level: cobol.Level(lvl), Var: true}
	if it.Level != 88 {
		s.popTo(it.Level)
		s.deferredLast = it.Name
	}
	s.deferred = it
}

// popTo 弹出层级不小于 level 的节点。
func (s *Cobol) popTo(level int) {
	for len(s.stack) > 0 && s.stack[len(s.stack)-1].Level >= level {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func (s *Cobol) attach(it *Item) {
	if n := len(s.stack); n > 0 {
		parent := s.stack[n-1]
		parent.Children = append(parent.Children, it)
		return
	}
	s.roots = append(s.roots, it)
}

// PostTranslationHook 把待定数据项连同译文挂到布局，并推进 LastItemName。
func (s *Cobol) PostTranslationHook(translated string) {
	if s.deferred != nil {
		s.deferred.Value = translated
		s.attach(s.deferred)
		s.deferred = nil
	}
	s.lastItem = s.deferredLast
}

// Discard 丢弃当前行登记的待定数据项，LastItemName 保持不变。
func (s *Cobol) Discard() {
	s.deferred = nil
	s.deferredLast = s.lastItem
}

// BuildLayout 把布局展开为成员声明与构造器初始化，写回模板。
// 已在 member_var_assignments 中的非布局条目（如 SELECT 译文）保留在前。
func (s *Cobol) BuildLayout() {
	if s.built {
		return
	}
	s.built = true
	s.defs, s.assigns = nil, nil
	s.lastBuiltRoot = false
	consumed := make(map[string]int)
	for _, r := range s.roots {
		s.buildItem(r, true, consumed)
	}

	kept := make([]string, 0, s.tmpl.Len(template.MemberVarAssignments))
	for _, l := range s.tmpl.Content(template.MemberVarAssignments) {
		if consumed[l] > 0 {
			consumed[l]--
			continue
		}
		kept = append(kept, l)
	}
	defs := append(append([]string(nil), s.tmpl.Content(template.MemberVars)...), s.defs...)
	s.tmpl.Set(template.MemberVars, defs)
	s.tmpl.Set(template.MemberVarAssignments, append(kept, s.assigns...))
}

func (s *Cobol) buildItem(it *Item, root bool, consumed map[string]int) {
	if root && !it.Var {
		region := "#region " + it.Name
		if s.lastBuiltRoot {
			region = "\n" + region
		}
		s.defs = append(s.defs, region)
		s.assigns = append(s.assigns, region)
	}
	s.lastBuiltRoot = root

	if it.Var {
		s.defs = append(s.defs, "private COBOLVar "+it.Name+";")
		s.assigns = append(s.assigns, it.Value)
		consumed[it.Value]++
		return
	}

	names := make([]string, 0, len(it.Children))
	for _, c := range it.Children {
		names = append(names, c.Name)
		s.buildItem(c, false, consumed)
	}
	end := "\n"
	if root {
		end = "\n#endregion\n"
	}
	s.defs = append(s.defs, "private COBOLGroup "+it.Name+";"+end)
	s.assigns = append(s.assigns, it.Name+" = new COBOLGroup(\n\t"+strings.Join(names, ",\n\t")+"\n);"+end)
}
