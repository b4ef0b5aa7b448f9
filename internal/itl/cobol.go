package itl

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"theory/internal/cobol"
	"theory/internal/lang"
	"theory/internal/template"
	"theory/internal/veil"
	"theory/pkg/contract"
)

// SectionCallsTag: 节方法体内待填充的段落调用占位符。
const SectionCallsTag = "%section_calls%"

const (
	t0 = "%mask_0%"
	t1 = "%mask_1%"
	t2 = "%mask_2%"
)

// cobolLiterals 生成整行精确映射；GO TO DEPENDING ON 与 CALL USING 按参数个数展开。
func cobolLiterals() map[string]string {
	m := map[string]string{
		cobol.ScopeClose: "}",
		"EXIT":           "return;",
		"ELSE":           "} else {",
		"END-IF":         "}",
		"END-PERFORM":    "}",
		"GO TO " + t0:    t0 + "();",

		"PERFORM " + t0 + " " + t1 + " TIMES": "for (int i = 0; i < " + t1 + "; i++) { " + t0 + "(); }",
		"EVALUATE " + t0:                      "switch(" + t0 + ") {",
		"ANY-ERROR-STATUS":                    "false",
	}
	for n := 1; n <= 4; n++ {
		targets := tokens(0, n)
		sel := veil.Token(n)
		m["GO TO "+strings.Join(targets, " ")+" DEPENDING ON "+sel] =
			"COBOLUtils.CallByNum(" + sel + ", new Action[] { " + strings.Join(targets, ", ") + " });"
	}
	m["CALL '"+t0+"'"] = t0 + "();"
	for n := 1; n <= 5; n++ {
		args := strings.Join(tokens(1, n), ", ")
		m["CALL '"+t0+"' USING "+args] = t0 + "(" + args + ");"
	}
	return m
}

// tokens 返回从 from 开始的 n 个连续掩码令牌。
func tokens(from, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = veil.Token(from + i)
	}
	return out
}

var cobolRules = Rules{
	Ignored: set("FILE-CONTROL", "EJECT", "GOBACK", "FINISH"),
	IgnoredRes: []*regexp.Regexp{
		cobol.SourceRe, cobol.DivisionRe, cobol.DateCompiledRe, cobol.ComputerRe, cobol.SpecialNamesRe,
		cobol.StopRunRe, cobol.SkipRe, cobol.EntryRe, cobol.GroupItemMaskedRe,
		cobol.OpenInputRe, cobol.OpenOutputRe, cobol.OpenExtendRe, cobol.CloseFileRe,
		cobol.EndReadRe, cobol.EndWriteRe, cobol.ReadRe, cobol.DBSchemaRe,
		cobol.DisplayNullRe, cobol.NextSentenceLineRe,
		cobol.IDMSBindRe, cobol.IDMSReadyRe, cobol.PerformIDMSStatusRe,
	},
	Literal: cobolLiterals(),
	Regex: []Rule{
		R(`^DISPLAY\s+SPACES?$`, `Console.WriteLine(" ");`),
		R(`^DISPLAY\s+ZEROE?S?$`, `Console.WriteLine("0");`),
		R(`^ACCEPT\s+%mask_0%$`, `%mask_0%.Set(Console.Read());`),
		R(`^ACCEPT\s+%mask_0%\s+FROM\s+DATE$`, `%mask_0%.Set(int.Parse(DateTime.Today.ToString("yyMMdd")));`),
		R(`^ACCEPT\s+%mask_0%\s+FROM\s+DATE\s+YYYYMMDD$`, `%mask_0%.Set(int.Parse(DateTime.Today.ToString("yyyyMMdd")));`),
		R(`^ACCEPT\s+%mask_0%\s+FROM\s+DAY$`, `%mask_0%.Set(int.Parse(DateTime.Today.ToString("yydd")));`),
		R(`^ACCEPT\s+%mask_0%\s+FROM\s+DAY\s+YYYYDDD$`, `%mask_0%.Set(int.Parse(DateTime.Today.ToString("yyyydd")));`),
		R(`^ACCEPT\s+%mask_0%\s+FROM\s+DAY-OF-WEEK$`, `%mask_0%.Set(DateTime.Today.DayOfWeek);`),
		R(`^ACCEPT\s+%mask_0%\s+FROM\s+TIME$`, `%mask_0%.Set(int.Parse(DateTime.Today.ToString("HHmmssff")));`),
		R(`^PERFORM\s+%mask_0%\s*$`, `%mask_0%();`),

		R(`^SET\s+(?:ADDRESS\s+OF\s+)?%mask_0%\s+TO\s+%mask_1%$`, `%mask_0%.Set(%mask_1%);`),
		R(`^SET\s+%mask_0%\s+TO\s+['"]+%mask_1%['"]+$`, `%mask_0%.Set("%mask_1%");`),
		R(`^SET\s+%mask_0%\s+TO\s+NULL$`, `%mask_0%.Set(null);`),
		R(`^SET\s+%mask_0%\s+TO\s+SPACES?$`, `%mask_0%.Set(new string(' ', %mask_0%.size));`),
		R(`^SET\s+%mask_0%\s+TO\s+ZEROE?S?$`, `%mask_0%.Set(0);`),

		R(`^MOVE\s+%mask_0%\s*\(\s*%mask_1%\s*\)\s+TO\s+%mask_2%$`, `%mask_2%.Set(%mask_0%.GetSubvalue(start: %mask_1%));`),
		R(`^MOVE\s+%mask_0%\s*\(\s*%mask_1%\s*:\s*%mask_2%\s*\)\s+TO\s+%mask_3%$`, `%mask_3%.Set(%mask_0%.GetSubvalue(start: %mask_1%, length: %mask_2%));`),
		R(`^MOVE\s+%mask_0%\s+TO\s+%mask_1%\s*\(\s*%mask_2%\s*\)$`, `%mask_1%.SetSubvalue(newValue: %mask_0%, start: %mask_2%);`),
		R(`^MOVE\s+['"]%mask_0%['"]\s+TO\s+%mask_1%\s*\(\s*%mask_2%\s*\)$`, `%mask_1%.SetSubvalue(newValue: "%mask_0%", start: %mask_2%);`),
		R(`^MOVE\s+SPACES?\s+TO\s+%mask_0%\s*\(\s*%mask_1%\s*\)$`, `%mask_0%.SetSubvalue(newValue: new string(" ", %mask_0%.size), start: %mask_1%);`),
		R(`^MOVE\s+ZEROE?S?\s+TO\s+%mask_0%\s*\(\s*%mask_1%\s*\)$`, `%mask_0%.SetSubvalue(newValue: 0, start: %mask_1%);`),
		R(`^MOVE\s+%mask_0%\s+TO\s+%mask_1%\s*\(\s*%mask_2%\s*:\s*%mask_3%\s*\)$`, `%mask_1%.SetSubvalue(newValue: %mask_0%, start: %mask_2%, length: %mask_3%);`),
		R(`^MOVE\s+['"]%mask_0%['"]\s+TO\s+%mask_1%\s*\(\s*%mask_2%\s*:\s*%mask_3%\s*\)$`, `%mask_1%.SetSubvalue(newValue: "%mask_0%", start: %mask_2%, length: %mask_3%);`),

		R(`^MOVE\s+SPACES?\s+TO\s+%mask_0%$`, `%mask_0%.Set(" ", fill: true);`),
		R(`^MOVE\s+ZERO(?:E?S)?\s+TO\s+%mask_0%$`, `%mask_0%.Set(0, fill: true);`),
		R(`^MOVE\s+HIGH-VALUES\s+TO\s+%mask_0%$`, `%mask_0%.Set("F", fill: true);`),
		R(`^MOVE\s+LOW-VALUES\s+TO\s+%mask_0%$`, `%mask_0%.Set("0", fill: true);`),
		R(`^MOVE\s+NULL\s+TO\s+%mask_0%$`, `%mask_0%.Set(null);`),

		{Re: cobol.WhenRe, Out: `case "%mask_0%":`},
		{Re: cobol.WhenPerformRe, Out: "case \"%mask_0%\":\n%mask_1%();\nbreak;"},
		{Re: cobol.WhenMoveRe, Out: "case \"%mask_0%\":\n%mask_2%.Set(%mask_1%);\nbreak;"},
		{Re: cobol.WhenOtherRe, Out: `default:`},
		{Re: cobol.WhenOtherPerformRe, Out: "default:\n%mask_0%();\nbreak;"},
		{Re: cobol.WhenOtherMoveRe, Out: "default:\n%mask_1%.Set(%mask_0%);\nbreak;"},
		{Re: cobol.EndEvaluateRe, Out: `}`},

		{Re: cobol.FileSelectRe, Out: `%mask_0% = new COBOLFile(@"%mask_1%");`},
		{Re: cobol.WriteRe, Out: `%mask_0%.Append(%mask_1%);`},
		{Re: cobol.WriteAfterTopRe, Out: `%mask_0%.AppendLine(%mask_1%.ToString());`},
		{Re: cobol.WriteAfterRe, Out: `%mask_0%.AppendLine(%mask_1%.ToString());`},
		{Re: cobol.WriteAfterNRe, Out: `%mask_0%.Append(new string('\n', %mask_2%) + %mask_1%.ToString());`},
		{Re: cobol.WriteBeforeRe, Out: `%mask_0%.Append(%mask_1%.ToString() + "\n");`},
		{Re: cobol.WriteBeforeNRe, Out: `%mask_0%.Append(%mask_1%.ToString() + new string('\n', %mask_2%));`},
		{Re: cobol.ReadIntoRe, Out: `%mask_1%.Set(%mask_0%.Read());`},
		{Re: cobol.ReleaseRe, Out: `%mask_0%.AppendLine();`},

		{Re: cobol.IDMSNotAnyErrorRe, Out: `true`},
		{Re: cobol.IDMSIfAnyErrorRe, Out: `if (false) {`},
		{Re: cobol.IDMSIfNotAnyErrorRe, Out: `if (true) {`},
	},
}

// ErrNoParentItem: 88 级条件项之前没有可作为条件变量的数据项。
var ErrNoParentItem = fmt.Errorf("88-level item without parent item: %w", contract.ErrInvariantViolation)

// Cobol: COBOL → C# 9。持有段落/节与 IDMS 的跨行状态。
type Cobol struct {
	base
	d Deps

	section       string
	paragraph     string
	sectionTagIdx int
	sectionParas  []string
	usesDB        bool
	lastObtained  string
}

var _ ITL = (*Cobol)(nil)

// NewCobol 构造 COBOL→C# ITL；Store、Template 与 Direct 必须提供。
func NewCobol(d Deps) (*Cobol, error) {
	switch {
	case d.Store == nil:
		return nil, fmt.Errorf("cobol itl: store required: %w", contract.ErrInvalidInput)
	case d.Template == nil:
		return nil, fmt.Errorf("cobol itl: template required: %w", contract.ErrInvalidInput)
	case d.Direct == nil:
		return nil, fmt.Errorf("cobol itl: direct translator required: %w", contract.ErrInvalidInput)
	}
	c := &Cobol{base: base{table: d.Table}, d: d}
	c.Reset()
	return c, nil
}

func (c *Cobol) Reset() {
	c.section, c.paragraph = "", ""
	c.sectionTagIdx = -1
	c.sectionParas = nil
	c.usesDB = false
	c.lastObtained = ""
}

// UsesDB 报告是否已注入数据库连接成员。
func (c *Cobol) UsesDB() bool { return c.usesDB }

// BuildSectionCalls 生成当前节内全部段落的调用语句。
func (c *Cobol) BuildSectionCalls() string {
	calls := make([]string, 0, len(c.sectionParas))
	for _, p := range c.sectionParas {
		calls = append(calls, p+"();")
	}
	return strings.Join(calls, "\n")
}

func (c *Cobol) Translate(ctx context.Context, line string, indent int) (string, bool, error) {
	if cobol.IsIgnoredSection(line) {
		return "", true, nil
	}
	if out, ok := cobolRules.Apply(line); ok {
		return out, true, nil
	}
	for _, h := range []func(context.Context, string, int) (string, bool, error){
		c.metadata, c.boolItem, c.fileData, c.move, c.paragraphHeader, c.call, c.perform, c.readAtEnd, c.idms,
	} {
		out, ok, err := h(ctx, line, indent)
		if err != nil || ok {
			return out, ok, err
		}
	}
	return "", false, nil
}

func (c *Cobol) metadata(_ context.Context, line string, _ int) (string, bool, error) {
	if m := cobol.ProgramIDRe.FindStringSubmatch(line); m != nil {
		return "// " + m[1], true, nil
	}
	if m := cobol.AuthorRe.FindStringSubmatch(line); m != nil {
		return "// Author: " + m[1], true, nil
	}
	if m := cobol.DateWrittenRe.FindStringSubmatch(line); m != nil {
		return "// Date written: " + m[1], true, nil
	}
	return "", false, nil
}

// boolItem 把 88 级条件项译为带 conditionFunc 的 COBOLVar。
func (c *Cobol) boolItem(_ context.Context, line string, _ int) (string, bool, error) {
	var cond string
	if m := cobol.BoolItemValRe.FindStringSubmatch(line); m != nil {
		q := ""
		if quote, ok := cobol.Group(cobol.BoolItemValRe, m, "quote"); ok && quote != "" {
			q = `"`
		}
		cond = "item => item.value == " + q + t1 + q
	} else if m := cobol.BoolItemThruRe.FindStringSubmatch(line); m != nil {
		start, _ := cobol.Group(cobol.BoolItemThruRe, m, "thru_start")
		end, _ := cobol.Group(cobol.BoolItemThruRe, m, "thru_end")
		cond = "item => item.value >= " + start + " && item.value <= " + end
	} else if m := cobol.BoolItemValsRe.FindStringSubmatch(line); m != nil {
		raw, _ := cobol.Group(cobol.BoolItemValsRe, m, "vals")
		var vals []string
		for _, v := range strings.Fields(raw) {
			if strings.HasPrefix(v, "'") || strings.HasPrefix(v, `"`) {
				v = `"` + strings.Trim(v, `'"`) + `"`
			}
			vals = append(vals, v)
		}
		cond = "item => new List<dynamic>(new dynamic[] { " + strings.Join(vals, ", ") + " }).Contains(item.value)"
	} else {
		return "", false, nil
	}
	parent, ok := c.d.Store.LastItemName()
	if !ok {
		return "", false, fmt.Errorf("%q: %w", line, ErrNoParentItem)
	}
	return t0 + " = new COBOLVar(\n\tnull,\n\tsize: 1,\n\tconditionVar: " + parent + ",\n\tconditionFunc: " + cond + "\n);", true, nil
}

// fileData 译 FD/SD；SD 排序文件在 Run() 末尾删除。
func (c *Cobol) fileData(_ context.Context, line string, _ int) (string, bool, error) {
	m := cobol.FileDataRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, nil
	}
	if typ, _ := cobol.Group(cobol.FileDataRe, m, "type"); typ == "SD" {
		name, err := c.d.Veil.Resolve(t0)
		if err != nil {
			return "", false, err
		}
		tmpl := c.d.Template
		if tmpl.Len(template.DeleteSortFiles) == 0 {
			tmpl.Append(template.DeleteSortFiles, "\n// Delete temporary sort files")
		}
		tmpl.Append(template.DeleteSortFiles, name+".delete();")
	}
	if !strings.Contains(line, t1) {
		return "", true, nil
	}
	return t0 + ".AttachData(" + t1 + ");", true, nil
}

var destSplitRe = regexp.MustCompile(`,?\s`)

func (c *Cobol) move(_ context.Context, line string, _ int) (string, bool, error) {
	m := cobol.MoveRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, nil
	}
	method := "Set"
	if _, ok := cobol.Group(cobol.MoveRe, m, "corresponding"); ok {
		method = "SetMatched"
	}
	q := ""
	if _, ok := cobol.Group(cobol.MoveRe, m, "val_quote"); ok {
		q = `"`
	}
	dests, _ := cobol.Group(cobol.MoveRe, m, "destinations")
	var out []string
	for _, d := range destSplitRe.Split(dests, -1) {
		if d = strings.TrimSpace(d); d == "" {
			continue
		}
		out = append(out, d+"."+method+"("+q+t0+q+");")
	}
	return strings.Join(out, "\n"), true, nil
}

// paragraphHeader 在第 8 列开始的段落/节头处关闭上一个方法并开启新方法。
func (c *Cobol) paragraphHeader(_ context.Context, line string, indent int) (string, bool, error) {
	if indent != 7 {
		return "", false, nil
	}
	m := cobol.ParagraphRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, nil
	}
	tok, _ := cobol.Group(cobol.ParagraphRe, m, "mask")
	name, err := c.d.Veil.Resolve(tok)
	if err != nil {
		return "", false, err
	}
	tmpl := c.d.Template

	callsTag := ""
	if c.section != "" && len(c.sectionParas) == 0 {
		callsTag = SectionCallsTag + "\n"
		c.sectionTagIdx = tmpl.Len(template.MemberFuncs)
	}
	prefix := ""
	if c.paragraph != "" {
		prefix = callsTag + "}\n\n"
	}
	_, closes := cobol.Group(cobol.ParagraphRe, m, "exit")
	closing := ""
	if closes {
		closing = "}"
		c.paragraph = ""
	} else {
		c.paragraph = name
	}

	if _, isSection := cobol.Group(cobol.ParagraphRe, m, "section"); isSection {
		if c.section != "" && c.sectionTagIdx >= 0 {
			entries := tmpl.Content(template.MemberFuncs)
			if c.sectionTagIdx < len(entries) {
				tmpl.Replace(template.MemberFuncs, c.sectionTagIdx,
					strings.Replace(entries[c.sectionTagIdx], SectionCallsTag, c.BuildSectionCalls(), 1))
			}
			c.sectionTagIdx = -1
		}
		c.section = name
		c.sectionParas = c.sectionParas[:0]
	} else if c.section != "" {
		c.sectionParas = append(c.sectionParas, name)
	}

	tmpl.Append(template.Main, name+"();")
	return prefix + "public void " + name + "()\n{" + closing, true, nil
}

var argSplitRe = regexp.MustCompile(`\s+`)

func (c *Cobol) call(_ context.Context, line string, _ int) (string, bool, error) {
	m := cobol.CallRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, nil
	}
	tok, _ := cobol.Group(cobol.CallRe, m, "name")
	name, err := c.d.Veil.Resolve(tok)
	if err != nil {
		return "", false, err
	}
	name = cobol.TitleCase(name, true)

	var args []string
	if _, ok := cobol.Group(cobol.CallRe, m, "using"); ok {
		raw, _ := cobol.Group(cobol.CallRe, m, "args")
		for _, a := range argSplitRe.Split(strings.TrimSpace(raw), -1) {
			if a = strings.TrimRight(a, ","); a == "" {
				continue
			}
			if sm := cobol.SubvalueRe.FindStringSubmatch(a); sm != nil {
				sub, _ := cobol.Group(cobol.SubvalueRe, sm, "name")
				start, _ := cobol.Group(cobol.SubvalueRe, sm, "start")
				a = sub + ".GetSubvalue(start: " + start
				if length, ok := cobol.Group(cobol.SubvalueRe, sm, "length"); ok {
					a += ", length: " + length
				}
				a += ")"
			}
			resolved, err := c.d.Veil.Resolve(a)
			if err != nil {
				return "", false, err
			}
			args = append(args, resolved)
		}
	}
	return name + "(" + strings.Join(args, ", ") + ");", true, nil
}

// ErrUnknownMethod: PERFORM THRU 引用了扫描阶段未发现的段落。
var ErrUnknownMethod = fmt.Errorf("perform target not found in method names: %w", contract.ErrInvariantViolation)

func (c *Cobol) perform(ctx context.Context, line string, _ int) (string, bool, error) {
	m := cobol.PerformCallRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, nil
	}
	tok, _ := cobol.Group(cobol.PerformCallRe, m, "name")
	name, err := c.d.Veil.Resolve(tok)
	if err != nil {
		return "", false, err
	}
	result := name + "();"

	thru, hasThru := cobol.Group(cobol.PerformCallRe, m, "thru")
	if hasThru {
		last, err := c.d.Veil.Resolve(thru)
		if err != nil {
			return "", false, err
		}
		names := c.d.Store.MethodNames()
		from, to := slices.Index(names, name), slices.Index(names, last)
		if from < 0 || to < 0 || to < from {
			return "", false, fmt.Errorf("PERFORM %s THRU %s: %w", name, last, ErrUnknownMethod)
		}
		calls := make([]string, 0, to-from+1)
		for _, n := range names[from : to+1] {
			calls = append(calls, n+"();")
		}
		result = strings.Join(calls, "\n")
	}

	until, hasUntil := cobol.Group(cobol.PerformCallRe, m, "until")
	if !hasUntil {
		return result, true, nil
	}
	k := 1
	if hasThru {
		k = 2
	}
	masked := veil.Offset(until, -k)
	if masked != t0 {
		restore := c.d.Veil.Narrow(k)
		masked, err = c.d.Direct(ctx, masked, false, false)
		restore()
		if err != nil {
			return "", false, fmt.Errorf("UNTIL clause: %w", err)
		}
	}
	cond, err := c.d.Veil.Resolve(veil.Offset(masked, k))
	if err != nil {
		return "", false, err
	}
	if inv, ok := lang.InvertCondition(cond); ok {
		return "while (" + inv + ") {\n" + result + "\n}", true, nil
	}
	return "while (!(" + cond + ")) {\n" + result + "\n}", true, nil
}

// readAtEnd 只保留 AT END 子句（READ INTO 额外保留赋值）。
func (c *Cobol) readAtEnd(ctx context.Context, line string, _ int) (string, bool, error) {
	if m := cobol.ReadAtEndRe.FindStringSubmatch(line); m != nil {
		atEnd, _ := cobol.Group(cobol.ReadAtEndRe, m, "at_end")
		out, err := c.subClause(ctx, atEnd, 1)
		return out, err == nil, err
	}
	if m := cobol.ReadIntoAtEndRe.FindStringSubmatch(line); m != nil {
		atEnd, _ := cobol.Group(cobol.ReadIntoAtEndRe, m, "at_end")
		out, err := c.subClause(ctx, atEnd, 2)
		if err != nil {
			return "", false, err
		}
		return t1 + ".Set(" + t0 + ".Read());\n" + out, true, nil
	}
	return "", false, nil
}

// subClause 在收窄的窗口内翻译从第 k 个令牌开始的子句，结果仍在本行的相对空间。
func (c *Cobol) subClause(ctx context.Context, clause string, k int) (string, error) {
	restore := c.d.Veil.Narrow(k)
	out, err := c.d.Direct(ctx, veil.Offset(clause, -k), false, false)
	restore()
	if err != nil {
		return "", fmt.Errorf("AT END clause: %w", err)
	}
	return veil.Offset(out, k), nil
}

func (c *Cobol) idms(_ context.Context, line string, _ int) (string, bool, error) {
	v := c.d.Veil
	switch {
	case cobol.IDMSObtainFirstRe.MatchString(line):
		c.useDB()
		rec, err := v.Resolve(t0)
		if err != nil {
			return "", false, err
		}
		set, err := v.Resolve(t1)
		if err != nil {
			return "", false, err
		}
		c.lastObtained = rec
		from := cobol.CamelToMySQL(set)
		if !c.d.Store.HasRoot(set) && !strings.HasSuffix(from, "_view") {
			from = cobol.SnakeCase(rec) + "_" + cobol.RReplace(from, "_view", "", 1)
		}
		return rec + `.Set(Db.Query(SQLQueryBuilder.Select().From("` + from + `").Limit(1)));`, true, nil

	case cobol.IDMSObtainNextRe.MatchString(line):
		c.useDB()
		rec, err := v.Resolve(t0)
		if err != nil {
			return "", false, err
		}
		c.lastObtained = rec
		return rec + ".Set(Db.QueryNext());", true, nil

	case cobol.IDMSObtainOwnerRe.MatchString(line):
		c.useDB()
		set, err := v.Resolve(t0)
		if err != nil {
			return "", false, err
		}
		tables := cobol.SplitUpper(set)
		if len(tables) != 2 {
			return "", false, fmt.Errorf("OBTAIN OWNER WITHIN %s: set name must join two records: %w", set, contract.ErrInvariantViolation)
		}
		parent, child := strings.ToLower(tables[0]), strings.ToLower(tables[1])
		prefix := child
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
		join := cobol.TitleCase(strings.ToUpper(prefix)+"-"+strings.ToUpper(parent), true)
		query := `SQLQueryBuilder.Select("` + parent + `.*")` +
			`.From("` + parent + `", "` + child + `")` +
			`.Where($"` + prefix + "_" + parent + ` = '{` + join + `.value}'")` +
			`.Limit(1)`
		return cobol.TitleCase(parent, true) + ".Set(Db.Query(" + query + "));", true, nil

	case cobol.IDMSObtainUsingRe.MatchString(line):
		c.useDB()
		rec, err := v.Resolve(t0)
		if err != nil {
			return "", false, err
		}
		col, err := v.Resolve(t2)
		if err != nil {
			return "", false, err
		}
		c.lastObtained = rec
		from := cobol.SnakeCase(rec)
		prefix := from
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
		parts := cobol.SplitUpper(col)
		if len(parts) < 2 {
			return "", false, fmt.Errorf("OBTAIN USING %s: %w", col, contract.ErrInvariantViolation)
		}
		query := `SQLQueryBuilder.Select().From("` + from + `")` +
			`.Where($"` + prefix + "_" + strings.ToLower(parts[1]) + ` = '{` + col + `.value}'")` +
			`.Limit(1)`
		return rec + ".Set(Db.Query(" + query + "));", true, nil

	case cobol.IDMSObtainCalcRe.MatchString(line):
		return "// " + line + "\t// [theory] \"OBTAIN CALC *\" statements are currently not supported.\n", true, nil
	}

	if m := cobol.IDMSEndOfSetRe.FindStringSubmatch(line); m != nil {
		if c.lastObtained == "" {
			c.d.warn("no records were obtained before checking DB-END-OF-SET")
			return "true", true, nil
		}
		return c.lastObtained + " " + endOfSetOp(cobol.IDMSEndOfSetRe, m) + " null", true, nil
	}
	if m := cobol.IDMSIfEndOfSetRe.FindStringSubmatch(line); m != nil {
		if c.lastObtained == "" {
			c.d.warn("no records were obtained before checking DB-END-OF-SET")
			return "if (true) {", true, nil
		}
		return "if (" + c.lastObtained + " " + endOfSetOp(cobol.IDMSIfEndOfSetRe, m) + " null) {", true, nil
	}
	return "", false, nil
}

func endOfSetOp(re *regexp.Regexp, m []string) string {
	if _, neg := cobol.Group(re, m, "not"); neg {
		return "!="
	}
	return "=="
}

// useDB 首次使用时向模板注入数据库连接成员。
func (c *Cobol) useDB() {
	if c.usesDB {
		return
	}
	c.usesDB = true
	tmpl := c.d.Template
	tmpl.Append(template.MemberVars, "/// <summary>\n/// MySQL database connection instance.\n/// </summary>\nprivate DatabaseConnection Db;")
	tmpl.Append(template.MemberVarAssignments, "Db = new DatabaseConnection(\n\t"+
		`host: Environment.GetEnvironmentVariable("DB_HOST"),`+"\n\t"+
		`user: Environment.GetEnvironmentVariable("DB_USER"),`+"\n\t"+
		`password: Environment.GetEnvironmentVariable("DB_PASS"),`+"\n\t"+
		`databaseName: Environment.GetEnvironmentVariable("DB_NAME")`+"\n);")
}
