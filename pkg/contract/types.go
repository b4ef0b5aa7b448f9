package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// LineNo: 单文件内从 1 起计的行号（对应格式化后的源行）。
type LineNo int

// LineRequest: 一次行级回退翻译请求。
// 约束：
// - Text 位于相对掩码空间（%mask_0%.. 按行内出现顺序编号）；
// - Context 仅提供语境（同样为相对空间之前的已掩码行），不要求产出；
// - LVP 为配置名（如 cobol_to_csharp_9），供 PromptBuilder 描述源/目标语言。
type LineRequest struct {
	FileID  FileID
	Line    LineNo
	LVP     string
	Source  string
	Target  string
	Text    string
	Context []string
}
