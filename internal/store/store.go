// Package store 保存跨行结构状态：COBOL 段落名、数据项层级与成员变量布局。
package store

// Store: 编排器逐行驱动的状态存储。
type Store interface {
	Reset()
	// Scan 在翻译前扫描原始源文本。
	Scan(raw string)
	// Update 以格式化后的源行（已 strip，未掩码）更新状态，先于该行翻译。
	Update(line string)
	// PostTranslationHook 接收该行最终译文。
	PostTranslationHook(translated string)
	// Discard 丢弃当前行登记的待定状态（该行翻译失败时调用）。
	Discard()
}
