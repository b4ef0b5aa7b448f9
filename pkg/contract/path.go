package contract

import (
	"path"
	"strings"
)

// NormalizeFileID 把平台路径转为 FileID：反斜杠改为正斜杠后 path.Clean。
// 相对路径保持相对，不做绝对化。
func NormalizeFileID(p string) FileID {
	return FileID(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}
