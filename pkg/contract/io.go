package contract

import (
	"context"
	"io"
)

// Reader 枚举输入根（文件、目录或 "-" 表示 STDIN），每个源文件回调一次 yield。
// 回调按确定顺序串行发生；yield 负责关闭 rc。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(id FileID, rc io.ReadCloser) error) error
}

// ArtifactID: 译文文件的逻辑路径，形式与 FileID 相同。
type ArtifactID = FileID

// Writer 持久化一个译文文件。同一 ArtifactID 只会有一个写者；出错直接返回，不重试。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
