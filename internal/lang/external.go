package lang

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runFormatter 以 argv + path 调用外部格式化工具；argv[0] 不在 PATH 时返回 ErrFormatterMissing。
func runFormatter(ctx context.Context, argv []string, path string) error {
	if len(argv) == 0 {
		return ErrFormatterMissing
	}
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("%s: %w", argv[0], ErrFormatterMissing)
	}
	args := append(append([]string(nil), argv[1:]...), path)
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w: %s", argv[0], path, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
