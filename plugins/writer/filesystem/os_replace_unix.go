//go:build !windows

package filesystem

import (
	"os"
	"path/filepath"
)

// commitRename 以 rename 覆盖目标，随后尽力 fsync 父目录使目录项落盘。
func commitRename(tmpPath, dest string) error {
	if err := os.Rename(tmpPath, dest); err != nil {
		return err
	}
	d, err := os.Open(filepath.Dir(dest))
	if err != nil {
		return nil
	}
	_ = d.Sync()
	_ = d.Close()
	return nil
}
