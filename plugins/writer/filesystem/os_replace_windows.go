//go:build windows

package filesystem

import "golang.org/x/sys/windows"

// commitRename 以 MoveFileEx(REPLACE_EXISTING|WRITE_THROUGH) 覆盖目标；Windows 无目录 fsync。
func commitRename(tmpPath, dest string) error {
	from, err := windows.UTF16PtrFromString(tmpPath)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(dest)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}
