package contract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// UT-CONTRACT-01: 源文件路径规范化
func TestNormalizeFileID(t *testing.T) {
	cases := map[string]string{
		filepath.Join("cobol", "src", "PAYROLL.cbl"): "cobol/src/PAYROLL.cbl",
		`src\main\java\App.java`:                     "src/main/java/App.java",
		"./src/../lib/util.cpp":                      "lib/util.cpp",
		"src//pkg///Main.java":                       "src/pkg/Main.java",
		`C:\work\copybooks\..\src\HELLO.cbl`:         "C:/work/src/HELLO.cbl",
		"/abs/./src/Hello.java":                      "/abs/src/Hello.java",
		`..\shared\DATE.cpy`:                         "../shared/DATE.cpy",
		"-":                                          "-",
		"":                                           ".",
	}
	for in, want := range cases {
		assert.Equal(t, FileID(want), NormalizeFileID(in), "input %q", in)
	}
}
