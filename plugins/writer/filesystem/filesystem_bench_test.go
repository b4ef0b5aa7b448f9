package filesystem

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"theory/pkg/contract"
)

// BenchmarkWriteArtifact: 单个译文文件的写出开销，对比原子与直接覆盖。
func BenchmarkWriteArtifact(b *testing.B) {
	src := []byte(strings.Repeat("console.log(\"line\");\n", 2000))
	for name, atomic := range map[string]bool{"atomic": true, "overwrite": false} {
		b.Run(name, func(b *testing.B) {
			w, err := New(&Options{OutputDir: b.TempDir(), Atomic: &atomic, StripPrefix: "src"})
			if err != nil {
				b.Fatalf("new writer: %v", err)
			}
			id := contract.ArtifactID("src/pkg/Main.js")
			ctx := context.Background()
			b.SetBytes(int64(len(src)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := w.Write(ctx, id, bytes.NewReader(src)); err != nil {
					b.Fatalf("write: %v", err)
				}
			}
		})
	}
}
