package mtl_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/internal/lvp"
	"theory/internal/mtl"
	"theory/internal/preprocess"
	"theory/internal/veil"
)

func newVeil(sources ...string) *veil.Veil {
	v := veil.New(preprocess.NewCobol())
	for _, s := range sources {
		v.Save(v.Next(), s, true)
	}
	return v
}

// UT-MTL-01: EXEC 块成为单个注释令牌且行数不变
func TestCobol_ExecBlockKeepsLineCount(t *testing.T) {
	v := newVeil("WS-ID")
	m := mtl.NewCobol(v)
	in := []string{"EXEC SQL", "SELECT 1 INTO :%mask_0%", "END-EXEC", "DISPLAY %mask_0%"}
	got, err := m.TranslateAll(in)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"%mask_1%", "", "", "DISPLAY %mask_0%"}, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	src, ok := v.Source("%mask_1%")
	require.True(t, ok)
	assert.Equal(t, "/*\nEXEC SQL\nSELECT 1 INTO :WsId\nEND-EXEC\n*/", src)
}

// UT-MTL-02: LENGTH OF 生成 .Length 令牌
func TestCobol_LengthOf(t *testing.T) {
	v := newVeil("WS-NAME", "WS-LEN")
	got, err := mtl.NewCobol(v).TranslateAll([]string{"MOVE LENGTH OF %mask_0% TO %mask_1%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MOVE %mask_2% TO %mask_1%"}, got)
	src, _ := v.Source("%mask_2%")
	assert.Equal(t, "WsName.Length", src)
}

// UT-MTL-03: 存储格式关键字、RETURN AT END 与 WRITE 引用修正
func TestCobol_Rewrites(t *testing.T) {
	v := newVeil("OUT-FILE", "OUT-REC", "WS-LINE", "SORT-FILE", "WS-EOF")
	in := []string{
		"01 %mask_4% PIC 9 COMP",
		"FD %mask_0% DATA RECORD IS %mask_1%",
		"WRITE %mask_1% FROM %mask_2%",
		"RETURN %mask_3% AT END MOVE 1 TO %mask_4%",
	}
	got, err := mtl.NewCobol(v).TranslateAll(in)
	require.NoError(t, err)
	want := []string{
		"01 %mask_4% PIC 9",
		"FD %mask_0% DATA RECORD IS %mask_1%",
		"WRITE %mask_0% FROM %mask_2%",
		"MOVE 1 TO %mask_4%",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
}

func TestForLVP(t *testing.T) {
	v := newVeil()
	assert.NotNil(t, mtl.ForLVP(lvp.CobolToCSharp9, v))
	assert.Nil(t, mtl.ForLVP(lvp.Java14ToPython3, v))
}
