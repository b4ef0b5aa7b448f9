package lvp

import (
	"errors"
	"testing"

	"theory/pkg/contract"
)

func TestParseRoundTrip(t *testing.T) {
	for _, l := range All() {
		got, err := Parse(l.String())
		if err != nil || got != l {
			t.Fatalf("Parse(%q)=%v,%v", l.String(), got, err)
		}
		if l.Source() == "" || l.Target() == "" {
			t.Fatalf("%s 缺少语言名", l)
		}
		if len(l.SourceExtensions()) == 0 {
			t.Fatalf("%s 缺少源扩展名", l)
		}
	}
}

func TestParseLenient(t *testing.T) {
	got, err := Parse(" COBOL-TO-CSHARP-9 ")
	if err != nil || got != CobolToCSharp9 {
		t.Fatalf("got %v %v", got, err)
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("fortran_to_rust")
	if !errors.Is(err, contract.ErrUnknownLVP) {
		t.Fatalf("want ErrUnknownLVP, got %v", err)
	}
	if LVP(0).Valid() {
		t.Fatalf("零值不应合法")
	}
}
