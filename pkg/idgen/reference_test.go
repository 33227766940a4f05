package idgen

import (
	"strings"
	"testing"
)

func TestGenerateReference_HasPrefixAndIsUnique(t *testing.T) {
	a := GenerateReference("TKC")
	b := GenerateReference("TKC")

	if !strings.HasPrefix(a, "TKC") {
		t.Errorf("reference %q does not carry the prefix TKC", a)
	}
	if a == b {
		t.Errorf("expected two consecutive references to differ, got %q twice", a)
	}
}

func TestGenerateReference_Length(t *testing.T) {
	ref := GenerateReference("TKC")
	// prefix(3) + timestamp(14) + 6 random bytes hex-encoded (12 chars) = 29
	if len(ref) != 29 {
		t.Errorf("len(reference) = %d, want 29", len(ref))
	}
}
