package service

import (
	"strings"
	"testing"
)

func TestGenerateAccessCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateAccessCode(6)
		if err != nil {
			t.Fatalf("GenerateAccessCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("len(%q) = %d, want 6", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(accessCodeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the base-36 alphabet", code, r)
			}
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("code %q is not uppercase", code)
		}
	}
}

func TestGenerateAccessCodeDefaultsLength(t *testing.T) {
	code, err := GenerateAccessCode(0)
	if err != nil {
		t.Fatalf("GenerateAccessCode: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("len = %d, want default 6", len(code))
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := normalizeCode("ab12cd"); got != "AB12CD" {
		t.Errorf("normalizeCode = %q, want AB12CD", got)
	}
	if got := normalizeCode("XY99ZZ"); got != "XY99ZZ" {
		t.Errorf("normalizeCode = %q, want unchanged", got)
	}
}
