package internal

import "testing"

func TestNewCodeLength(t *testing.T) {
	for digits := MinCodeDigits; digits <= MaxCodeDigits; digits++ {
		for i := 0; i < 50; i++ {
			code, err := NewCode(digits)
			if err != nil {
				t.Fatalf("NewCode(%d) failed: %v", digits, err)
			}
			if len(code) != digits {
				t.Fatalf("NewCode(%d) = %q, wrong length", digits, code)
			}
			if code[0] == '0' {
				t.Fatalf("NewCode(%d) = %q, leading zero", digits, code)
			}
			for _, r := range code {
				if r < '0' || r > '9' {
					t.Fatalf("NewCode(%d) = %q, non-digit", digits, code)
				}
			}
		}
	}
}

func TestNewCodeRejectsBadDigits(t *testing.T) {
	for _, digits := range []int{0, 5, 11, -1} {
		if _, err := NewCode(digits); err == nil {
			t.Fatalf("NewCode(%d) succeeded, want error", digits)
		}
	}
}

func TestNewCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := NewCode(6)
		if err != nil {
			t.Fatalf("NewCode failed: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("20 draws produced a single code")
	}
}

func TestHashCodeIsStable(t *testing.T) {
	if HashCode("123456") != HashCode("123456") {
		t.Fatal("same code hashed differently")
	}
	if HashCode("123456") == HashCode("654321") {
		t.Fatal("different codes collided")
	}
}
