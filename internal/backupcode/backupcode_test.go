package backupcode

import (
	"strings"
	"testing"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := New(8)
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q length = %d, want 8", code, len(code))
		}
		for j := 0; j < len(code); j++ {
			if strings.IndexByte(Alphabet, code[j]) < 0 {
				t.Fatalf("code %q contains %q outside alphabet", code, code[j])
			}
		}
		if strings.ContainsAny(code, "IO01") {
			t.Fatalf("code %q contains an ambiguous character", code)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ABCDWXYZ", "ABCD-WXYZ"},
		{"ABCDEFGHJK", "ABCDE-FGHJK"},
		{"SHORT", "SHORT"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Format(tc.in); got != tc.want {
			t.Fatalf("Format(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{" abcd-wxyz ", "ABCDWXYZ"},
		{"AB CD WX YZ", "ABCDWXYZ"},
		{"ABCD-WXYZ", "ABCDWXYZ"},
		{"abcdwxyz", "ABCDWXYZ"},
	}
	for _, tc := range cases {
		if got := Canonicalize(tc.in); got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalizeUndoesFormat(t *testing.T) {
	code, err := New(8)
	if err != nil {
		t.Fatalf("new code: %v", err)
	}
	if got := Canonicalize(Format(code)); got != code {
		t.Fatalf("Canonicalize(Format(%q)) = %q", code, got)
	}
}

func TestIsCode(t *testing.T) {
	cases := []struct {
		canonical string
		want      bool
	}{
		{"ABCDWXYZ", true},
		{"23456789", true},
		{"123456", false},
		{"ABCDWXY", false},
		{"ABCDWXYZ2", false},
		{"ABCDWXY1", false},
		{"ABCDWXY0", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsCode(tc.canonical, 8); got != tc.want {
			t.Fatalf("IsCode(%q, 8) = %v, want %v", tc.canonical, got, tc.want)
		}
	}
}

func TestHashBindsAccount(t *testing.T) {
	a := Hash("acct-1", "ABCDWXYZ")
	b := Hash("acct-2", "ABCDWXYZ")
	if a == b {
		t.Fatal("same code hashed for two accounts must differ")
	}
	if a != Hash("acct-1", "ABCDWXYZ") {
		t.Fatal("hash is not deterministic")
	}
}

func TestBatch(t *testing.T) {
	display, records, err := Batch("acct-1", 8, 8)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(display) != 8 || len(records) != 8 {
		t.Fatalf("batch sizes = %d/%d, want 8/8", len(display), len(records))
	}

	seen := map[string]bool{}
	for i, code := range display {
		if len(code) != 9 || code[4] != '-' {
			t.Fatalf("display code %q not in XXXX-XXXX form", code)
		}
		canonical := Canonicalize(code)
		if !IsCode(canonical, 8) {
			t.Fatalf("canonical %q fails shape check", canonical)
		}
		if records[i].Hash != Hash("acct-1", canonical) {
			t.Fatalf("record %d hash does not match its display code", i)
		}
		if seen[canonical] {
			t.Fatalf("duplicate code %q in batch", canonical)
		}
		seen[canonical] = true
	}
}
