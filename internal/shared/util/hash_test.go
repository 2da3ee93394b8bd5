package util

import "testing"

func TestHashText(t *testing.T) {
	got := HashText("Jane Smith\nEngineer")
	if got != HashText("  Jane Smith\nEngineer \n") {
		t.Fatalf("expected hash to ignore surrounding whitespace")
	}
	if got == HashText("John Smith\nEngineer") {
		t.Fatalf("expected different resumes to hash differently")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}
