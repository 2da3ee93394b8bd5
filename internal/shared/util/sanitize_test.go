package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "resume.pdf", want: "resume.pdf"},
		{in: " cv/final.docx ", want: "cv_final.docx"},
		{in: `dir\cv.txt`, want: "dir_cv.txt"},
		{in: "cv\x00\n.pdf", want: "cv.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "\t\r", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err != ErrInvalidFileName {
				t.Fatalf("SanitizeFileName(%q) error = %v, want ErrInvalidFileName", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 300) + ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if n := utf8.RuneCountInString(got); n != MaxFileNameLen {
		t.Fatalf("length = %d, want %d", n, MaxFileNameLen)
	}
	if !strings.HasSuffix(got, ".docx") {
		t.Fatalf("extension lost: %q", got)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short", in: "abc", max: 5, want: "abc"},
		{name: "ascii", in: "abcdef", max: 3, want: "abc"},
		{name: "mid rune", in: "ab€cd", max: 3, want: "ab"},
		{name: "rune end", in: "ab€cd", max: 5, want: "ab€"},
		{name: "zero", in: "abc", max: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.max)
			if got != tt.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("invalid UTF-8: %q", got)
			}
		})
	}
}
