package textutil

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"habits", 10, "habits"},
		{"habit tracker", 6, "habit…"},
		{"日本語アプリ", 5, "日本…"},
		{"two\nlines", 20, "two lines"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if tt.width > 0 && Width(Truncate(tt.in, tt.width)) > tt.width {
			t.Errorf("Truncate(%q, %d) wider than limit", tt.in, tt.width)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 4); got != "ab  " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("日本", 6); Width(got) != 6 {
		t.Errorf("PadRight width = %d, want 6", Width(got))
	}
	if got := PadRight("abcdef", 4); got != "abc…" {
		t.Errorf("PadRight long = %q", got)
	}
}
