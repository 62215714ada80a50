package strkey

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		depth int
		want  uint64
	}{
		{"full window", "abcdefgh", 0, 0x6162636465666768},
		{"longer than window", "abcdefghij", 0, 0x6162636465666768},
		{"short string zero padded", "ab", 0, 0x6162000000000000},
		{"empty", "", 0, 0},
		{"depth inside", "abcdefghij", 2, 0x636465666768696A},
		{"depth at end", "ab", 2, 0},
		{"depth past end", "ab", 7, 0},
		{"embedded NUL stops the read", "ab\x00zzzzzz", 0, 0x6162000000000000},
		{"NUL at window start", "\x00zzzzzzzz", 0, 0},
		{"NUL mid window at depth", "abcd\x00xyz", 2, 0x6364000000000000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Extract([]byte(tc.s), tc.depth); got != tc.want {
				t.Errorf("Extract(%q, %d) = %#016x, want %#016x", tc.s, tc.depth, got, tc.want)
			}
		})
	}
}

func TestLCP(t *testing.T) {
	tests := []struct {
		a, b uint64
		want int
	}{
		{0x6162636465666768, 0x6162636465666768, 8},
		{0x6162636465666768, 0x6162636465666700, 7},
		{0x6162000000000000, 0x6163000000000000, 1},
		{0x6162000000000000, 0x0, 0},
		{0x0, 0x0, 8},
	}
	for _, tc := range tests {
		if got := LCP(tc.a, tc.b); got != tc.want {
			t.Errorf("LCP(%#x, %#x) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDepth(t *testing.T) {
	tests := []struct {
		a    uint64
		want int
	}{
		{0, 0},
		{0x6100000000000000, 1},
		{0x6162000000000000, 2},
		{0x6162636465666768, 8},
	}
	for _, tc := range tests {
		if got := Depth(tc.a); got != tc.want {
			t.Errorf("Depth(%#x) = %d, want %d", tc.a, got, tc.want)
		}
	}
}

func TestCharAt(t *testing.T) {
	key := uint64(0x6162636465666768)
	for i, want := range []byte("abcdefgh") {
		if got := CharAt(key, i); got != want {
			t.Errorf("CharAt(%#x, %d) = %q, want %q", key, i, got, want)
		}
	}
	// the char at the string's depth is the NUL terminator
	if got := CharAt(0x6162000000000000, 2); got != 0 {
		t.Errorf("CharAt at depth = %#x, want NUL", got)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b  string
		depth int
		want  int
	}{
		{"abc", "abd", 0, -1},
		{"abd", "abc", 0, 1},
		{"abc", "abc", 0, 0},
		{"ab", "abc", 0, -1},  // end-of-string sorts first
		{"ab\x00zz", "ab\x00aa", 0, 0}, // bytes after NUL never compare
		{"ab\x00zz", "abc", 0, -1},
		{"xxab", "xxac", 2, -1},
		{"ab", "ac", 2, 0}, // both ended before depth
	}
	for _, tc := range tests {
		if got := Compare([]byte(tc.a), []byte(tc.b), tc.depth); got != tc.want {
			t.Errorf("Compare(%q, %q, %d) = %d, want %d", tc.a, tc.b, tc.depth, got, tc.want)
		}
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		a, b  string
		depth int
		want  int
	}{
		{"abc", "abd", 0, 2},
		{"abc", "abc", 0, 3},
		{"ab", "abc", 0, 2},
		{"ab\x00zz", "ab\x00aa", 0, 2},
		{"xyabc", "xyabd", 2, 4},
		{"", "", 0, 0},
	}
	for _, tc := range tests {
		if got := CommonPrefix([]byte(tc.a), []byte(tc.b), tc.depth); got != tc.want {
			t.Errorf("CommonPrefix(%q, %q, %d) = %d, want %d", tc.a, tc.b, tc.depth, got, tc.want)
		}
	}
}
