package strsort

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	randv2 "math/rand/v2"
	"slices"
	"testing"

	"github.com/cespare/xxhash/v2"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x9E3779B97F4A7C15
	testSeed2 = 0xC2B2AE3D27D4EB4F
)

func newTestRNG(t testing.TB) *randv2.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return randv2.New(randv2.NewPCG(testSeed1^s1, testSeed2^s2))
}

// byteStrings converts string literals to the sorter's input form.
func byteStrings(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

// refCompare is the reference NUL-terminated comparison, implemented
// independently of the strkey package: the first zero byte or the slice
// end terminates a string, and bytes beyond it never matter.
func refCompare(a, b []byte) int {
	for i := 0; ; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		if ca == 0 {
			return 0
		}
	}
}

// refLCP is the reference longest-common-prefix length in bytes under
// NUL-terminated semantics.
func refLCP(a, b []byte) int {
	l := 0
	for {
		var ca, cb byte
		if l < len(a) {
			ca = a[l]
		}
		if l < len(b) {
			cb = b[l]
		}
		if ca == 0 || ca != cb {
			return l
		}
		l++
	}
}

// refByteAt returns s[i] under NUL-terminated semantics.
func refByteAt(s []byte, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

// refSorted returns an independently sorted copy of the input.
func refSorted(input [][]byte) [][]byte {
	ref := make([][]byte, len(input))
	copy(ref, input)
	slices.SortStableFunc(ref, refCompare)
	return ref
}

// multisetSum returns an order-independent fingerprint of the strings,
// used for permutation checks.
func multisetSum(strings [][]byte) uint64 {
	var sum uint64
	for _, s := range strings {
		sum += xxhash.Sum64(s)
	}
	return sum
}

// checkSorted fails the test unless got is a sorted permutation of input.
func checkSorted(t *testing.T, input, got [][]byte) {
	t.Helper()
	if len(got) != len(input) {
		t.Fatalf("output has %d strings, want %d", len(got), len(input))
	}
	if multisetSum(input) != multisetSum(got) {
		t.Fatalf("output is not a permutation of the input")
	}
	for i := 1; i < len(got); i++ {
		if refCompare(got[i-1], got[i]) > 0 {
			t.Fatalf("output not sorted at index %d: %q > %q", i, got[i-1], got[i])
		}
	}
}

// checkLCP fails the test unless lcp[1:n] matches the reference LCPs of
// the sorted output. lcp[0] is the caller's business.
func checkLCP(t *testing.T, sorted [][]byte, lcp []int) {
	t.Helper()
	for i := 1; i < len(sorted); i++ {
		if want := refLCP(sorted[i-1], sorted[i]); lcp[i] != want {
			t.Fatalf("lcp[%d] = %d, want %d (%q | %q)", i, lcp[i], want, sorted[i-1], sorted[i])
		}
	}
}

// checkCache fails the test unless cache[1:n] holds each string's first
// byte past the common prefix with its predecessor.
func checkCache(t *testing.T, sorted [][]byte, lcp []int, cache []byte) {
	t.Helper()
	for i := 1; i < len(sorted); i++ {
		if want := refByteAt(sorted[i], lcp[i]); cache[i] != want {
			t.Fatalf("cache[%d] = %#x, want %#x", i, cache[i], want)
		}
	}
}

// randomStrings generates n strings of the given length over a small
// lowercase alphabet, so duplicates and shared prefixes occur naturally.
func randomStrings(rng *randv2.Rand, n, length, alphabet int) [][]byte {
	buf := make([]byte, n*length)
	for i := range buf {
		buf[i] = 'a' + byte(rng.IntN(alphabet))
	}
	out := make([][]byte, n)
	for i := range out {
		out[i] = buf[i*length : (i+1)*length]
	}
	return out
}

// prefixStrings generates n strings sharing one of k distinct 8-byte
// prefixes, forcing deep equal-buckets.
func prefixStrings(rng *randv2.Rand, n, length, k int) [][]byte {
	prefixes := make([][]byte, k)
	for i := range prefixes {
		p := make([]byte, 8)
		for j := range p {
			p[j] = 'A' + byte(i)
		}
		prefixes[i] = p
	}
	out := make([][]byte, n)
	for i := range out {
		s := make([]byte, length)
		copy(s, prefixes[rng.IntN(k)])
		for j := 8; j < length; j++ {
			s[j] = 'a' + byte(rng.IntN(4))
		}
		out[i] = s
	}
	return out
}

// decimalStrings generates the ASCII decimal of each index zero-padded
// to 12 digits, whose lexicographic order equals numeric order.
func decimalStrings(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = fmt.Appendf(nil, "%012d", i)
	}
	return out
}

// testOptions shrinks the thresholds and the classifier so that small
// corpora exercise the parallel step, the sequential sample sort, MKQS,
// and insertion sort together.
func testOptions(extra ...Option) []Option {
	opts := []Option{
		WithSmallsortThreshold(256),
		WithInsertionThreshold(8),
		WithClassifierCache(2048),
	}
	return append(opts, extra...)
}
