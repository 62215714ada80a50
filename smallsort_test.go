// smallsort_test.go tests the sequential sorting layers in isolation:
// insertion sort with LCP filling, the cached-key insertion sort,
// multikey quicksort, and the sequential sample-sort stack.
package strsort

import (
	"slices"
	"testing"

	"github.com/abhillman/strsort/internal/strkey"
)

func newTestContext(t *testing.T, totalSize int, opts ...Option) *sortContext {
	t.Helper()
	cfg, err := buildConfig(append(testOptions(WithWorkers(1)), opts...))
	if err != nil {
		t.Fatal(err)
	}
	return newSortContext(cfg, totalSize)
}

// sortBundle runs one small-sort job to completion on the bundle.
func sortBundle(t *testing.T, ctx *sortContext, b bundle, depth int) {
	t.Helper()
	newSmallsortJob[uint32](ctx, nil, b, depth).Run()
}

func lcpBundle(input [][]byte) bundle {
	return bundle{
		active: input,
		shadow: make([][]byte, len(input)),
		lcp:    make([]int, len(input)),
		cache:  make([]byte, len(input)),
	}
}

// =============================================================================
// insertion sort
// =============================================================================

func TestInsertionSort(t *testing.T) {
	rng := newTestRNG(t)
	for range 50 {
		n := 2 + rng.IntN(30)
		input := randomStrings(rng, n, 1+rng.IntN(10), 3)
		orig := slices.Clone(input)

		b := lcpBundle(input)
		insertionSort(b, 0)

		checkSorted(t, orig, input)
		checkLCP(t, input, b.lcp)
		checkCache(t, input, b.lcp, b.cache)
	}
}

func TestInsertionSortAtDepth(t *testing.T) {
	// all strings share a 4-byte prefix; sorting at depth 4 must still
	// produce full-string LCPs
	input := byteStrings("prefbbb", "prefaaa", "prefab", "pref")
	orig := slices.Clone(input)

	b := lcpBundle(input)
	insertionSort(b, 4)

	checkSorted(t, orig, input)
	checkLCP(t, input, b.lcp)
}

func TestInsertionSortCacheClean(t *testing.T) {
	rng := newTestRNG(t)
	for range 50 {
		n := 2 + rng.IntN(30)
		// longer than the key window so equal-cache runs recurse
		input := randomStrings(rng, n, 12, 2)
		orig := slices.Clone(input)

		b := lcpBundle(input)
		cache := make([]uint64, n)
		for i := range input {
			cache[i] = strkey.Extract(input[i], 0)
		}
		insertionSortCache(b, cache, 0, false)

		checkSorted(t, orig, input)
		checkLCP(t, input, b.lcp)
		checkCache(t, input, b.lcp, b.cache)
	}
}

func TestInsertionSortCacheTerminalRun(t *testing.T) {
	// equal short strings: the cached key is NUL-terminated, so the run
	// is complete and gets its length broadcast as LCP
	input := byteStrings("dog", "cat", "dog", "dog")
	orig := slices.Clone(input)

	b := lcpBundle(input)
	cache := make([]uint64, len(input))
	for i := range input {
		cache[i] = strkey.Extract(input[i], 0)
	}
	insertionSortCache(b, cache, 0, false)

	checkSorted(t, orig, input)
	checkLCP(t, input, b.lcp)
	if b.lcp[2] != 3 || b.lcp[3] != 3 {
		t.Errorf("lcp = %v, want 3s across the dog run", b.lcp)
	}
}

// =============================================================================
// multikey quicksort
// =============================================================================

func TestMKQSPartition(t *testing.T) {
	rng := newTestRNG(t)
	ctx := newTestContext(t, 1000)

	for range 20 {
		n := 16 + rng.IntN(200)
		input := randomStrings(rng, n, 6, 3)
		b := bundle{active: input, shadow: make([][]byte, n)}
		cache := make([]uint64, n)

		s := newMKQSStep(ctx, b, cache, 0, true)

		if s.numLT+s.numEQ+s.numGT != n {
			t.Fatalf("parts %d+%d+%d != %d", s.numLT, s.numEQ, s.numGT, n)
		}
		if s.numEQ == 0 {
			t.Fatal("equal part must contain at least the pivot")
		}
		pivot := cache[s.numLT]
		for i := 0; i < s.numLT; i++ {
			if cache[i] >= pivot {
				t.Fatalf("lt[%d] = %#x not below pivot %#x", i, cache[i], pivot)
			}
		}
		for i := s.numLT; i < s.numLT+s.numEQ; i++ {
			if cache[i] != pivot {
				t.Fatalf("eq[%d] = %#x != pivot %#x", i, cache[i], pivot)
			}
		}
		for i := s.numLT + s.numEQ; i < n; i++ {
			if cache[i] <= pivot {
				t.Fatalf("gt[%d] = %#x not above pivot %#x", i, cache[i], pivot)
			}
		}
	}
}

func TestSortMKQSCache(t *testing.T) {
	rng := newTestRNG(t)
	ctx := newTestContext(t, 5000)

	input := randomStrings(rng, 200, 14, 2)
	orig := slices.Clone(input)

	b := lcpBundle(input)
	sortBundle(t, ctx, b, 0)

	checkSorted(t, orig, input)
	checkLCP(t, input, b.lcp)
	checkCache(t, input, b.lcp, b.cache)
}

// =============================================================================
// sequential sample sort
// =============================================================================

func TestSortSequentialSampleSort(t *testing.T) {
	rng := newTestRNG(t)
	// total far above the small-sort threshold of 256 so the job takes
	// the sample-sort entry path
	input := randomStrings(rng, 4096, 10, 3)
	orig := slices.Clone(input)

	ctx := newTestContext(t, len(input), WithSmallsortThreshold(256))
	b := lcpBundle(input)
	sortBundle(t, ctx, b, 0)

	checkSorted(t, orig, input)
	checkLCP(t, input, b.lcp)
	checkCache(t, input, b.lcp, b.cache)

	if ctx.seqSteps.Load() == 0 {
		t.Error("expected sequential sample-sort steps")
	}
	if ctx.mkqsSteps.Load() == 0 {
		t.Error("expected multikey quicksort below the sample sort")
	}
}

func TestSmallsortFlippedInput(t *testing.T) {
	// out-of-place: strings start in the active array of a flipped
	// bundle and must land in the shadow array
	rng := newTestRNG(t)
	input := randomStrings(rng, 500, 8, 3)
	orig := slices.Clone(input)
	out := make([][]byte, len(input))

	ctx := newTestContext(t, len(input))
	b := bundle{
		active:  input,
		shadow:  out,
		lcp:     make([]int, len(input)),
		flipped: true,
	}
	sortBundle(t, ctx, b, 0)

	checkSorted(t, orig, out)
	checkLCP(t, out, b.lcp)
}
