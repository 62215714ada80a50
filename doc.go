// Package strsort implements a parallel string sorter built around
// cache-aware Super Scalar String Sample-Sort, with optional inline
// computation of the longest-common-prefix array of the sorted output.
//
// Strings are caller-owned byte slices compared under NUL-terminated
// semantics: the first zero byte (or the end of the slice) ends the
// string, and end-of-string sorts before any continuation.
//
// # Basic Usage
//
// Sorting in place:
//
//	strings := [][]byte{[]byte("banana"), []byte("band"), []byte("ban")}
//	if err := strsort.Sort(strings); err != nil {
//	    log.Fatal(err)
//	}
//
// Sorting with LCPs:
//
//	lcp := make([]int, len(strings))
//	if err := strsort.SortLCP(strings, lcp); err != nil {
//	    log.Fatal(err)
//	}
//	// lcp[i] for i >= 1 is the common prefix length of strings[i-1]
//	// and strings[i]; lcp[0] is untouched.
//
// # How It Works
//
// Large ranges run a parallel sample sort: splitters sampled from the
// range form an implicit binary search tree sized to the L2 cache, a
// team of jobs classifies and counts partitions of the range, a second
// team distributes the strings into buckets out of place, and the
// buckets recurse at a deeper byte offset. Ranges below a threshold are
// sorted by one sequential job combining an in-cache sample sort,
// multikey quicksort over cached 8-byte keys, and insertion sort, and
// such a job re-publishes the pending parts of its recursion stack
// whenever other workers go idle.
//
// LCP entries are written as bucket boundaries finalize, so requesting
// them costs almost nothing on top of the sort itself.
//
// # Package Structure
//
//   - Public API: strsort.go (Sort, SortOut, SortLCP, SortLCPCacheOut,
//     SortNUMA), options.go (Option, With* functions)
//   - Sorting core: step.go (parallel step), smallsort.go (sequential
//     job), classifier.go (splitter tree), bundle.go (shadow arrays)
//   - Work pool: internal/jobqueue
//   - Key primitives: internal/strkey
//   - Platform: affinity_*.go (locality pinning)
package strsort
