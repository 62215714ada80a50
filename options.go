package strsort

import (
	"fmt"
	"math/bits"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	strsorterrors "github.com/abhillman/strsort/errors"
)

const (
	// defaultSmallsortThreshold is the range size below which a range is
	// handled by one sequential small-sort job instead of a parallel step.
	defaultSmallsortThreshold = 1 << 20

	// defaultInsertionThreshold is the range size below which multikey
	// quicksort hands over to insertion sort.
	defaultInsertionThreshold = 32

	// minInsertionThreshold bounds the insertion threshold from below;
	// the median-of-9 pivot selection needs a handful of elements.
	minInsertionThreshold = 4

	// defaultClassifierCache is the classifier cache budget used when the
	// L2 data cache size cannot be detected.
	defaultClassifierCache = 256 * 1024

	// defaultMaxParts caps the partition count of one parallel step
	// (2 * 64 + 1, the +1 from rounding up the processor count).
	defaultMaxParts = 2*64 + 1

	// maxTreebits keeps bucket indices within uint16: 2 * (2^15 - 1) + 1
	// buckets is the largest count the bucket-id caches can address.
	maxTreebits = 15

	// defaultSeed seeds the splitter samplers; overridden via WithSeed.
	defaultSeed = 0x1234567890abcdef
)

// Stats reports how the work divided between the sorting strategies.
// Populated through WithStats once a sort completes.
type Stats struct {
	ParallelSteps   uint64 // parallel sample-sort steps
	SequentialSteps uint64 // sequential sample-sort steps
	MKQSSteps       uint64 // multikey-quicksort partition steps
}

// Option is a functional option for configuring a sort.
type Option func(*sortConfig)

type sortConfig struct {
	workers            int
	smallsortThreshold int
	insertionThreshold int
	classifierCache    int
	maxParts           int
	singleStep         bool
	seed               uint64
	localityGroup      int // -1 when unpinned
	stats              *Stats
}

func defaultSortConfig() *sortConfig {
	return &sortConfig{
		workers:            runtime.GOMAXPROCS(0),
		smallsortThreshold: defaultSmallsortThreshold,
		insertionThreshold: defaultInsertionThreshold,
		classifierCache:    detectClassifierCache(),
		maxParts:           defaultMaxParts,
		seed:               defaultSeed,
		localityGroup:      -1,
	}
}

// detectClassifierCache returns the measured L2 data cache size, falling
// back to a conservative default when detection is unavailable.
func detectClassifierCache() int {
	if l2 := cpuid.CPU.Cache.L2; l2 > 0 {
		return l2
	}
	return defaultClassifierCache
}

// treebitsForCache returns the splitter tree depth whose tree and bucket
// counter vectors fit the given cache budget:
// ns·sizeof(key) + (2·ns+1)·sizeof(counter) <= budget.
func treebitsForCache(budget int) int {
	ns := (budget - 8) / (8 + 2*8)
	if ns < 1 {
		return 0
	}
	tb := bits.Len(uint(ns+1)) - 1
	if tb > maxTreebits {
		tb = maxTreebits
	}
	return tb
}

func (c *sortConfig) validate() error {
	if c.workers < 1 {
		return fmt.Errorf("%w: %d", strsorterrors.ErrInvalidWorkers, c.workers)
	}
	if c.insertionThreshold < minInsertionThreshold {
		return fmt.Errorf("%w: insertion threshold %d < %d",
			strsorterrors.ErrInvalidThreshold, c.insertionThreshold, minInsertionThreshold)
	}
	if c.smallsortThreshold < c.insertionThreshold {
		return fmt.Errorf("%w: small-sort threshold %d < insertion threshold %d",
			strsorterrors.ErrInvalidThreshold, c.smallsortThreshold, c.insertionThreshold)
	}
	if treebitsForCache(c.classifierCache) < 1 {
		return fmt.Errorf("%w: %d bytes", strsorterrors.ErrInvalidClassifier, c.classifierCache)
	}
	if c.maxParts < 1 {
		return fmt.Errorf("%w: %d", strsorterrors.ErrInvalidMaxParts, c.maxParts)
	}
	return nil
}

// WithWorkers sets the number of worker goroutines driving the job queue.
// Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *sortConfig) {
		c.workers = n
	}
}

// WithSmallsortThreshold sets the range size below which ranges are sorted
// by one sequential job. Defaults to 1<<20 strings.
func WithSmallsortThreshold(n int) Option {
	return func(c *sortConfig) {
		c.smallsortThreshold = n
	}
}

// WithInsertionThreshold sets the range size below which multikey
// quicksort hands over to insertion sort. Defaults to 32.
func WithInsertionThreshold(n int) Option {
	return func(c *sortConfig) {
		c.insertionThreshold = n
	}
}

// WithClassifierCache sets the cache budget in bytes that sizes the
// splitter tree of each sample-sort step. Defaults to the detected L2
// data cache size.
func WithClassifierCache(bytes int) Option {
	return func(c *sortConfig) {
		c.classifierCache = bytes
	}
}

// WithMaxParts caps the partition count of one parallel sample-sort step.
func WithMaxParts(n int) Option {
	return func(c *sortConfig) {
		c.maxParts = n
	}
}

// WithSingleStep stops after the top parallel sample-sort level completes
// its counting phase. The output is NOT sorted; benchmark mode only.
func WithSingleStep() Option {
	return func(c *sortConfig) {
		c.singleStep = true
	}
}

// WithSeed seeds the per-step splitter samplers. Sorts with equal seeds
// draw equal splitters for equal inputs.
func WithSeed(seed uint64) Option {
	return func(c *sortConfig) {
		c.seed = seed
	}
}

// WithLocalityGroup pins workers to the CPUs of the given locality group
// (NUMA node) where the platform supports it; best-effort elsewhere.
func WithLocalityGroup(group int) Option {
	return func(c *sortConfig) {
		c.localityGroup = group
	}
}

// WithStats records step counters into s when the sort completes.
func WithStats(s *Stats) Option {
	return func(c *sortConfig) {
		c.stats = s
	}
}
