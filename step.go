package strsort

import (
	"fmt"
	"sync/atomic"

	"github.com/abhillman/strsort/internal/jobqueue"
	"github.com/abhillman/strsort/internal/strkey"
)

// bucketIndex constrains the bucket boundary representations: the
// parallel step counts with int, the sequential small-sort shrinks to
// uint32 when the range allows.
type bucketIndex interface {
	~int | ~uint32 | ~uint64
}

// sampleSortStep is one parallel sample-sort level over a range: one
// sampling job, then k counting jobs, then k distribution jobs, each
// phase gated by the pwork counter, followed by recursion into the
// resulting buckets.
type sampleSortStep struct {
	ctx    *sortContext
	parent sortStep

	strptr bundle
	depth  int

	parts int // number of partitions
	psize int // partition size, except the last
	pwork atomic.Int64

	classifier  *classifier
	splitterLCP []uint8

	// per-partition bucket bounds and bucket-id caches; bkt[0] keeps an
	// extra sentinel slot and survives until the LCP pass
	bkt      [][]int
	bktcache [][]uint16

	working atomic.Int64 // substeps still running
}

func newSampleSortStep(ctx *sortContext, parent sortStep, strptr bundle, depth int) *sampleSortStep {
	s := &sampleSortStep{
		ctx:    ctx,
		parent: parent,
		strptr: strptr,
		depth:  depth,
	}
	s.parts = strptr.size() / ctx.sequentialThreshold() * 2
	if s.parts == 0 {
		s.parts = 1
	}
	if s.parts > ctx.cfg.maxParts {
		s.parts = ctx.cfg.maxParts
	}
	s.psize = (strptr.size() + s.parts - 1) / s.parts

	ctx.queue.Enqueue(jobqueue.Func(s.sample))
	ctx.paraSteps.Add(1)
	return s
}

func (s *sampleSortStep) substepAdd() {
	s.working.Add(1)
}

func (s *sampleSortStep) substepNotifyDone() {
	if s.working.Add(-1) == 0 {
		s.substepAllDone()
	}
}

// part returns the index range of partition p.
func (s *sampleSortStep) part(p int) (begin, end int) {
	begin = p * s.psize
	end = begin + s.psize
	if end > s.strptr.size() {
		end = s.strptr.size()
	}
	if end < begin {
		end = begin
	}
	return begin, end
}

// sample draws the splitter samples, builds the classifier, and fans out
// one counting job per partition.
func (s *sampleSortStep) sample() {
	ctx := s.ctx

	samples := ctx.getSampleBuf()
	ctx.drawSamples(s.strptr.active, s.depth, samples)

	s.classifier = newClassifier(ctx.treebits)
	s.splitterLCP = make([]uint8, ctx.numSplitters+1)
	s.classifier.build(samples, s.splitterLCP)
	ctx.putSampleBuf(samples)

	s.bkt = make([][]int, s.parts)
	s.bktcache = make([][]uint16, s.parts)

	s.pwork.Store(int64(s.parts))
	for p := range s.parts {
		ctx.queue.Enqueue(jobqueue.Func(func() { s.count(p) }))
	}
}

// count classifies partition p into its bucket-id cache and histograms it.
func (s *sampleSortStep) count(p int) {
	begin, end := s.part(p)

	bc := make([]uint16, end-begin)
	s.classifier.classify(s.strptr.active, begin, end, bc, s.depth)
	s.bktcache[p] = bc

	size := s.ctx.bktNum
	if p == 0 {
		size++ // sentinel slot appended in distributeFinished
	}
	bkt := make([]int, size)
	for _, b := range bc {
		bkt[b]++
	}
	s.bkt[p] = bkt

	if s.pwork.Add(-1) == 0 {
		s.countFinished()
	}
}

// countFinished turns the per-partition histograms into placement bounds:
// an inclusive prefix sum sweeping buckets in the outer loop and
// partitions in the inner loop, so that bkt[p][i] becomes the exclusive
// upper bound of partition p's slice of bucket i in the shared output.
func (s *sampleSortStep) countFinished() {
	// benchmark mode: measure only the top level
	if s.ctx.cfg.singleStep {
		return
	}

	sum := 0
	for i := 0; i < s.ctx.bktNum; i++ {
		for p := 0; p < s.parts; p++ {
			sum += s.bkt[p][i]
			s.bkt[p][i] = sum
		}
	}
	if sum != s.strptr.size() {
		panic(fmt.Sprintf("strsort: bucket counts sum to %d, range has %d strings", sum, s.strptr.size()))
	}

	s.pwork.Store(int64(s.parts))
	for p := range s.parts {
		s.ctx.queue.Enqueue(jobqueue.Func(func() { s.distribute(p) }))
	}
}

// distribute walks partition p of the active array and places each string
// into the shadow array by decrementing its bucket bound.
func (s *sampleSortStep) distribute(p int) {
	begin, end := s.part(p)

	active, shadow := s.strptr.active, s.strptr.shadow
	bc := s.bktcache[p]
	bkt := s.bkt[p]

	for j := begin; j < end; j++ {
		b := bc[j-begin]
		bkt[b]--
		shadow[bkt[b]] = active[j]
	}

	s.bktcache[p] = nil
	if p != 0 {
		// bkt[0] holds the bucket boundaries needed for recursion
		s.bkt[p] = nil
	}

	if s.pwork.Add(-1) == 0 {
		s.distributeFinished()
	}
}

// distributeFinished recurses into the buckets of the now-flipped range.
// The anonymous substep registered up front keeps the step alive while
// children are being spawned.
func (s *sampleSortStep) distributeFinished() {
	ctx := s.ctx
	bkt := s.bkt[0]
	if bkt[0] != 0 {
		panic("strsort: first bucket does not start at offset 0")
	}
	bkt[ctx.bktNum] = s.strptr.size()

	s.substepAdd()

	i := 0
	for i < ctx.bktNum-1 {
		// even i: less-than bucket, recurse with the splitter LCP credit
		sz := bkt[i+1] - bkt[i]
		if sz == 1 {
			s.strptr.flip(bkt[i], 1).copyBack()
		} else if sz > 1 {
			s.substepAdd()
			ctx.enqueueSort(s, s.strptr.flip(bkt[i], sz),
				s.depth+int(s.splitterLCP[i/2]&0x7F))
		}
		i++

		// odd i: equal bucket
		sz = bkt[i+1] - bkt[i]
		if sz == 1 {
			s.strptr.flip(bkt[i], 1).copyBack()
		} else if sz > 1 {
			if s.splitterLCP[i/2]&0x80 != 0 {
				// NUL-terminated splitter: bucket is fully sorted
				sp := s.strptr.flip(bkt[i], sz).copyBack()
				sp.fillLCP(s.depth + strkey.Depth(s.classifier.splitterAt(i/2)))
			} else {
				s.substepAdd()
				ctx.enqueueSort(s, s.strptr.flip(bkt[i], sz), s.depth+strkey.KeySize)
			}
		}
		i++
	}

	// final greater-bucket recurses with no depth credit
	sz := bkt[i+1] - bkt[i]
	if sz == 1 {
		s.strptr.flip(bkt[i], 1).copyBack()
	} else if sz > 1 {
		s.substepAdd()
		ctx.enqueueSort(s, s.strptr.flip(bkt[i], sz), s.depth)
	}

	if s.strptr.lcp == nil {
		s.bkt[0] = nil
	}

	s.substepNotifyDone()
}

// substepAllDone runs once every recursive child of the step finished:
// child boundaries are final, so the step's own LCP contributions can be
// written, then the parent is notified.
func (s *sampleSortStep) substepAllDone() {
	if s.strptr.lcp != nil {
		sampleSortLCP(s.classifier, s.strptr.original(), s.depth, s.bkt[0], s.ctx.bktNum)
		s.bkt[0] = nil
	}
	if s.parent != nil {
		s.parent.substepNotifyDone()
	}
}

// sampleSortLCP fills the LCP and distinguishing-character entries at the
// bucket boundaries of one completed sample-sort level. Equal-bucket keys
// are taken from the splitters, other boundary keys from the sorted
// output. The left edge of the range (index 0) is the parent's boundary
// and is never written.
func sampleSortLCP[B bucketIndex](c *classifier, strptr bundle, depth int, bkt []B, bktnum int) {
	out := strptr.output()

	// find the first non-empty bucket; it only seeds prevKey
	b := 0
	for b < bktnum && bkt[b] == bkt[b+1] {
		b++
	}
	if b == bktnum {
		return
	}
	var prevKey uint64
	if b%2 == 1 {
		prevKey = c.splitterAt(b / 2)
	} else {
		prevKey = strkey.Extract(out[int(bkt[b+1])-1], depth)
	}

	for b++; b < bktnum; b++ {
		if bkt[b] == bkt[b+1] {
			continue
		}
		if b%2 == 1 {
			// equal bucket: all members carry the splitter key
			thisKey := c.splitterAt(b / 2)
			rlcp := strkey.LCP(prevKey, thisKey)
			strptr.setLCP(int(bkt[b]), depth+rlcp)
			strptr.setCache(int(bkt[b]), strkey.CharAt(thisKey, rlcp))
			prevKey = thisKey
		} else {
			thisKey := strkey.Extract(out[int(bkt[b])], depth)
			rlcp := strkey.LCP(prevKey, thisKey)
			strptr.setLCP(int(bkt[b]), depth+rlcp)
			strptr.setCache(int(bkt[b]), strkey.CharAt(thisKey, rlcp))
			prevKey = strkey.Extract(out[int(bkt[b+1])-1], depth)
		}
	}
}
