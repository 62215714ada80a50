package strsort

import (
	"sync/atomic"

	"github.com/abhillman/strsort/internal/strkey"
)

// mkqsFreeMax caps the number of quicksort frames published per
// work-sharing visit to bound the overhead of a single check.
const mkqsFreeMax = 8

// smallsortJob sorts one range sequentially: a recursive sample sort on
// an explicit stack while the range is large, multikey quicksort with an
// 8-byte key cache below that, insertion sort at the bottom. While other
// workers are idle the job publishes the unvisited buckets of its bottom
// stack frames as independent jobs.
//
// The bucket-bound type B is uint32 for ranges that fit 32-bit indices
// and uint64 beyond.
type smallsortJob[B bucketIndex] struct {
	ctx    *sortContext
	parent sortStep

	strptr bundle
	depth  int

	working atomic.Int64

	bktcache []uint16 // bucket-id cache shared by the stack frames
	keycache []uint64 // cached key words for multikey quicksort

	ssPopFront int
	ssStack    []*seqSampleStep[B]
	msPopFront int
	msStack    []*mkqsStep
}

func newSmallsortJob[B bucketIndex](ctx *sortContext, parent sortStep, strptr bundle, depth int) *smallsortJob[B] {
	return &smallsortJob[B]{ctx: ctx, parent: parent, strptr: strptr, depth: depth}
}

func (j *smallsortJob[B]) substepAdd() {
	j.working.Add(1)
}

func (j *smallsortJob[B]) substepNotifyDone() {
	if j.working.Add(-1) == 0 {
		j.substepAllDone()
	}
}

// Run executes the job. The anonymous substep registered here keeps the
// job alive until the inline work is done even when shared-out children
// finish first.
func (j *smallsortJob[B]) Run() {
	j.substepAdd()

	if j.strptr.size() >= j.ctx.cfg.smallsortThreshold {
		j.bktcache = make([]uint16, j.strptr.size())
		j.sortSampleSort(j.strptr, j.depth)
	} else {
		j.sortMKQSCache(j.strptr, j.depth)
	}
	j.bktcache = nil

	j.substepNotifyDone()
}

// substepAllDone fires when the job's own loop and every shared-out child
// have finished. Frames published to other workers still owe their LCP
// boundaries; drain them deepest-first so child LCPs land before parent
// boundaries.
func (j *smallsortJob[B]) substepAllDone() {
	for j.msPopFront > 0 {
		j.msPopFront--
		j.msStack[j.msPopFront].calculateLCP()
	}
	for j.ssPopFront > 0 {
		j.ssPopFront--
		j.ssStack[j.ssPopFront].calculateLCP()
	}
	j.ssStack, j.msStack = nil, nil

	if j.parent != nil {
		j.parent.substepNotifyDone()
	}
}

// ----------------------------------------------------------------------
// sequential sample sort on an explicit stack

// seqSampleStep is one frame of the sequential sample sort: the range has
// been classified and permuted into the shadow array; idx walks its
// buckets.
type seqSampleStep[B bucketIndex] struct {
	strptr bundle
	idx    int
	depth  int

	classifier  *classifier
	splitterLCP []uint8
	bkt         []B // bucket boundaries, bktNum+1 entries
}

// newSeqSampleStep samples, classifies, and permutes one range out of
// place, producing a frame whose buckets are ready to visit.
func newSeqSampleStep[B bucketIndex](ctx *sortContext, strptr bundle, depth int, bktcache []uint16) *seqSampleStep[B] {
	s := &seqSampleStep[B]{strptr: strptr, depth: depth}
	n := strptr.size()

	samples := ctx.getSampleBuf()
	ctx.drawSamples(strptr.active, depth, samples)
	s.classifier = newClassifier(ctx.treebits)
	s.splitterLCP = make([]uint8, ctx.numSplitters+1)
	s.classifier.build(samples, s.splitterLCP)
	ctx.putSampleBuf(samples)

	bc := bktcache[:n]
	s.classifier.classify(strptr.active, 0, n, bc, depth)

	bktsize := make([]B, ctx.bktNum)
	for _, b := range bc {
		bktsize[b]++
	}

	// inclusive prefix sum, then permute by decrement-and-place; bkt ends
	// up holding the bucket start offsets (inclusive lower bounds)
	s.bkt = make([]B, ctx.bktNum+1)
	s.bkt[0] = bktsize[0]
	for i := 1; i < ctx.bktNum; i++ {
		s.bkt[i] = s.bkt[i-1] + bktsize[i]
	}
	s.bkt[ctx.bktNum] = B(n)

	active, shadow := strptr.active, strptr.shadow
	for i := 0; i < n; i++ {
		b := bc[i]
		s.bkt[b]--
		shadow[s.bkt[b]] = active[i]
	}

	ctx.seqSteps.Add(1)
	return s
}

func (s *seqSampleStep[B]) calculateLCP() {
	if s.strptr.lcp != nil {
		sampleSortLCP(s.classifier, s.strptr.original(), s.depth, s.bkt, len(s.bkt)-1)
	}
}

// sortSampleSort runs the stack loop: each iteration visits the next
// bucket of the top frame, recursing into large buckets by pushing a new
// frame and finishing small ones with multikey quicksort.
func (j *smallsortJob[B]) sortSampleSort(strptr bundle, depth int) {
	ctx := j.ctx
	bktnum := ctx.bktNum

	j.ssStack = append(j.ssStack, newSeqSampleStep[B](ctx, strptr, depth, j.bktcache))

	for len(j.ssStack) > j.ssPopFront {
		s := j.ssStack[len(j.ssStack)-1]
		i := s.idx
		s.idx++

		if i < bktnum {
			sz := int(s.bkt[i+1] - s.bkt[i])
			sp := s.strptr.flip(int(s.bkt[i]), sz)

			if i%2 == 0 {
				// less-than bucket
				if sz == 0 {
				} else if sz < ctx.cfg.smallsortThreshold {
					j.sortMKQSCache(sp, s.depth+int(s.splitterLCP[i/2]&0x7F))
				} else {
					j.ssStack = append(j.ssStack, newSeqSampleStep[B](
						ctx, sp, s.depth+int(s.splitterLCP[i/2]&0x7F), j.bktcache))
				}
			} else {
				// equal bucket
				if sz == 0 {
				} else if s.splitterLCP[i/2]&0x80 != 0 {
					// NUL-terminated splitter key: bucket is sorted
					spb := sp.copyBack()
					spb.fillLCP(s.depth + strkey.Depth(s.classifier.splitterAt(i/2)))
				} else if sz < ctx.cfg.smallsortThreshold {
					j.sortMKQSCache(sp, s.depth+strkey.KeySize)
				} else {
					j.ssStack = append(j.ssStack, newSeqSampleStep[B](
						ctx, sp, s.depth+strkey.KeySize, j.bktcache))
				}
			}
		} else {
			// all buckets visited: this level's boundaries are final
			s.calculateLCP()
			j.ssStack = j.ssStack[:len(j.ssStack)-1]
		}

		if ctx.queue.HasIdle() {
			j.freeWork()
		}
	}
}

// freeWork publishes the unvisited buckets of the bottom sample-sort
// frame as independent jobs, keeping the hot top of the stack local.
// With no sample-sort frame left it frees quicksort frames instead.
func (j *smallsortJob[B]) freeWork() {
	if len(j.ssStack) == j.ssPopFront {
		j.mkqsFreeWork()
		return
	}

	s := j.ssStack[j.ssPopFront]
	bktnum := j.ctx.bktNum

	for s.idx < bktnum {
		i := s.idx
		s.idx++

		sz := int(s.bkt[i+1] - s.bkt[i])
		if sz == 0 {
			continue
		}
		sp := s.strptr.flip(int(s.bkt[i]), sz)

		if i%2 == 0 {
			j.substepAdd()
			j.ctx.enqueueSort(j, sp, s.depth+int(s.splitterLCP[i/2]&0x7F))
		} else if s.splitterLCP[i/2]&0x80 != 0 {
			spb := sp.copyBack()
			spb.fillLCP(s.depth + strkey.Depth(s.classifier.splitterAt(i/2)))
		} else {
			j.substepAdd()
			j.ctx.enqueueSort(j, sp, s.depth+strkey.KeySize)
		}
	}

	j.ssPopFront++
}

// ----------------------------------------------------------------------
// multikey quicksort with cached key words

// mkqsStep is one ternary partition frame. The constructor performs the
// whole partition; idx then walks the three parts (1 = less, 2 = equal,
// 3 = greater) before the frame's boundary LCPs are written.
type mkqsStep struct {
	strptr bundle
	cache  []uint64
	depth  int
	idx    int

	numLT, numEQ, numGT int
	eqRecurse           bool

	lcpLT, lcpEQ, lcpGT int
	dcharEQ, dcharGT    byte
}

func med3(cache []uint64, i, j, k int) int {
	if cache[i] == cache[j] {
		return i
	}
	if cache[k] == cache[i] || cache[k] == cache[j] {
		return k
	}
	if cache[i] < cache[j] {
		if cache[j] < cache[k] {
			return j
		}
		if cache[i] < cache[k] {
			return k
		}
		return i
	}
	if cache[j] > cache[k] {
		return j
	}
	if cache[i] < cache[k] {
		return i
	}
	return k
}

func newMKQSStep(ctx *sortContext, strptr bundle, cache []uint64, depth int, cacheDirty bool) *mkqsStep {
	s := &mkqsStep{strptr: strptr, cache: cache, depth: depth}
	n := strptr.size()
	strs := strptr.active

	if cacheDirty {
		for i := range strs {
			cache[i] = strkey.Extract(strs[i], depth)
		}
	}

	// median of 9 over the cached keys
	p := med3(cache,
		med3(cache, 0, n/8, n/4),
		med3(cache, n/2-n/8, n/2, n/2+n/8),
		med3(cache, n-1-n/4, n-1-n/8, n-3))
	strs[0], strs[p] = strs[p], strs[0]
	cache[0], cache[p] = cache[p], cache[0]
	pivot := cache[0]

	// Bentley-McIlroy ternary partition; extremes of the outer parts are
	// tracked for the boundary LCPs
	maxLT, minGT := uint64(0), ^uint64(0)
	swap := func(a, b int) {
		strs[a], strs[b] = strs[b], strs[a]
		cache[a], cache[b] = cache[b], cache[a]
	}

	leq, llt, rgt, req := 1, 1, n-1, n-1
	for {
		for llt <= rgt {
			c := cache[llt]
			if c > pivot {
				if c < minGT {
					minGT = c
				}
				break
			} else if c == pivot {
				swap(leq, llt)
				leq++
			} else if c > maxLT {
				maxLT = c
			}
			llt++
		}
		for llt <= rgt {
			c := cache[rgt]
			if c < pivot {
				if c > maxLT {
					maxLT = c
				}
				break
			} else if c == pivot {
				swap(req, rgt)
				req--
			} else if c < minGT {
				minGT = c
			}
			rgt--
		}
		if llt > rgt {
			break
		}
		swap(llt, rgt)
		llt++
		rgt--
	}

	numLeq, numReq := leq, n-1-req
	s.numEQ = numLeq + numReq
	s.numLT = llt - leq
	s.numGT = req - rgt

	// swing the equal runs from both ends into the middle
	size1 := min(numLeq, s.numLT)
	for i := 0; i < size1; i++ {
		swap(i, llt-size1+i)
	}
	size2 := min(numReq, s.numGT)
	for i := 0; i < size2; i++ {
		swap(llt+i, n-size2+i)
	}

	// a pivot ending in NUL makes the equal part terminal
	s.eqRecurse = pivot&0xFF != 0

	if s.numLT > 0 {
		s.lcpLT = strkey.LCP(maxLT, pivot)
		s.dcharEQ = strkey.CharAt(pivot, s.lcpLT)
	}
	s.lcpEQ = strkey.Depth(pivot)
	if s.numGT > 0 {
		s.lcpGT = strkey.LCP(pivot, minGT)
		s.dcharGT = strkey.CharAt(minGT, s.lcpGT)
	}

	ctx.mkqsSteps.Add(1)
	return s
}

// calculateLCP writes the frame's two boundary entries once all three
// parts are sorted.
func (s *mkqsStep) calculateLCP() {
	orig := s.strptr.original()
	if s.numLT > 0 {
		orig.setLCP(s.numLT, s.depth+s.lcpLT)
		orig.setCache(s.numLT, s.dcharEQ)
	}
	if s.numGT > 0 {
		orig.setLCP(s.numLT+s.numEQ, s.depth+s.lcpGT)
		orig.setCache(s.numLT+s.numEQ, s.dcharGT)
	}
}

// sortMKQSCache sorts one range by multikey quicksort on an explicit
// stack, reusing the job's key cache across frames.
func (j *smallsortJob[B]) sortMKQSCache(strptr bundle, depth int) {
	ctx := j.ctx

	if strptr.size() < ctx.cfg.insertionThreshold {
		insertionSort(strptr.copyBack(), depth)
		return
	}

	if cap(j.keycache) < strptr.size() {
		j.keycache = make([]uint64, strptr.size())
	}
	cache := j.keycache[:strptr.size()]

	j.msStack = append(j.msStack, newMKQSStep(ctx, strptr, cache, depth, true))

	for len(j.msStack) > j.msPopFront {
		ms := j.msStack[len(j.msStack)-1]
		ms.idx++ // increment first, the stack may grow below

		switch ms.idx {
		case 1: // less-than part
			if ms.numLT == 0 {
			} else if ms.numLT < ctx.cfg.insertionThreshold {
				insertionSortCache(ms.strptr.sub(0, ms.numLT), ms.cache[:ms.numLT], ms.depth, false)
			} else {
				j.msStack = append(j.msStack, newMKQSStep(
					ctx, ms.strptr.sub(0, ms.numLT), ms.cache[:ms.numLT], ms.depth, false))
			}

		case 2: // equal part, never empty
			sp := ms.strptr.sub(ms.numLT, ms.numEQ)
			eqCache := ms.cache[ms.numLT : ms.numLT+ms.numEQ]
			if !ms.eqRecurse {
				spb := sp.copyBack()
				spb.fillLCP(ms.depth + ms.lcpEQ)
			} else if ms.numEQ < ctx.cfg.insertionThreshold {
				insertionSortCache(sp, eqCache, ms.depth+strkey.KeySize, true)
			} else {
				j.msStack = append(j.msStack, newMKQSStep(
					ctx, sp, eqCache, ms.depth+strkey.KeySize, true))
			}

		case 3: // greater-than part
			if ms.numGT == 0 {
			} else if ms.numGT < ctx.cfg.insertionThreshold {
				insertionSortCache(ms.strptr.sub(ms.numLT+ms.numEQ, ms.numGT),
					ms.cache[ms.numLT+ms.numEQ:], ms.depth, false)
			} else {
				j.msStack = append(j.msStack, newMKQSStep(
					ctx, ms.strptr.sub(ms.numLT+ms.numEQ, ms.numGT),
					ms.cache[ms.numLT+ms.numEQ:], ms.depth, false))
			}

		default:
			// all three parts sorted
			ms.calculateLCP()
			j.msStack = j.msStack[:len(j.msStack)-1]
		}

		if ctx.queue.HasIdle() {
			j.freeWork()
		}
	}
}

// mkqsFreeWork publishes the untouched parts of up to mkqsFreeMax bottom
// quicksort frames as independent jobs. Published frames stay on the
// stack for their deferred boundary LCPs but are no longer iterated.
func (j *smallsortJob[B]) mkqsFreeWork() {
	for range mkqsFreeMax {
		if len(j.msStack) == j.msPopFront {
			return
		}
		ms := j.msStack[j.msPopFront]

		if ms.idx == 0 && ms.numLT != 0 {
			j.substepAdd()
			j.ctx.enqueueSort(j, ms.strptr.sub(0, ms.numLT), ms.depth)
		}
		if ms.idx <= 1 {
			sp := ms.strptr.sub(ms.numLT, ms.numEQ)
			if ms.eqRecurse {
				j.substepAdd()
				j.ctx.enqueueSort(j, sp, ms.depth+strkey.KeySize)
			} else {
				spb := sp.copyBack()
				spb.fillLCP(ms.depth + ms.lcpEQ)
			}
		}
		if ms.idx <= 2 && ms.numGT != 0 {
			j.substepAdd()
			j.ctx.enqueueSort(j, ms.strptr.sub(ms.numLT+ms.numEQ, ms.numGT), ms.depth)
		}

		j.msPopFront++
	}
}

// ----------------------------------------------------------------------
// insertion sorts

// insertionSort sorts a small unflipped range by byte comparison from
// depth, then fills the adjacent LCP and distinguishing-character
// entries. Index 0 of the range belongs to the enclosing boundary.
func insertionSort(strptr bundle, depth int) {
	sp := strptr.copyBack()
	out := sp.output()
	n := len(out)
	if n <= 1 {
		return
	}

	for i := 1; i < n; i++ {
		tmp := out[i]
		p := i
		for p > 0 && strkey.Compare(out[p-1], tmp, depth) > 0 {
			out[p] = out[p-1]
			p--
		}
		out[p] = tmp
	}

	if sp.lcp == nil && sp.cache == nil {
		return
	}
	for i := 1; i < n; i++ {
		l := strkey.CommonPrefix(out[i-1], out[i], depth)
		sp.setLCP(i, l)
		sp.setCache(i, strkey.ByteAt(out[i], l))
	}
}

// insertionSortCache sorts a small range by its cached key words,
// permuting strings alongside, then walks the runs of equal keys: run
// boundaries get their LCP from the key pair, runs continuing past the
// key window recurse byte-wise, NUL-terminated runs are complete.
// With a dirty cache the plain byte-wise sort is used directly.
func insertionSortCache(strptr bundle, cache []uint64, depth int, cacheDirty bool) {
	sp := strptr.copyBack()
	n := sp.size()
	if n <= 1 {
		return
	}
	if cacheDirty {
		insertionSort(sp, depth)
		return
	}

	out := sp.output()
	for i := 1; i < n; i++ {
		tmps, tmpc := out[i], cache[i]
		p := i
		for p > 0 && cache[p-1] > tmpc {
			out[p] = out[p-1]
			cache[p] = cache[p-1]
			p--
		}
		out[p] = tmps
		cache[p] = tmpc
	}

	flushRun := func(start, size int) {
		if start != 0 {
			rlcp := strkey.LCP(cache[start-1], cache[start])
			sp.setLCP(start, depth+rlcp)
			sp.setCache(start, strkey.CharAt(cache[start], rlcp))
		}
		if size > 1 {
			if cache[start]&0xFF != 0 {
				// run continues past the key window
				insertionSort(sp.sub(start, size), depth+strkey.KeySize)
			} else {
				sp.sub(start, size).fillLCP(depth + strkey.Depth(cache[start]))
			}
		}
	}

	start, size := 0, 1
	for i := 0; i+1 < n; i++ {
		if cache[i] == cache[i+1] {
			size++
			continue
		}
		flushRun(start, size)
		start, size = i+1, 1
	}
	flushRun(start, size)
}
