package strsort

import (
	"encoding/binary"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/abhillman/strsort/internal/jobqueue"
	"github.com/abhillman/strsort/internal/strkey"
)

// oversampleFactor is the number of sample keys drawn per splitter.
const oversampleFactor = 2

// sortContext carries the global state of one sort root: configuration,
// the job queue, the classifier geometry, and the step counters.
type sortContext struct {
	cfg       *sortConfig
	totalSize int
	threadNum int
	queue     *jobqueue.Queue

	// classifier geometry, fixed for the whole sort
	treebits     int
	numSplitters int
	bktNum       int // 2*numSplitters + 1
	sampleSize   int // oversampleFactor * numSplitters

	samplePool sync.Pool // *[]uint64 sample buffers of sampleSize

	paraSteps atomic.Uint64
	seqSteps  atomic.Uint64
	mkqsSteps atomic.Uint64
}

func newSortContext(cfg *sortConfig, totalSize int) *sortContext {
	ctx := &sortContext{
		cfg:       cfg,
		totalSize: totalSize,
		threadNum: cfg.workers,
		queue:     jobqueue.New(),
	}
	ctx.treebits = treebitsForCache(cfg.classifierCache)
	ctx.numSplitters = 1<<ctx.treebits - 1
	ctx.bktNum = 2*ctx.numSplitters + 1
	ctx.sampleSize = oversampleFactor * ctx.numSplitters
	ctx.samplePool.New = func() any {
		s := make([]uint64, ctx.sampleSize)
		return &s
	}
	return ctx
}

// sequentialThreshold returns the range size above which a range is worth
// another parallel sample-sort step.
func (ctx *sortContext) sequentialThreshold() int {
	t := ctx.totalSize / ctx.threadNum
	if t < ctx.cfg.smallsortThreshold {
		t = ctx.cfg.smallsortThreshold
	}
	return t
}

// stepSeed derives the sampler seed of one step from the configured seed
// and the step's range size and depth, keeping splitter selection
// reproducible for a fixed configuration.
func (ctx *sortContext) stepSeed(n, depth int) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(depth))
	return xxh3.HashSeed(buf[:], ctx.cfg.seed)
}

// lcgRandom is the splitter sampler's linear congruential generator.
type lcgRandom uint64

func (r *lcgRandom) next() uint64 {
	*r = *r*0x27BB2EE687B0B0FD + 0xB504F32D
	return uint64(*r)
}

// drawSamples fills samples with keys of randomly drawn strings at the
// given depth and sorts them ascending.
func (ctx *sortContext) drawSamples(strings [][]byte, depth int, samples []uint64) {
	rng := lcgRandom(ctx.stepSeed(len(strings), depth))
	n := uint64(len(strings))
	for i := range samples {
		samples[i] = strkey.Extract(strings[rng.next()%n], depth)
	}
	slices.Sort(samples)
}

func (ctx *sortContext) getSampleBuf() []uint64 {
	return *ctx.samplePool.Get().(*[]uint64)
}

func (ctx *sortContext) putSampleBuf(s []uint64) {
	ctx.samplePool.Put(&s)
}

// sortStep is a node of the dynamic job tree. A step registers one
// substep per dependent job before spawning it; the worker performing the
// decrement to zero runs the step's completion.
type sortStep interface {
	substepAdd()
	substepNotifyDone()
}

// enqueueSort routes a range either to a new parallel sample-sort step or
// to a sequential small-sort job, choosing the bucket counter width by
// range size. parent may be nil for the root range.
func (ctx *sortContext) enqueueSort(parent sortStep, strptr bundle, depth int) {
	if strptr.size() > ctx.sequentialThreshold() || ctx.cfg.singleStep {
		newSampleSortStep(ctx, parent, strptr, depth)
	} else if uint64(strptr.size()) < 1<<32 {
		ctx.queue.Enqueue(newSmallsortJob[uint32](ctx, parent, strptr, depth))
	} else {
		ctx.queue.Enqueue(newSmallsortJob[uint64](ctx, parent, strptr, depth))
	}
}
