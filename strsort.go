package strsort

import (
	"fmt"

	strsorterrors "github.com/abhillman/strsort/errors"
	"github.com/abhillman/strsort/internal/strkey"
)

// Sort sorts strings in place into lexicographic byte order, treating the
// first NUL byte (or the end of the slice) as the end of each string.
// A shadow array of equal length is allocated internally.
func Sort(strings [][]byte, opts ...Option) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	return runSort(bundle{
		active: strings,
		shadow: make([][]byte, len(strings)),
	}, cfg)
}

// SortOut sorts strings into out, which doubles as the shadow array; the
// input slice holds scratch data afterwards. len(out) must equal
// len(strings).
func SortOut(strings, out [][]byte, opts ...Option) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	if len(out) != len(strings) {
		return fmt.Errorf("%w: %d != %d", strsorterrors.ErrOutputSizeMismatch, len(out), len(strings))
	}
	return runSort(bundle{
		active:  strings,
		shadow:  out,
		flipped: true,
	}, cfg)
}

// SortLCP sorts strings in place and fills lcp[1:n] with the longest
// common prefix length in bytes of each adjacent output pair. lcp[0] is
// left untouched. len(lcp) must be at least len(strings).
func SortLCP(strings [][]byte, lcp []int, opts ...Option) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	if len(lcp) < len(strings) {
		return fmt.Errorf("%w: %d < %d", strsorterrors.ErrLCPSizeMismatch, len(lcp), len(strings))
	}
	return runSort(bundle{
		active: strings,
		shadow: make([][]byte, len(strings)),
		lcp:    lcp[:len(strings)],
	}, cfg)
}

// SortLCPCacheOut sorts strings into out and fills lcp[1:n] and
// cache[1:n], where cache[i] is the byte at which output[i] first differs
// from output[i-1], i.e. output[i][lcp[i]] (NUL when the two strings are
// equal). lcp[0] and cache[0] are left untouched.
func SortLCPCacheOut(strings, out [][]byte, lcp []int, cache []byte, opts ...Option) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}
	if err := validateAux(strings, out, lcp, cache); err != nil {
		return err
	}
	return runSort(bundle{
		active:  strings,
		shadow:  out,
		lcp:     lcp[:len(strings)],
		cache:   cache[:len(strings)],
		flipped: true,
	}, cfg)
}

// SortNUMA sorts strings into out with lcp and cache arrays, restricting
// the worker loop to the given locality group. Unlike the other entry
// points it also writes the first LCP and cache entries: lcp[0] = 0 and
// cache[0] = the first byte of the smallest string, the convention of
// multi-node sorting pipelines that concatenate per-node results.
func SortNUMA(strings, out [][]byte, lcp []int, cache []byte, group, workers int, opts ...Option) error {
	opts = append(opts, WithLocalityGroup(group), WithWorkers(workers))
	if err := SortLCPCacheOut(strings, out, lcp, cache, opts...); err != nil {
		return err
	}
	if len(out) > 0 {
		lcp[0] = 0
		cache[0] = strkey.ByteAt(out[0], 0)
	}
	return nil
}

func buildConfig(opts []Option) (*sortConfig, error) {
	cfg := defaultSortConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateAux(strings, out [][]byte, lcp []int, cache []byte) error {
	if len(out) != len(strings) {
		return fmt.Errorf("%w: %d != %d", strsorterrors.ErrOutputSizeMismatch, len(out), len(strings))
	}
	if len(lcp) < len(strings) {
		return fmt.Errorf("%w: %d < %d", strsorterrors.ErrLCPSizeMismatch, len(lcp), len(strings))
	}
	if len(cache) < len(strings) {
		return fmt.Errorf("%w: %d < %d", strsorterrors.ErrCacheSizeMismatch, len(cache), len(strings))
	}
	return nil
}

// runSort enqueues the root step and drives the job queue until every
// substep has completed.
func runSort(strptr bundle, cfg *sortConfig) error {
	if strptr.size() == 0 {
		if cfg.stats != nil {
			*cfg.stats = Stats{}
		}
		return nil
	}

	ctx := newSortContext(cfg, strptr.size())
	ctx.enqueueSort(nil, strptr, 0)

	var pin func(worker int)
	if cfg.localityGroup >= 0 {
		group := cfg.localityGroup
		pin = func(int) {
			// best-effort, like the rest of the platform hints
			_ = pinToLocalityGroup(group)
		}
	}
	if err := ctx.queue.Run(ctx.threadNum, pin); err != nil {
		return err
	}

	if cfg.stats != nil {
		*cfg.stats = Stats{
			ParallelSteps:   ctx.paraSteps.Load(),
			SequentialSteps: ctx.seqSteps.Load(),
			MKQSSteps:       ctx.mkqsSteps.Load(),
		}
	}
	return nil
}
