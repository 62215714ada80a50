package strsort

// bundle ties together the active and shadow string arrays of one sort
// range, plus the optional LCP and distinguishing-character arrays aligned
// with the caller-visible output.
//
// The flipped flag records which of the two arrays is caller-visible:
// when false the active array is the output, when true the shadow array
// is. Each out-of-place distribution level flips the roles, so a range is
// "home" again after an even number of levels and needs copyBack after an
// odd number. Neither array is resized during sorting.
type bundle struct {
	active [][]byte
	shadow [][]byte
	lcp    []int
	cache  []byte

	flipped bool
}

func (b bundle) size() int { return len(b.active) }

// output returns the caller-visible array of the range.
func (b bundle) output() [][]byte {
	if b.flipped {
		return b.shadow
	}
	return b.active
}

// sub restricts the bundle to [off, off+n) keeping the current roles.
func (b bundle) sub(off, n int) bundle {
	r := bundle{
		active:  b.active[off : off+n],
		shadow:  b.shadow[off : off+n],
		flipped: b.flipped,
	}
	if b.lcp != nil {
		r.lcp = b.lcp[off : off+n]
	}
	if b.cache != nil {
		r.cache = b.cache[off : off+n]
	}
	return r
}

// flip restricts the bundle to [off, off+n) and swaps the active and
// shadow roles, for descending one distribution level.
func (b bundle) flip(off, n int) bundle {
	r := b.sub(off, n)
	r.active, r.shadow = r.shadow, r.active
	r.flipped = !r.flipped
	return r
}

// copyBack ensures the range's strings reside in the caller-visible array
// and returns the unflipped view. A no-op when already unflipped.
func (b bundle) copyBack() bundle {
	if !b.flipped {
		return b
	}
	copy(b.shadow, b.active)
	return b.original()
}

// original returns the unflipped view of the bundle without moving data.
// Valid for reading output only once the range's strings have been copied
// back.
func (b bundle) original() bundle {
	if !b.flipped {
		return b
	}
	return bundle{
		active:  b.shadow,
		shadow:  b.active,
		lcp:     b.lcp,
		cache:   b.cache,
		flipped: false,
	}
}

func (b bundle) setLCP(i, v int) {
	if b.lcp != nil {
		b.lcp[i] = v
	}
}

func (b bundle) setCache(i int, c byte) {
	if b.cache != nil {
		b.cache[i] = c
	}
}

// fillLCP broadcasts v to every LCP position of the range except index 0,
// and zeroes the matching distinguishing characters: within a run of
// equal strings the first differing byte is the NUL terminator.
func (b bundle) fillLCP(v int) {
	n := b.size()
	if b.lcp != nil {
		for i := 1; i < n; i++ {
			b.lcp[i] = v
		}
	}
	if b.cache != nil {
		for i := 1; i < n; i++ {
			b.cache[i] = 0
		}
	}
}
