package strsort

import (
	"math/bits"

	"github.com/abhillman/strsort/internal/strkey"
)

// classifier holds the splitter tree of one sample-sort step.
//
// The tree is stored implicitly in an array indexed from 1 with children
// at 2i and 2i+1, in the usual Eytzinger layout; node values are the
// 8-byte splitter keys. The tree size is fixed per sorter configuration
// so that tree plus bucket counters fit the classifier cache budget.
//
// Classification maps a key to one of 2·ns+1 buckets: bucket 2r is
// "less than splitter r" (strictly between splitters r-1 and r), bucket
// 2r+1 is "equal to splitter r", bucket 2·ns is "greater than the last
// splitter".
type classifier struct {
	treebits int
	ns       int // number of splitters, 2^treebits - 1

	tree     []uint64 // implicit tree, index 0 unused
	splitter []uint64 // splitters in ascending (in-order) sequence
}

func newClassifier(treebits int) *classifier {
	ns := 1<<treebits - 1
	return &classifier{
		treebits: treebits,
		ns:       ns,
		tree:     make([]uint64, ns+1),
		splitter: make([]uint64, ns),
	}
}

// build selects the splitters from 2·ns sorted sample keys, fills the
// implicit tree, and records one LCP byte per splitter in splitterLCP
// (length ns+1): the low 7 bits hold the common prefix with the previous
// splitter in bytes, the high bit is set when the splitter key ends at a
// NUL terminator, meaning its equal-bucket needs no deeper sorting.
//
// splitterLCP[0] keeps only the terminal flag; splitterLCP[ns] is zero so
// the final greater-bucket recurses with no depth credit.
func (c *classifier) build(samples []uint64, splitterLCP []uint8) {
	for r := range c.splitter {
		c.splitter[r] = samples[2*r+1]
	}
	c.fillTree(1, 0, c.ns)

	prev := uint64(0)
	for r, s := range c.splitter {
		lcp := uint8(strkey.LCP(prev, s)) & 0x7F
		if s&0xFF == 0 {
			lcp |= 0x80
		}
		splitterLCP[r] = lcp
		prev = s
	}
	splitterLCP[0] &= 0x80
	splitterLCP[c.ns] = 0
}

// fillTree writes splitter[lo:hi) into the subtree rooted at node by
// in-order recursion. hi-lo is always 2^k - 1, so the tree is perfect.
func (c *classifier) fillTree(node, lo, hi int) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	c.tree[node] = c.splitter[mid]
	c.fillTree(2*node, lo, mid)
	c.fillTree(2*node+1, mid+1, hi)
}

// splitterAt returns the r-th splitter in ascending order.
func (c *classifier) splitterAt(r int) uint64 {
	return c.splitter[r]
}

// classify writes the bucket index of strings[begin:end] at the given
// depth into out[0:end-begin].
func (c *classifier) classify(strings [][]byte, begin, end int, out []uint16, depth int) {
	for i := begin; i < end; i++ {
		out[i-begin] = c.classifyKey(strkey.Extract(strings[i], depth))
	}
}

// classifyKey descends the tree with an equality branch: a hit at any
// node, internal or leaf, terminates in that splitter's equal-bucket.
// Falling off the bottom lands in the even bucket counting the splitters
// smaller than the key.
func (c *classifier) classifyKey(key uint64) uint16 {
	i := 1
	for i <= c.ns {
		s := c.tree[i]
		if key == s {
			return uint16(2*c.inorderOf(i) + 1)
		}
		if key < s {
			i = 2 * i
		} else {
			i = 2*i + 1
		}
	}
	return uint16(2 * (i - c.ns - 1))
}

// inorderOf maps a tree node to the in-order rank of the splitter it
// stores, a fixed bit-shuffle for a perfect array-stored tree.
func (c *classifier) inorderOf(i int) int {
	level := bits.Len(uint(i)) - 1
	return (2*(i-1<<level)+1)<<(c.treebits-1-level) - 1
}
