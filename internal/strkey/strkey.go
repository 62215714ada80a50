// Package strkey provides the 8-byte key-word primitives used by the
// string sorter.
//
// A key is up to eight consecutive string bytes packed big-endian into a
// uint64, so that unsigned integer comparison of two keys equals
// lexicographic comparison of the underlying bytes. A NUL byte terminates
// the string: bytes at and after the first NUL in the window contribute
// zero, which makes end-of-string sort before any continuation.
package strkey

import "math/bits"

// KeySize is the number of string bytes packed into one key word.
const KeySize = 8

// Extract returns the key word of s at byte offset depth. Reading stops at
// the first NUL byte or at the end of s; the remainder of the word is
// zero-padded.
//
// Callers only extract at a depth all strings of the current bucket share
// as a NUL-free prefix, so the window scan never skips over an earlier
// terminator.
func Extract(s []byte, depth int) uint64 {
	if depth >= len(s) {
		return 0
	}
	s = s[depth:]
	n := len(s)
	if n >= KeySize {
		// Fast path: full window, still has to honor an embedded NUL.
		var k uint64
		for i := 0; i < KeySize; i++ {
			c := s[i]
			if c == 0 {
				return k
			}
			k |= uint64(c) << (56 - 8*i)
		}
		return k
	}
	var k uint64
	for i := 0; i < n; i++ {
		c := s[i]
		if c == 0 {
			break
		}
		k |= uint64(c) << (56 - 8*i)
	}
	return k
}

// LCP returns the number of leading bytes two key words share, at most 8.
func LCP(a, b uint64) int {
	return bits.LeadingZeros64(a^b) / 8
}

// Depth returns the number of bytes in a that precede the terminating NUL,
// i.e. how much of the key window the string actually fills.
func Depth(a uint64) int {
	return KeySize - bits.TrailingZeros64(a)/8
}

// CharAt returns the k-th byte of the key word in big-endian order.
// For k == Depth(a) this is the NUL terminator.
func CharAt(a uint64, k int) byte {
	return byte(a >> (56 - 8*k))
}

// ByteAt returns the byte of s at offset i under NUL-terminated semantics:
// zero at and past the end of the slice.
func ByteAt(s []byte, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

// Compare lexicographically compares a and b starting at byte offset depth,
// treating the first NUL (or the end of the slice) as the end of the
// string. Bytes after an embedded NUL never influence the result.
func Compare(a, b []byte, depth int) int {
	for i := depth; ; i++ {
		ca, cb := ByteAt(a, i), ByteAt(b, i)
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

// CommonPrefix returns the longest common prefix length of a and b in
// bytes, scanning from depth. Both strings must agree on the first depth
// bytes. The first NUL terminates the scan.
func CommonPrefix(a, b []byte, depth int) int {
	l := depth
	for {
		ca := ByteAt(a, l)
		if ca == 0 || ca != ByteAt(b, l) {
			return l
		}
		l++
	}
}
