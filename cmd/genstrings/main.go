// Genstrings generates newline-delimited string corpora for benchmarking
// and testing the sorter.
//
// Usage:
//
//	go run ./cmd/genstrings -n 1000000 -mode random -len 20 -out corpus.txt
//
// Flags:
//
//	-n     Number of strings (default: 1,000,000)
//	-mode  Corpus shape: random, prefix, or decimal (default: random)
//	-len   String length in bytes for random/prefix modes (default: 20)
//	-seed  Generator seed (default: 1)
//	-out   Output file, "-" for stdout (default: "-")
//
// Modes:
//
//	random   uniformly random lowercase strings
//	prefix   random strings sharing one of a handful of 8-byte prefixes
//	decimal  the ASCII decimal of each index, zero-padded to 12 digits
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/spaolacci/murmur3"
)

const prefixClasses = 5

func main() {
	nFlag := flag.Int("n", 1_000_000, "number of strings")
	modeFlag := flag.String("mode", "random", "corpus shape: random, prefix, or decimal")
	lenFlag := flag.Int("len", 20, "string length in bytes")
	seedFlag := flag.Uint("seed", 1, "generator seed")
	outFlag := flag.String("out", "-", "output file, - for stdout")
	flag.Parse()

	out := os.Stdout
	if *outFlag != "-" {
		f, err := os.Create(*outFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "genstrings: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriterSize(out, 1<<20)
	seed := uint32(*seedFlag)

	var counter [8]byte
	line := make([]byte, 0, *lenFlag+1)
	for i := 0; i < *nFlag; i++ {
		line = line[:0]
		binary.LittleEndian.PutUint64(counter[:], uint64(i))

		switch *modeFlag {
		case "random":
			line = appendRandom(line, counter[:], seed, *lenFlag)
		case "prefix":
			// a few distinct 8-byte prefixes force deep equal-buckets
			class := byte(uint(i*2654435761) % prefixClasses)
			for range 8 {
				line = append(line, 'p'+class)
			}
			line = appendRandom(line, counter[:], seed, *lenFlag-8)
		case "decimal":
			line = fmt.Appendf(line, "%012d", i)
		default:
			fmt.Fprintf(os.Stderr, "genstrings: unknown mode %q\n", *modeFlag)
			os.Exit(1)
		}

		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			fmt.Fprintf(os.Stderr, "genstrings: %v\n", err)
			os.Exit(1)
		}
	}

	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "genstrings: %v\n", err)
		os.Exit(1)
	}
}

// appendRandom appends length lowercase bytes derived from hashing the
// counter, one hash byte per output byte and sixteen per murmur3 round.
func appendRandom(dst, counter []byte, seed uint32, length int) []byte {
	var round [12]byte
	copy(round[:8], counter)
	for length > 0 {
		binary.LittleEndian.PutUint32(round[8:], uint32(length))
		h1, h2 := murmur3.Sum128WithSeed(round[:], seed)
		for _, h := range [2]uint64{h1, h2} {
			for b := 0; b < 8 && length > 0; b++ {
				dst = append(dst, 'a'+byte(h>>(8*b))%26)
				length--
			}
		}
	}
	return dst
}
