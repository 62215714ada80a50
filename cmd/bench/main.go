// Bench measures sorting throughput of the strsort library and verifies
// the output order and LCP array of every run.
//
// Usage:
//
//	go run ./cmd/bench -n 10000000 -workers 8 -lcp
//	go run ./cmd/bench -input corpus.txt -workers 1,2,4,8
//
// Flags:
//
//	-input     Newline-delimited corpus file, memory-mapped (default: none)
//	-n         Number of generated strings when no input file (default: 10,000,000)
//	-len       Generated string length (default: 20)
//	-workers   Comma-separated worker counts to benchmark (default: GOMAXPROCS)
//	-lcp       Also compute and verify the LCP array (default: false)
//	-runs      Repetitions per worker count (default: 3)
//	-seed      Corpus generator seed (default: 1)
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/spaolacci/murmur3"

	"github.com/abhillman/strsort"
)

// getMaxRSS returns the maximum resident set size in bytes.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024 // Linux reports KB
	}
	return maxRSS
}

func main() {
	inputFlag := flag.String("input", "", "newline-delimited corpus file")
	nFlag := flag.Int("n", 10_000_000, "number of generated strings")
	lenFlag := flag.Int("len", 20, "generated string length")
	workersFlag := flag.String("workers", strconv.Itoa(runtime.GOMAXPROCS(0)), "comma-separated worker counts")
	lcpFlag := flag.Bool("lcp", false, "also compute and verify LCPs")
	runsFlag := flag.Int("runs", 3, "repetitions per worker count")
	seedFlag := flag.Uint("seed", 1, "corpus generator seed")
	flag.Parse()

	var corpus [][]byte
	var mapped mmap.MMap
	if *inputFlag != "" {
		var err error
		corpus, mapped, err = loadCorpus(*inputFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bench: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = mapped.Unmap() }()
		fmt.Printf("Loaded %d strings from %s\n", len(corpus), *inputFlag)
	} else {
		fmt.Printf("Generating %d strings of length %d...\n", *nFlag, *lenFlag)
		corpus = generateCorpus(*nFlag, *lenFlag, uint32(*seedFlag))
	}

	workerCounts, err := parseWorkers(*workersFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(1)
	}

	var totalBytes uint64
	for _, s := range corpus {
		totalBytes += uint64(len(s))
	}

	var baseline uint64
	for _, workers := range workerCounts {
		for run := 0; run < *runsFlag; run++ {
			work := make([][]byte, len(corpus))
			copy(work, corpus)

			var lcp []int
			start := time.Now()
			if *lcpFlag {
				lcp = make([]int, len(work))
				err = strsort.SortLCP(work, lcp, strsort.WithWorkers(workers))
			} else {
				err = strsort.Sort(work, strsort.WithWorkers(workers))
			}
			elapsed := time.Since(start)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bench: sort failed: %v\n", err)
				os.Exit(1)
			}

			sum := verify(work, lcp)
			if baseline == 0 {
				baseline = sum
			} else if sum != baseline {
				fmt.Fprintf(os.Stderr, "bench: output checksum %016x differs from baseline %016x\n", sum, baseline)
				os.Exit(1)
			}

			fmt.Printf("workers=%-3d run=%d  %10.3fs  %8.2f MB/s  %8.2f Mstr/s  checksum=%016x\n",
				workers, run, elapsed.Seconds(),
				float64(totalBytes)/elapsed.Seconds()/1e6,
				float64(len(work))/elapsed.Seconds()/1e6,
				sum)
		}
	}

	fmt.Printf("Peak RSS: %.1f MB\n", float64(getMaxRSS())/1e6)
}

// loadCorpus memory-maps the file and slices it on newlines. The string
// slices alias the mapping, so it must stay mapped while sorting.
func loadCorpus(path string) ([][]byte, mmap.MMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	var corpus [][]byte
	rest := []byte(m)
	for len(rest) > 0 {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			corpus = append(corpus, rest)
			break
		}
		corpus = append(corpus, rest[:nl])
		rest = rest[nl+1:]
	}
	return corpus, m, nil
}

// generateCorpus builds n random lowercase strings from murmur3 rounds.
func generateCorpus(n, length int, seed uint32) [][]byte {
	buf := make([]byte, 0, n*length)
	var round [8]byte
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(round[:], uint64(i))
		remaining := length
		for remaining > 0 {
			h1, h2 := murmur3.Sum128WithSeed(round[:], seed+uint32(remaining))
			for _, h := range [2]uint64{h1, h2} {
				for b := 0; b < 8 && remaining > 0; b++ {
					buf = append(buf, 'a'+byte(h>>(8*b))%26)
					remaining--
				}
			}
		}
	}
	corpus := make([][]byte, n)
	for i := range corpus {
		corpus[i] = buf[i*length : (i+1)*length]
	}
	return corpus
}

func parseWorkers(spec string) ([]int, error) {
	var counts []int
	for part := range strings.SplitSeq(spec, ",") {
		w, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || w < 1 {
			return nil, fmt.Errorf("bad worker count %q", part)
		}
		counts = append(counts, w)
	}
	return counts, nil
}

// verify checks sortedness (and the LCP array when present) and returns
// an order-dependent checksum of the output.
func verify(sorted [][]byte, lcp []int) uint64 {
	h := xxhash.New()
	var sep [1]byte
	for i, s := range sorted {
		if i > 0 {
			if bytes.Compare(sorted[i-1], s) > 0 {
				fmt.Fprintf(os.Stderr, "bench: output not sorted at index %d\n", i)
				os.Exit(1)
			}
			if lcp != nil {
				want := commonPrefix(sorted[i-1], s)
				if lcp[i] != want {
					fmt.Fprintf(os.Stderr, "bench: lcp[%d] = %d, want %d\n", i, lcp[i], want)
					os.Exit(1)
				}
			}
		}
		_, _ = h.Write(s)
		_, _ = h.Write(sep[:])
	}
	return h.Sum64()
}

func commonPrefix(a, b []byte) int {
	l := 0
	for l < len(a) && l < len(b) && a[l] == b[l] && a[l] != 0 {
		l++
	}
	return l
}
