//go:build linux

package strsort

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	strsorterrors "github.com/abhillman/strsort/errors"
)

// pinToLocalityGroup pins the calling OS thread to the CPUs of the given
// NUMA node, resolved from the kernel's cpulist. The caller must hold
// the thread via runtime.LockOSThread.
func pinToLocalityGroup(group int) error {
	path := fmt.Sprintf("/sys/devices/system/node/node%d/cpulist", group)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: node %d", strsorterrors.ErrNoSuchLocalityGroup, group)
	}
	set, err := parseCPUList(strings.TrimSpace(string(data)))
	if err != nil {
		return err
	}
	return unix.SchedSetaffinity(0, set)
}

// parseCPUList parses the kernel cpulist format, e.g. "0-3,8,10-11".
func parseCPUList(list string) (*unix.CPUSet, error) {
	var set unix.CPUSet
	for part := range strings.SplitSeq(list, ",") {
		lo, hi, ok := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("strsort: malformed cpulist %q: %w", list, err)
		}
		last := first
		if ok {
			last, err = strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("strsort: malformed cpulist %q: %w", list, err)
			}
		}
		for cpu := first; cpu <= last; cpu++ {
			set.Set(cpu)
		}
	}
	return &set, nil
}
