//go:build !windows

package debug

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
)

var errNoProcStatus = errors.New("VmRSS not found in /proc/self/status")

// processRSS reads VmRSS from /proc. Platforms without procfs report an
// error, which the caller logs once.
func processRSS() (uint64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "VmRSS:"))
		if len(fields) == 0 {
			break
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, err
		}
		return kb * 1024, nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, errNoProcStatus
}
