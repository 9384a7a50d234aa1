package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the minimum file descriptor limit for recursive
// watching, where every directory holds a watch.
const MinFileDescriptors = 1024

// CheckFileDescriptors checks if the file descriptor limit is sufficient.
// The limit only matters when watching recursively.
func (c *Checker) CheckFileDescriptors(recursive bool) CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: recursive,
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	currentLimit := rLimit.Cur
	result.Message = fmt.Sprintf("%d (minimum: %d)", currentLimit, MinFileDescriptors)

	if currentLimit < MinFileDescriptors {
		result.Status = StatusWarn
		if recursive {
			result.Status = StatusFail
		}
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
		return result
	}

	result.Status = StatusPass
	return result
}
