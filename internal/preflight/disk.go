package preflight

import (
	"fmt"
	"os"
	"syscall"

	"github.com/dustin/go-humanize"
)

// MinDiskSpaceBytes is the free space below which the destination is
// reported (100MB). Renames need none, but the journal and logs do.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks if there's sufficient disk space at the given path.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	result := CheckResult{
		Name: "disk_space",
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(existingAncestor(path), &stat); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: %s)",
		humanize.IBytes(availableBytes), humanize.IBytes(MinDiskSpaceBytes))

	if availableBytes < MinDiskSpaceBytes {
		result.Status = StatusWarn
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckSameFilesystem reports whether files can be renamed from source to
// destination. Moves across filesystems fail rather than copy.
func (c *Checker) CheckSameFilesystem(source, destination string) CheckResult {
	result := CheckResult{
		Name:     "same_filesystem",
		Required: true,
	}

	src, err := deviceOf(source)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to stat source: %v", err)
		return result
	}
	dst, err := deviceOf(existingAncestor(destination))
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to stat destination: %v", err)
		return result
	}

	if src != dst {
		result.Status = StatusFail
		result.Message = "source and destination are on different filesystems"
		result.Details = "Relocation renames files; pick a destination on the same filesystem as the source"
		return result
	}
	result.Status = StatusPass
	result.Message = "OK"
	return result
}

func deviceOf(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("no device information for %s", path)
	}
	return uint64(st.Dev), nil
}
