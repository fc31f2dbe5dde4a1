package archive

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CheckResult reports the outcome of a single preflight check.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

const mib = 1 << 20

// CheckSourceAccess verifies that the source directory exists and that the
// archive root can be created inside it.
func CheckSourceAccess(path string) CheckResult {
	const name = "Source access"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return CheckResult{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path can take payload
// bytes and still keep reserveMiB free.
func CheckFreeSpace(path string, payload int64, reserveMiB int) CheckResult {
	const name = "Free space"
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := int64(stat.Bavail) * int64(stat.Bsize)
	need := payload + int64(reserveMiB)*mib
	detail := fmt.Sprintf("%d MiB free, %d MiB needed", free/mib, need/mib)
	if free < need {
		return CheckResult{Name: name, Detail: detail}
	}
	return CheckResult{Name: name, Passed: true, Detail: detail}
}

// Preflight runs the checks that precede an archive job.
func Preflight(source string, payload int64, reserveMiB int) []CheckResult {
	results := []CheckResult{CheckSourceAccess(source)}
	if results[0].Passed {
		results = append(results, CheckFreeSpace(source, payload, reserveMiB))
	}
	return results
}

// payloadSize sums the sizes of the given files, ignoring the ones it cannot
// stat.
func payloadSize(files []string) int64 {
	var total int64
	for _, file := range files {
		if info, err := os.Stat(file); err == nil {
			total += info.Size()
		}
	}
	return total
}
