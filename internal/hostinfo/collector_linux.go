//go:build linux

package hostinfo

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcCollector reads /proc for CPU, memory and process figures and statfs
// for disk usage of DiskPath.
type ProcCollector struct {
	// DiskPath is the filesystem whose usage is reported. Defaults to "/".
	DiskPath string
	// CPUSample is the window over which CPU usage is measured. Defaults to
	// DefaultCPUSample.
	CPUSample time.Duration
}

// DefaultCPUSample is the CPU measurement window used when none is set.
const DefaultCPUSample = 100 * time.Millisecond

// Collect gathers a snapshot. Parts that fail are left empty; the error
// joins every failure.
func (c ProcCollector) Collect(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{CPUCount: runtime.NumCPU()}
	var errs []error

	if pct, err := c.cpuPercent(ctx, fs); err == nil {
		snap.CPUPercent = pct
	} else {
		errs = append(errs, err)
	}

	if mem, err := fs.Meminfo(); err == nil {
		if mem.MemTotal != nil && mem.MemAvailable != nil {
			total := float64(*mem.MemTotal) * 1024
			avail := float64(*mem.MemAvailable) * 1024
			snap.MemoryTotalGB = round2(total / bytesPerGB)
			snap.MemoryAvailableGB = round2(avail / bytesPerGB)
			snap.MemoryPercent = percent(total-avail, total)
		}
	} else {
		errs = append(errs, err)
	}

	if self, err := fs.Self(); err == nil {
		if ps, err := self.Stat(); err == nil {
			snap.ProcessRSSMB = round2(float64(ps.ResidentMemory()) / bytesPerMB)
			snap.ProcessCPUSeconds = ps.CPUTime()
		} else {
			errs = append(errs, err)
		}
	} else {
		errs = append(errs, err)
	}

	path := c.DiskPath
	if path == "" {
		path = "/"
	}
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err == nil {
		bsize := float64(st.Bsize)
		used := float64(st.Blocks-st.Bfree) * bsize
		avail := float64(st.Bavail) * bsize
		snap.DiskFreeGB = round2(avail / bytesPerGB)
		snap.DiskPercent = percent(used, used+avail)
	} else {
		errs = append(errs, err)
	}

	return snap, errors.Join(errs...)
}

// cpuPercent reads /proc/stat twice, CPUSample apart, and returns the busy
// share of that window.
func (c ProcCollector) cpuPercent(ctx context.Context, fs procfs.FS) (float64, error) {
	first, err := fs.Stat()
	if err != nil {
		return 0, err
	}
	window := c.CPUSample
	if window <= 0 {
		window = DefaultCPUSample
	}
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}
	second, err := fs.Stat()
	if err != nil {
		return 0, err
	}
	return busyPercent(first.CPUTotal, second.CPUTotal), nil
}

func busyPercent(prev, cur procfs.CPUStat) float64 {
	idle := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	total := cpuTotal(cur) - cpuTotal(prev)
	if idle < 0 {
		idle = 0
	}
	return percent(total-idle, total)
}

func cpuTotal(s procfs.CPUStat) float64 {
	return s.Idle + s.Iowait + s.User + s.Nice + s.System + s.IRQ + s.SoftIRQ + s.Steal
}
