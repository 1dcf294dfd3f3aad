package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a snapshot of host resource usage.
type Stats struct {
	OS          string
	CPUPercent  float64
	MemPercent  float64
	MemUsed     uint64
	MemTotal    uint64
	DiskPercent float64
	DiskUsed    uint64
	DiskTotal   uint64
}

// SystemInfo reports host statistics.
type SystemInfo interface {
	Stats(ctx context.Context) (Stats, error)
}

// HostInfo reads statistics of the machine the server runs on.
type HostInfo struct {
	// CPUSample is how long CPU usage is measured; zero means 500ms.
	CPUSample time.Duration
	// DiskPath defaults to "/".
	DiskPath string
}

func (h HostInfo) Stats(ctx context.Context) (Stats, error) {
	sample := h.CPUSample
	if sample <= 0 {
		sample = 500 * time.Millisecond
	}
	path := h.DiskPath
	if path == "" {
		path = "/"
	}

	var st Stats

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return st, fmt.Errorf("host info: %w", err)
	}
	st.OS = info.OS
	if info.Platform != "" {
		st.OS = fmt.Sprintf("%s %s %s", info.OS, info.Platform, info.PlatformVersion)
	}

	pct, err := cpu.PercentWithContext(ctx, sample, false)
	if err != nil {
		return st, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pct) > 0 {
		st.CPUPercent = pct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return st, fmt.Errorf("virtual memory: %w", err)
	}
	st.MemPercent, st.MemUsed, st.MemTotal = vm.UsedPercent, vm.Used, vm.Total

	du, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return st, fmt.Errorf("disk usage %s: %w", path, err)
	}
	st.DiskPercent, st.DiskUsed, st.DiskTotal = du.UsedPercent, du.Used, du.Total

	return st, nil
}
