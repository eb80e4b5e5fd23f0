package metrics

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSample is a point-in-time read of the machine's own resource usage,
// trimmed from the teacher's MetricsCollector to the two figures relevant
// to a capture host (disk/net/process-count track unrelated RMM
// concerns this spec doesn't describe).
type HostSample struct {
	CPUPercent float64 `json:"cpuPercent"`
	RAMPercent float64 `json:"ramPercent"`
	RAMUsedMB  uint64  `json:"ramUsedMb"`
}

// HostSampler collects HostSample readings on demand.
type HostSampler struct{}

// NewHostSampler returns a ready-to-use HostSampler.
func NewHostSampler() *HostSampler {
	return &HostSampler{}
}

// Sample reads current CPU and memory usage. A gopsutil error for one
// metric does not prevent the other from being reported; both default to
// their zero value on failure, matching the teacher's best-effort style.
func (s *HostSampler) Sample() HostSample {
	var sample HostSample

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		sample.CPUPercent = pct[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		sample.RAMPercent = vmem.UsedPercent
		sample.RAMUsedMB = vmem.Used / 1024 / 1024
	}

	return sample
}
