// Package sysinfo samples host metrics with gopsutil. The system monitor
// component wraps Sample in a command.
package sysinfo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot is one sample of the host.
type Snapshot struct {
	Taken time.Time

	CPUPercent float64
	PerCore    []float64
	CPUModel   string
	Cores      int

	MemPercent float64
	MemUsed    uint64
	MemTotal   uint64

	Load1, Load5, Load15 float64

	DiskPercent float64

	Hostname string
	Platform string
	Uptime   time.Duration
}

// Sampler collects snapshots. The zero value samples "/".
type Sampler struct {
	DiskPath string
}

// NewSampler creates a sampler that reports usage of diskPath.
func NewSampler(diskPath string) *Sampler {
	return &Sampler{DiskPath: diskPath}
}

type cpuResult struct {
	total   float64
	perCore []float64
	model   string
	cores   int
	err     error
}

type memResult struct {
	stat *mem.VirtualMemoryStat
	err  error
}

type loadResult struct {
	avg *load.AvgStat
	err error
}

type diskResult struct {
	usage *disk.UsageStat
	err   error
}

type hostResult struct {
	info *host.InfoStat
	err  error
}

// Sample probes everything concurrently. CPU and memory are required; load,
// disk and host details are filled in when available.
func (s *Sampler) Sample(ctx context.Context) (Snapshot, error) {
	cpuCh := make(chan cpuResult, 1)
	memCh := make(chan memResult, 1)
	loadCh := make(chan loadResult, 1)
	diskCh := make(chan diskResult, 1)
	hostCh := make(chan hostResult, 1)

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		cpuCh <- s.fetchCPU(ctx)
	}()
	go func() {
		defer wg.Done()
		v, err := mem.VirtualMemoryWithContext(ctx)
		memCh <- memResult{stat: v, err: err}
	}()
	go func() {
		defer wg.Done()
		avg, err := load.AvgWithContext(ctx)
		loadCh <- loadResult{avg: avg, err: err}
	}()
	go func() {
		defer wg.Done()
		path := s.DiskPath
		if path == "" {
			path = "/"
		}
		u, err := disk.UsageWithContext(ctx, path)
		diskCh <- diskResult{usage: u, err: err}
	}()
	go func() {
		defer wg.Done()
		info, err := host.InfoWithContext(ctx)
		hostCh <- hostResult{info: info, err: err}
	}()

	wg.Wait()

	cpuRes := <-cpuCh
	memRes := <-memCh
	loadRes := <-loadCh
	diskRes := <-diskCh
	hostRes := <-hostCh

	if cpuRes.err != nil {
		return Snapshot{}, fmt.Errorf("failed to get CPU metrics: %w", cpuRes.err)
	}
	if memRes.err != nil {
		return Snapshot{}, fmt.Errorf("failed to get memory metrics: %w", memRes.err)
	}

	snap := Snapshot{
		Taken:      time.Now(),
		CPUPercent: cpuRes.total,
		PerCore:    cpuRes.perCore,
		CPUModel:   cpuRes.model,
		Cores:      cpuRes.cores,
		MemPercent: memRes.stat.UsedPercent,
		MemUsed:    memRes.stat.Used,
		MemTotal:   memRes.stat.Total,
	}
	if loadRes.err == nil && loadRes.avg != nil {
		snap.Load1, snap.Load5, snap.Load15 = loadRes.avg.Load1, loadRes.avg.Load5, loadRes.avg.Load15
	}
	if diskRes.err == nil && diskRes.usage != nil {
		snap.DiskPercent = diskRes.usage.UsedPercent
	}
	if hostRes.err == nil && hostRes.info != nil {
		snap.Hostname = hostRes.info.Hostname
		snap.Platform = hostRes.info.Platform
		snap.Uptime = time.Duration(hostRes.info.Uptime) * time.Second
	}
	return snap, nil
}

func (s *Sampler) fetchCPU(ctx context.Context) cpuResult {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(total) == 0 {
		return cpuResult{err: fmt.Errorf("failed to get total cpu percent: %w", err)}
	}
	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return cpuResult{err: fmt.Errorf("failed to get per-core cpu percent: %w", err)}
	}

	model := "Unknown"
	if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
		model = info[0].ModelName
	}
	cores, _ := cpu.CountsWithContext(ctx, true)

	return cpuResult{total: total[0], perCore: perCore, model: model, cores: cores}
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
