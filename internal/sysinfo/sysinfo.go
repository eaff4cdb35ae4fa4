// Package sysinfo collects the host snapshot attached to report metadata.
package sysinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type Info struct {
	Hostname        string `json:"hostname"`
	Platform        string `json:"platform"`
	Architecture    string `json:"architecture"`
	CPUCount        int    `json:"cpu_count"`
	CPUModel        string `json:"cpu_model"`
	MemoryTotal     uint64 `json:"memory_total"`
	MemoryAvailable uint64 `json:"memory_available"`
	DiskTotal       uint64 `json:"disk_total"`
	DiskFree        uint64 `json:"disk_free"`
	GoVersion       string `json:"go_version"`
}

// Collect gathers what it can; individual read failures leave zero values
// rather than failing the snapshot.
func Collect() Info {
	info := Info{
		Architecture: runtime.GOARCH,
		Platform:     runtime.GOOS,
		GoVersion:    runtime.Version(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info.Hostname = hostInfo.Hostname
		info.Platform = hostInfo.Platform
	}
	if count, err := cpu.Counts(true); err == nil {
		info.CPUCount = count
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotal = vmStat.Total
		info.MemoryAvailable = vmStat.Available
	}
	if usage, err := disk.Usage("."); err == nil {
		info.DiskTotal = usage.Total
		info.DiskFree = usage.Free
	}
	return info
}
