package profiler

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/gkrost/7z/pkg/logging"
)

const (
	// DefaultSampleInterval is how often the sampler observes the process.
	DefaultSampleInterval = 100 * time.Millisecond

	// stopJoinTimeout bounds the wait for the sampling goroutine on Stop.
	stopJoinTimeout = time.Second
)

// Sample is one resource observation taken while a command runs.
type Sample struct {
	Elapsed             time.Duration `json:"elapsed"`
	CPUPercent          float64       `json:"cpu_percent"`
	MemoryMB            float64       `json:"memory_mb"`
	SystemCPUPercent    float64       `json:"system_cpu_percent"`
	SystemMemoryPercent float64       `json:"system_memory_percent"`
	Threads             int32         `json:"threads"`
}

// ProfileResult summarizes one monitoring session. Duration is overwritten
// by the executor with the measured wall-clock span of the command.
type ProfileResult struct {
	Duration     time.Duration `json:"duration"`
	CPUPercent   float64       `json:"cpu_percent"`
	MemoryMB     float64       `json:"memory_mb"`
	PeakMemoryMB float64       `json:"peak_memory_mb"`
	Samples      []Sample      `json:"samples"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

// Sampler periodically records CPU and memory usage of this process while
// some other operation (normally a subprocess wait) runs concurrently.
// Start must not be called again before Stop returns.
type Sampler struct {
	interval time.Duration
	proc     *process.Process
	logger   logging.Logger

	mu         sync.Mutex
	samples    []Sample
	peakMemory float64

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSampler observes the calling process. Sampling by PID of the child is
// deliberately not attempted; in the tight parent/child setup the parent's
// footprint tracks the overall load closely enough for comparison.
func NewSampler(logger logging.Logger, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// Own PID always exists; keep proc nil and let reads degrade to zero.
		logger.Warnf("sampler: cannot open own process handle: %v", err)
	}
	return &Sampler{
		interval: interval,
		proc:     proc,
		logger:   logger,
	}
}

// Start begins periodic sampling in a background goroutine and resets any
// previously collected samples and the peak-memory tracker.
func (s *Sampler) Start() {
	s.mu.Lock()
	s.samples = nil
	s.peakMemory = 0
	s.mu.Unlock()

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(s.stopCh, s.doneCh)
}

// Stop signals the sampling goroutine, waits for it (bounded) and computes
// summary statistics. Zero collected samples produce a failed result rather
// than a division by zero.
func (s *Sampler) Stop() ProfileResult {
	if s.stopCh != nil {
		close(s.stopCh)
		select {
		case <-s.doneCh:
		case <-time.After(stopJoinTimeout):
			s.logger.Warn("sampler: goroutine did not stop within join timeout")
		}
		s.stopCh = nil
	}

	s.mu.Lock()
	samples := make([]Sample, len(s.samples))
	copy(samples, s.samples)
	peak := s.peakMemory
	s.mu.Unlock()

	if len(samples) == 0 {
		return ProfileResult{
			Success: false,
			Error:   "no samples collected",
		}
	}

	var cpuSum, memSum float64
	for _, sample := range samples {
		cpuSum += sample.CPUPercent
		memSum += sample.MemoryMB
	}

	return ProfileResult{
		Duration:     samples[len(samples)-1].Elapsed - samples[0].Elapsed,
		CPUPercent:   cpuSum / float64(len(samples)),
		MemoryMB:     memSum / float64(len(samples)),
		PeakMemoryMB: peak,
		Samples:      samples,
		Success:      true,
	}
}

// SystemSnapshot is a one-off view of host load, taken before or after a
// profiled run rather than during it.
type SystemSnapshot struct {
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	MemoryAvailableMB float64 `json:"memory_available_mb"`
}

// Snapshot reads current host CPU and memory load. Failed reads leave the
// corresponding field at zero.
func Snapshot() SystemSnapshot {
	var snap SystemSnapshot
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		snap.CPUPercent = sysCPU[0]
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vmStat.UsedPercent
		snap.MemoryAvailableMB = float64(vmStat.Available) / (1024 * 1024)
	}
	return snap
}

func (s *Sampler) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	start := time.Now()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.record(time.Since(start))
		}
	}
}

// record takes one sample. Each metric read failure degrades to zero for
// that metric only; partial data beats no data.
func (s *Sampler) record(elapsed time.Duration) {
	sample := Sample{Elapsed: elapsed}

	if s.proc != nil {
		if cpuPercent, err := s.proc.CPUPercent(); err == nil {
			sample.CPUPercent = cpuPercent
		}
		if memInfo, err := s.proc.MemoryInfo(); err == nil && memInfo != nil {
			sample.MemoryMB = float64(memInfo.RSS) / (1024 * 1024)
		}
		if threads, err := s.proc.NumThreads(); err == nil {
			sample.Threads = threads
		}
	}

	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		sample.SystemCPUPercent = sysCPU[0]
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		sample.SystemMemoryPercent = vmStat.UsedPercent
	}

	s.mu.Lock()
	if sample.MemoryMB > s.peakMemory {
		s.peakMemory = sample.MemoryMB
	}
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
}
