package benchmark

import (
	"time"

	"github.com/gkrost/7z/internal/sysinfo"
)

// Operation kinds.
const (
	OpCompress   = "compress"
	OpDecompress = "decompress"
)

// Result is one compression or decompression trial. Created once per
// (file, configuration, iteration) and never mutated afterwards.
type Result struct {
	Format           string        `json:"format_name"`
	Method           string        `json:"method"`
	Level            int           `json:"level"`
	Threads          int           `json:"threads"`
	Operation        string        `json:"operation"`
	FileSize         int64         `json:"file_size"`
	ArchiveSize      int64         `json:"archive_size"`
	CompressionRatio float64       `json:"compression_ratio"`
	Duration         time.Duration `json:"duration"`
	Throughput       float64       `json:"throughput"` // MB/s
	CPUPercent       float64       `json:"cpu_percent"`
	MemoryMB         float64       `json:"memory_mb"`
	Success          bool          `json:"success"`
	Error            string        `json:"error,omitempty"`
}

// GroupKey is the format_method key trials are aggregated under.
func (r Result) GroupKey() string {
	return r.Format + "_" + r.Method
}

// GroupStats are the per-format_method aggregates.
type GroupStats struct {
	AvgThroughput        float64 `json:"avg_throughput"`
	MaxThroughput        float64 `json:"max_throughput"`
	AvgCompressionRatio  float64 `json:"avg_compression_ratio,omitempty"`
	BestCompressionRatio float64 `json:"best_compression_ratio,omitempty"`
	AvgDuration          float64 `json:"avg_duration"` // seconds
	TestCount            int     `json:"test_count"`
}

// RatioWinner identifies the configuration with the smallest ratio.
type RatioWinner struct {
	Format string  `json:"format"`
	Level  int     `json:"level"`
	Ratio  float64 `json:"ratio"`
}

// SpeedWinner identifies the configuration with the highest throughput.
type SpeedWinner struct {
	Format     string  `json:"format"`
	Level      int     `json:"level,omitempty"`
	Throughput float64 `json:"throughput"`
}

// Summary carries the aggregates and the global winners. Winner fields stay
// nil when no trial succeeded.
type Summary struct {
	Compression          map[string]GroupStats `json:"compression"`
	Decompression        map[string]GroupStats `json:"decompression"`
	BestCompressionRatio *RatioWinner          `json:"best_compression_ratio,omitempty"`
	FastestCompression   *SpeedWinner          `json:"fastest_compression,omitempty"`
	FastestDecompression *SpeedWinner          `json:"fastest_decompression,omitempty"`
}

// Metadata describes one benchmark run.
type Metadata struct {
	RunID           string       `json:"run_id"`
	Timestamp       time.Time    `json:"timestamp"`
	ArchiverVersion string       `json:"archiver_version"`
	System          sysinfo.Info `json:"system_info"`
	Iterations      int          `json:"iterations"`
	TimeoutSecs     int          `json:"timeout_seconds"`
}

// Results is the full outcome of one benchmark run.
type Results struct {
	Metadata      Metadata `json:"metadata"`
	Compression   []Result `json:"compression_benchmarks"`
	Decompression []Result `json:"decompression_benchmarks"`
	Summary       Summary  `json:"summary"`
}
