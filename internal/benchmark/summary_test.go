package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compTrial(format, method string, level int, ratio, throughput float64, ok bool) Result {
	return Result{
		Format:           format,
		Method:           method,
		Level:            level,
		Threads:          1,
		Operation:        OpCompress,
		CompressionRatio: ratio,
		Throughput:       throughput,
		Duration:         2 * time.Second,
		Success:          ok,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, nil)
	assert.Empty(t, summary.Compression)
	assert.Empty(t, summary.Decompression)
	assert.Nil(t, summary.BestCompressionRatio)
	assert.Nil(t, summary.FastestCompression)
	assert.Nil(t, summary.FastestDecompression)
}

func TestSummarizeIgnoresFailedTrials(t *testing.T) {
	trials := []Result{
		compTrial("7z", "lzma2", 5, 0.5, 40, true),
		compTrial("7z", "lzma2", 5, 0, 0, false),
	}
	summary := Summarize(trials, nil)

	require.Contains(t, summary.Compression, "7z_lzma2")
	assert.Equal(t, 1, summary.Compression["7z_lzma2"].TestCount)
}

func TestSummarizeGroupStats(t *testing.T) {
	trials := []Result{
		compTrial("7z", "lzma2", 5, 0.5, 40, true),
		compTrial("7z", "lzma2", 9, 0.3, 20, true),
		compTrial("zip", "deflate", 6, 0.7, 80, true),
	}
	summary := Summarize(trials, nil)

	stats := summary.Compression["7z_lzma2"]
	assert.Equal(t, 2, stats.TestCount)
	assert.InDelta(t, 30.0, stats.AvgThroughput, 0.001)
	assert.InDelta(t, 40.0, stats.MaxThroughput, 0.001)
	assert.InDelta(t, 0.4, stats.AvgCompressionRatio, 0.001)
	assert.InDelta(t, 0.3, stats.BestCompressionRatio, 0.001)
	assert.InDelta(t, 2.0, stats.AvgDuration, 0.001)

	require.NotNil(t, summary.BestCompressionRatio)
	assert.Equal(t, "7z_lzma2", summary.BestCompressionRatio.Format)
	assert.Equal(t, 9, summary.BestCompressionRatio.Level)
	assert.InDelta(t, 0.3, summary.BestCompressionRatio.Ratio, 0.001)

	require.NotNil(t, summary.FastestCompression)
	assert.Equal(t, "zip_deflate", summary.FastestCompression.Format)
	assert.InDelta(t, 80.0, summary.FastestCompression.Throughput, 0.001)
}

func TestSummarizeDecompressionWinner(t *testing.T) {
	decomp := []Result{
		{Format: "7z", Method: "lzma2", Operation: OpDecompress, Throughput: 120, Duration: time.Second, Success: true},
		{Format: "zip", Method: "deflate", Operation: OpDecompress, Throughput: 300, Duration: time.Second, Success: true},
	}
	summary := Summarize(nil, decomp)

	require.NotNil(t, summary.FastestDecompression)
	assert.Equal(t, "zip_deflate", summary.FastestDecompression.Format)
	assert.InDelta(t, 300.0, summary.FastestDecompression.Throughput, 0.001)
	assert.Nil(t, summary.BestCompressionRatio)
}
