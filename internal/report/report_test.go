package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkrost/7z/internal/benchmark"
	"github.com/gkrost/7z/internal/formats"
	"github.com/gkrost/7z/pkg/logging"
)

func sampleResults() RunResults {
	bench := &benchmark.Results{
		Compression: []benchmark.Result{
			{
				Format: "7z", Method: "lzma2", Level: 5, Threads: 1,
				Operation: benchmark.OpCompress, FileSize: 1000, ArchiveSize: 500,
				CompressionRatio: 0.5, Duration: 2 * time.Second, Throughput: 42.5,
				Success: true,
			},
		},
	}
	bench.Summary = benchmark.Summarize(bench.Compression, nil)

	return RunResults{
		Formats: []formats.FormatResult{
			{
				Format: "7z", Total: 2, Passed: 1, Failed: 1,
				Tests: []formats.TestResult{
					{Name: "basic_compression", Status: formats.StatusPassed},
					{Name: "encryption", Status: formats.StatusFailed, Error: "wrong password accepted"},
				},
			},
		},
		Benchmark: bench,
		Errors:    []string{"formats: one or more tests failed"},
	}
}

func TestGenerateWritesAllReports(t *testing.T) {
	outputDir := t.TempDir()
	reporter := NewReporter(outputDir, logging.NewNoopLogger())

	written, err := reporter.Generate(sampleResults())
	require.NoError(t, err)
	require.Len(t, written, 3)

	var jsonPath, csvPath, txtPath string
	for _, path := range written {
		switch filepath.Ext(path) {
		case ".json":
			jsonPath = path
		case ".csv":
			csvPath = path
		case ".txt":
			txtPath = path
		}
	}
	require.NotEmpty(t, jsonPath)
	require.NotEmpty(t, csvPath)
	require.NotEmpty(t, txtPath)

	// JSON round-trips.
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded RunResults
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Formats, 1)
	require.NotNil(t, decoded.Benchmark)
	assert.Equal(t, "lzma2", decoded.Benchmark.Compression[0].Method)

	// CSV carries the header plus one row.
	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "CompressionRatio")
	assert.Contains(t, lines[1], "7z")

	// Text summary names the failing test and the stats block.
	txtData, err := os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.Contains(t, string(txtData), "encryption: wrong password accepted")
	assert.Contains(t, string(txtData), "7z_lzma2")
	assert.Contains(t, string(txtData), "Avg Throughput: 42.5 MB/s")
}

func TestGenerateSkipsCSVWithoutBenchmark(t *testing.T) {
	reporter := NewReporter(t.TempDir(), logging.NewNoopLogger())
	results := RunResults{Formats: []formats.FormatResult{{Format: "tar", Total: 1, Passed: 1}}}

	written, err := reporter.Generate(results)
	require.NoError(t, err)
	require.Len(t, written, 2)
	for _, path := range written {
		assert.NotEqual(t, ".csv", filepath.Ext(path))
	}
}

func TestConsoleSummary(t *testing.T) {
	var buf bytes.Buffer
	ConsoleSummary(&buf, sampleResults())
	out := buf.String()

	assert.Contains(t, out, "Run Summary")
	assert.Contains(t, out, "7z")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "encryption")
	assert.Contains(t, out, "best ratio")
	// Not a terminal: no ANSI escapes.
	assert.NotContains(t, out, "\033[")
}
