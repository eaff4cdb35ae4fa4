// Package report renders run results to disk (JSON, CSV, text) and to the
// console.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gkrost/7z/internal/benchmark"
	"github.com/gkrost/7z/internal/formats"
	"github.com/gkrost/7z/pkg/logging"
)

// RunResults collects everything a harness run produced.
type RunResults struct {
	Formats   []formats.FormatResult `json:"format_tests,omitempty"`
	Benchmark *benchmark.Results     `json:"performance,omitempty"`
	Errors    []string               `json:"errors,omitempty"`
}

type Reporter struct {
	reportsDir string
	logger     logging.Logger
}

func NewReporter(outputDir string, logger logging.Logger) *Reporter {
	return &Reporter{
		reportsDir: filepath.Join(outputDir, "reports"),
		logger:     logger,
	}
}

// Generate writes the JSON, CSV and text renderings and returns the paths
// written. The CSV is skipped when there are no benchmark trials.
func (r *Reporter) Generate(results RunResults) ([]string, error) {
	if err := os.MkdirAll(r.reportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	var written []string
	jsonPath := filepath.Join(r.reportsDir, fmt.Sprintf("7z_test_report_%s.json", stamp))
	if err := r.writeJSON(results, jsonPath); err != nil {
		return written, err
	}
	written = append(written, jsonPath)

	if results.Benchmark != nil && len(results.Benchmark.Compression) > 0 {
		csvPath := filepath.Join(r.reportsDir, fmt.Sprintf("7z_performance_%s.csv", stamp))
		if err := r.writeCSV(results.Benchmark, csvPath); err != nil {
			return written, err
		}
		written = append(written, csvPath)
	}

	txtPath := filepath.Join(r.reportsDir, fmt.Sprintf("7z_summary_%s.txt", stamp))
	if err := r.writeText(results, txtPath); err != nil {
		return written, err
	}
	written = append(written, txtPath)

	for _, path := range written {
		r.logger.Infof("report written: %s", path)
	}
	return written, nil
}

func (r *Reporter) writeJSON(results RunResults, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write json report: %w", err)
	}
	return nil
}

func (r *Reporter) writeCSV(results *benchmark.Results, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"Format", "Method", "Level", "Threads", "Operation", "FileSize",
		"ArchiveSize", "CompressionRatio", "Duration", "Throughput",
		"CPU", "Memory", "Success", "Error",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	rows := append([]benchmark.Result{}, results.Compression...)
	rows = append(rows, results.Decompression...)
	for _, row := range rows {
		record := []string{
			row.Format,
			row.Method,
			strconv.Itoa(row.Level),
			strconv.Itoa(row.Threads),
			string(row.Operation),
			strconv.FormatInt(row.FileSize, 10),
			strconv.FormatInt(row.ArchiveSize, 10),
			strconv.FormatFloat(row.CompressionRatio, 'f', 6, 64),
			strconv.FormatFloat(row.Duration.Seconds(), 'f', 3, 64),
			strconv.FormatFloat(row.Throughput, 'f', 2, 64),
			strconv.FormatFloat(row.CPUPercent, 'f', 1, 64),
			strconv.FormatFloat(row.MemoryMB, 'f', 2, 64),
			strconv.FormatBool(row.Success),
			row.Error,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (r *Reporter) writeText(results RunResults, path string) error {
	var sb strings.Builder
	sb.WriteString("7-Zip Test Report Summary\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	sb.WriteString("Generated: " + time.Now().Format("2006-01-02 15:04:05") + "\n\n")

	if len(results.Formats) > 0 {
		sb.WriteString("Format Tests:\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, fr := range results.Formats {
			sb.WriteString(fmt.Sprintf("  %-10s: %d/%d passed (%d skipped)\n",
				fr.Format, fr.Passed, fr.Total, fr.Skipped))
			for _, test := range fr.Tests {
				if test.Status == formats.StatusFailed && test.Error != "" {
					sb.WriteString(fmt.Sprintf("    %s: %s\n", test.Name, test.Error))
				}
			}
		}
		sb.WriteString("\n")
	}

	if results.Benchmark != nil && len(results.Benchmark.Summary.Compression) > 0 {
		sb.WriteString("Performance Summary:\n")
		sb.WriteString(strings.Repeat("-", 25) + "\n")
		keys := make([]string, 0, len(results.Benchmark.Summary.Compression))
		for key := range results.Benchmark.Summary.Compression {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			stats := results.Benchmark.Summary.Compression[key]
			sb.WriteString(fmt.Sprintf("  %-20s:\n", key))
			sb.WriteString(fmt.Sprintf("    Avg Throughput: %.1f MB/s\n", stats.AvgThroughput))
			sb.WriteString(fmt.Sprintf("    Best Ratio:     %.3f\n", stats.BestCompressionRatio))
			sb.WriteString(fmt.Sprintf("    Avg Duration:   %.2f s\n", stats.AvgDuration))
		}
		sb.WriteString("\n")
	}

	if len(results.Errors) > 0 {
		sb.WriteString("Errors:\n")
		sb.WriteString(strings.Repeat("-", 10) + "\n")
		for _, errText := range results.Errors {
			sb.WriteString("  " + errText + "\n")
		}
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}
