package report

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/gkrost/7z/internal/formats"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
)

// ConsoleSummary prints a short run summary to w, colorized when w is the
// process stdout attached to a terminal.
func ConsoleSummary(w io.Writer, results RunResults) {
	color := w == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
	paint := func(code, text string) string {
		if !color {
			return text
		}
		return code + text + colorReset
	}

	fmt.Fprintln(w, "==== Run Summary ====")

	for _, fr := range results.Formats {
		status := paint(colorGreen, "OK")
		if fr.Failed > 0 {
			status = paint(colorRed, "FAIL")
		} else if fr.Passed == 0 && fr.Skipped > 0 {
			status = paint(colorYellow, "SKIP")
		}
		fmt.Fprintf(w, "%-6s %s  (%d passed, %d failed, %d skipped)\n",
			fr.Format, status, fr.Passed, fr.Failed, fr.Skipped)
		for _, test := range fr.Tests {
			if test.Status == formats.StatusFailed {
				fmt.Fprintf(w, "  %s %s\n", paint(colorRed, "x"), test.Name)
			}
		}
	}

	if bench := results.Benchmark; bench != nil {
		fmt.Fprintf(w, "benchmark: %d compression, %d decompression trials\n",
			len(bench.Compression), len(bench.Decompression))
		if best := bench.Summary.BestCompressionRatio; best != nil {
			fmt.Fprintf(w, "best ratio:   %s level %d (%.3f)\n", best.Format, best.Level, best.Ratio)
		}
		if fastest := bench.Summary.FastestCompression; fastest != nil {
			fmt.Fprintf(w, "fastest:      %s level %d (%.1f MB/s)\n", fastest.Format, fastest.Level, fastest.Throughput)
		}
		if fastest := bench.Summary.FastestDecompression; fastest != nil {
			fmt.Fprintf(w, "fastest x:    %s (%.1f MB/s)\n", fastest.Format, fastest.Throughput)
		}
	}

	if len(results.Errors) > 0 {
		fmt.Fprintf(w, "%s: %d\n", paint(colorRed, "errors"), len(results.Errors))
		for _, errText := range results.Errors {
			fmt.Fprintf(w, "  %s\n", errText)
		}
	}
}
