package formats

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

func init() {
	Register("zip", func(env Env) Suite { return &zipSuite{session: newSession(env)} })
}

type zipSuite struct {
	*session
}

func (s *zipSuite) Name() string { return "zip" }

func (s *zipSuite) Run(ctx context.Context) FormatResult {
	result := FormatResult{Format: s.Name()}
	tests := []struct {
		name string
		fn   func(context.Context) TestResult
	}{
		{"basic_compression", s.testBasicCompression},
		{"compression_levels", s.testCompressionLevels},
		{"integrity", s.testIntegrity},
		{"extraction", s.testExtraction},
	}
	for _, test := range tests {
		result.add(timed(test.name, func() TestResult { return test.fn(ctx) }))
	}
	return result
}

func (s *zipSuite) testBasicCompression(ctx context.Context) TestResult {
	dir, err := s.workDir("zip_basic")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "zip_basic.txt")
	content := "ZIP basic compression test file."
	if err := writeFile(input, content); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "zip_basic.zip")
	if res := s.run(ctx, []string{"a", "-tzip", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("compression failed", res.Stderr)
	}

	extractDir := filepath.Join(dir, "extract")
	res := s.run(ctx, []string{"x", archive, "-o" + extractDir, "-y"}, "")
	if !res.Success || !filesMatch(input, filepath.Join(extractDir, "zip_basic.txt")) {
		return failed("extracted content does not match", res.Stderr)
	}
	return passed(fmt.Sprintf("archive %d bytes, round trip verified", fileSize(archive)))
}

func (s *zipSuite) testCompressionLevels(ctx context.Context) TestResult {
	dir, err := s.workDir("zip_levels")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "zip_levels.txt")
	if err := writeFile(input, strings.Repeat("A", 50000)+strings.Repeat("B", 50000)); err != nil {
		return failed("fixture write failed", err.Error())
	}
	originalSize := fileSize(input)

	var ratios []float64
	for _, level := range []int{1, 5, 9} {
		archive := filepath.Join(dir, fmt.Sprintf("zip_level_%d.zip", level))
		res := s.run(ctx, []string{"a", "-tzip", fmt.Sprintf("-mx=%d", level), archive, input}, "")
		if res.Success && fileExists(archive) {
			ratios = append(ratios, float64(fileSize(archive))/float64(originalSize))
		}
	}
	if len(ratios) == 0 || ratios[0] <= ratios[len(ratios)-1] {
		return failed("compression did not improve with higher levels", "")
	}
	return passed(fmt.Sprintf("tested %d levels", len(ratios)))
}

func (s *zipSuite) testIntegrity(ctx context.Context) TestResult {
	dir, err := s.workDir("zip_integrity")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "zip_integrity.txt")
	if err := writeFile(input, "ZIP integrity test content"); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "zip_integrity.zip")
	if res := s.run(ctx, []string{"a", "-tzip", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("archive creation failed", res.Stderr)
	}
	if res := s.run(ctx, []string{"t", archive}, ""); !res.Success {
		return failed("integrity check failed", res.Stderr)
	}
	return passed("archive passes integrity check")
}

func (s *zipSuite) testExtraction(ctx context.Context) TestResult {
	archives := s.referenceArchives("zip")
	if len(archives) == 0 {
		return skipped("no zip reference archives found")
	}
	dir, err := s.workDir("zip_reference_extract")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	res := s.run(ctx, []string{"x", archives[0], "-o" + dir, "-y"}, "")
	if !res.Success {
		return failed("reference archive extraction failed", res.Stderr)
	}
	return passed(fmt.Sprintf("extracted %s", filepath.Base(archives[0])))
}
