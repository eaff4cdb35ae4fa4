package formats

import (
	"context"
	"fmt"
	"path/filepath"
)

func init() {
	Register("gz", func(env Env) Suite { return &gzipSuite{session: newSession(env)} })
}

type gzipSuite struct {
	*session
}

func (s *gzipSuite) Name() string { return "gz" }

func (s *gzipSuite) Run(ctx context.Context) FormatResult {
	result := FormatResult{Format: s.Name()}
	tests := []struct {
		name string
		fn   func(context.Context) TestResult
	}{
		{"basic_compression", s.testBasicCompression},
		{"integrity", s.testIntegrity},
		{"extraction", s.testExtraction},
	}
	for _, test := range tests {
		result.add(timed(test.name, func() TestResult { return test.fn(ctx) }))
	}
	return result
}

func (s *gzipSuite) testBasicCompression(ctx context.Context) TestResult {
	dir, err := s.workDir("gzip_basic")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "gzip_basic.txt")
	content := "gzip basic test"
	if err := writeFile(input, content); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "gzip_basic.gz")
	if res := s.run(ctx, []string{"a", "-tgzip", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("compression failed", res.Stderr)
	}

	extractDir := filepath.Join(dir, "extract")
	res := s.run(ctx, []string{"x", archive, "-o" + extractDir, "-y"}, "")
	if !res.Success || !filesMatch(input, filepath.Join(extractDir, "gzip_basic.txt")) {
		return failed("extracted content does not match", res.Stderr)
	}
	return passed("round trip verified")
}

func (s *gzipSuite) testIntegrity(ctx context.Context) TestResult {
	dir, err := s.workDir("gzip_integrity")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "gzip_integrity.txt")
	if err := writeFile(input, "gzip integrity test"); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "gzip_integrity.gz")
	if res := s.run(ctx, []string{"a", "-tgzip", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("archive creation failed", res.Stderr)
	}
	if res := s.run(ctx, []string{"t", archive}, ""); !res.Success {
		return failed("integrity check failed", res.Stderr)
	}
	return passed("archive passes integrity check")
}

func (s *gzipSuite) testExtraction(ctx context.Context) TestResult {
	archives := s.referenceArchives("gz")
	if len(archives) == 0 {
		return skipped("no gz reference archives found")
	}
	dir, err := s.workDir("gzip_reference_extract")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	res := s.run(ctx, []string{"x", archives[0], "-o" + dir, "-y"}, "")
	if !res.Success {
		return failed("reference archive extraction failed", res.Stderr)
	}
	return passed(fmt.Sprintf("extracted %s", filepath.Base(archives[0])))
}
