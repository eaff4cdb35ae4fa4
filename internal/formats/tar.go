package formats

import (
	"context"
	"fmt"
	"path/filepath"
)

func init() {
	Register("tar", func(env Env) Suite { return &tarSuite{session: newSession(env)} })
}

type tarSuite struct {
	*session
}

func (s *tarSuite) Name() string { return "tar" }

func (s *tarSuite) Run(ctx context.Context) FormatResult {
	result := FormatResult{Format: s.Name()}
	tests := []struct {
		name string
		fn   func(context.Context) TestResult
	}{
		{"basic_pack", s.testBasicPack},
		{"integrity", s.testIntegrity},
		{"extraction", s.testExtraction},
	}
	for _, test := range tests {
		result.add(timed(test.name, func() TestResult { return test.fn(ctx) }))
	}
	return result
}

// tar is a plain container, so the basic test packs two files by relative
// path and checks both come back out.
func (s *tarSuite) testBasicPack(ctx context.Context) TestResult {
	dir, err := s.workDir("tar_basic")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	if err := writeFile(filepath.Join(dir, "file1.txt"), "tar file one"); err != nil {
		return failed("fixture write failed", err.Error())
	}
	if err := writeFile(filepath.Join(dir, "file2.txt"), "tar file two"); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "basic.tar")
	if res := s.run(ctx, []string{"a", "-ttar", archive, "file1.txt", "file2.txt"}, dir); !res.Success || !fileExists(archive) {
		return failed("tar creation failed", res.Stderr)
	}

	extractDir := filepath.Join(dir, "extract")
	res := s.run(ctx, []string{"x", archive, "-o" + extractDir, "-y"}, "")
	if !res.Success || !fileExists(filepath.Join(extractDir, "file1.txt")) || !fileExists(filepath.Join(extractDir, "file2.txt")) {
		return failed("extracted files missing", res.Stderr)
	}
	return passed("both files packed and extracted")
}

func (s *tarSuite) testIntegrity(ctx context.Context) TestResult {
	dir, err := s.workDir("tar_integrity")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "tar_integrity.txt")
	if err := writeFile(input, "tar integrity test"); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "integrity.tar")
	if res := s.run(ctx, []string{"a", "-ttar", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("archive creation failed", res.Stderr)
	}
	if res := s.run(ctx, []string{"t", archive}, ""); !res.Success {
		return failed("integrity check failed", res.Stderr)
	}
	return passed("archive passes integrity check")
}

func (s *tarSuite) testExtraction(ctx context.Context) TestResult {
	archives := s.referenceArchives("tar")
	if len(archives) == 0 {
		return skipped("no tar reference archives found")
	}
	dir, err := s.workDir("tar_reference_extract")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	res := s.run(ctx, []string{"x", archives[0], "-o" + dir, "-y"}, "")
	if !res.Success {
		return failed("reference archive extraction failed", res.Stderr)
	}
	return passed(fmt.Sprintf("extracted %s", filepath.Base(archives[0])))
}
