package formats

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

func init() {
	Register("7z", func(env Env) Suite { return &sevenZipSuite{session: newSession(env)} })
}

// sevenZipSuite exercises the native 7z container: compression levels,
// threading, solid mode, encryption and unicode filename handling.
type sevenZipSuite struct {
	*session
}

func (s *sevenZipSuite) Name() string { return "7z" }

func (s *sevenZipSuite) Run(ctx context.Context) FormatResult {
	result := FormatResult{Format: s.Name()}
	tests := []struct {
		name string
		fn   func(context.Context) TestResult
	}{
		{"basic_compression", s.testBasicCompression},
		{"compression_levels", s.testCompressionLevels},
		{"multi_threading", s.testMultiThreading},
		{"solid_archives", s.testSolidArchives},
		{"encryption", s.testEncryption},
		{"unicode_filenames", s.testUnicodeFilenames},
		{"integrity", s.testIntegrity},
		{"extraction", s.testExtraction},
	}
	for _, test := range tests {
		result.add(timed(test.name, func() TestResult { return test.fn(ctx) }))
	}
	return result
}

func (s *sevenZipSuite) testBasicCompression(ctx context.Context) TestResult {
	dir, err := s.workDir("7z_basic")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "basic_test.txt")
	content := "Hello, World! This is a test file for 7z compression."
	if err := writeFile(input, content); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "basic_test.7z")
	if res := s.run(ctx, []string{"a", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("compression failed", res.Stderr)
	}

	extractDir := filepath.Join(dir, "extract")
	res := s.run(ctx, []string{"x", archive, "-o" + extractDir, "-y"}, "")
	extracted := filepath.Join(extractDir, "basic_test.txt")
	if !res.Success || !filesMatch(input, extracted) {
		return failed("extracted content does not match", res.Stderr)
	}
	return passed(fmt.Sprintf("archive %d bytes, round trip verified", fileSize(archive)))
}

func (s *sevenZipSuite) testCompressionLevels(ctx context.Context) TestResult {
	dir, err := s.workDir("7z_levels")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "levels_test.txt")
	content := strings.Repeat("A", 10000) + strings.Repeat("B", 10000) + strings.Repeat("C", 10000)
	if err := writeFile(input, content); err != nil {
		return failed("fixture write failed", err.Error())
	}
	originalSize := fileSize(input)

	var ratios []float64
	for _, level := range []int{0, 1, 3, 5, 7, 9} {
		archive := filepath.Join(dir, fmt.Sprintf("level_%d.7z", level))
		res := s.run(ctx, []string{"a", fmt.Sprintf("-mx=%d", level), archive, input}, "")
		if res.Success && fileExists(archive) {
			ratios = append(ratios, float64(fileSize(archive))/float64(originalSize))
		}
	}
	if len(ratios) < 3 {
		return failed(fmt.Sprintf("only %d levels succeeded", len(ratios)), "")
	}
	// Level 0 (store) must compress worse than level 9.
	if ratios[0] <= ratios[len(ratios)-1] {
		return failed("compression did not improve with higher levels", "")
	}
	return passed(fmt.Sprintf("tested %d levels, compression improves with level", len(ratios)))
}

func (s *sevenZipSuite) testMultiThreading(ctx context.Context) TestResult {
	dir, err := s.workDir("7z_threads")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "threading_test.bin")
	if err := writeFile(input, strings.Repeat("X", 1024*1024)); err != nil {
		return failed("fixture write failed", err.Error())
	}

	succeeded := 0
	for _, threads := range []int{1, 2, 4} {
		archive := filepath.Join(dir, fmt.Sprintf("threads_%d.7z", threads))
		res := s.run(ctx, []string{"a", fmt.Sprintf("-mmt%d", threads), archive, input}, "")
		if res.Success && fileExists(archive) {
			succeeded++
		}
	}
	if succeeded < 3 {
		return failed(fmt.Sprintf("only %d thread configs succeeded", succeeded), "")
	}
	return passed("thread counts 1, 2 and 4 all accepted")
}

func (s *sevenZipSuite) testSolidArchives(ctx context.Context) TestResult {
	dir, err := s.workDir("7z_solid")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	var inputs []string
	for i := 0; i < 3; i++ {
		input := filepath.Join(dir, fmt.Sprintf("solid_test_%d.txt", i))
		if err := writeFile(input, fmt.Sprintf("This is test file %d with some content ", i)+strings.Repeat("A", 100)); err != nil {
			return failed("fixture write failed", err.Error())
		}
		inputs = append(inputs, input)
	}

	normal := filepath.Join(dir, "normal.7z")
	solid := filepath.Join(dir, "solid.7z")
	normalRes := s.run(ctx, append([]string{"a", normal}, inputs...), "")
	solidRes := s.run(ctx, append([]string{"a", solid, "-ms"}, inputs...), "")
	if !normalRes.Success || !solidRes.Success || !fileExists(normal) || !fileExists(solid) {
		return failed("archive creation failed", normalRes.Stderr+";"+solidRes.Stderr)
	}
	return passed(fmt.Sprintf("normal %d bytes, solid %d bytes", fileSize(normal), fileSize(solid)))
}

func (s *sevenZipSuite) testEncryption(ctx context.Context) TestResult {
	dir, err := s.workDir("7z_encrypt")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "encrypt_test.txt")
	content := "This is secret content for encryption testing."
	if err := writeFile(input, content); err != nil {
		return failed("fixture write failed", err.Error())
	}

	const password = "test123"
	archive := filepath.Join(dir, "encrypted.7z")
	if res := s.run(ctx, []string{"a", "-p" + password, archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("encrypted archive creation failed", res.Stderr)
	}

	extractDir := filepath.Join(dir, "extract")
	res := s.run(ctx, []string{"x", "-p" + password, archive, "-o" + extractDir, "-y"}, "")
	if !res.Success || !filesMatch(input, filepath.Join(extractDir, "encrypt_test.txt")) {
		return failed("decryption round trip failed", res.Stderr)
	}
	return passed("encrypted archive extracts with correct password")
}

func (s *sevenZipSuite) testUnicodeFilenames(ctx context.Context) TestResult {
	dir, err := s.workDir("7z_unicode")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	const unicodeName = "tëst_файл_中国.txt"
	input := filepath.Join(dir, unicodeName)
	content := "Unicode filename test content"
	if err := writeFile(input, content); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "unicode.7z")
	if res := s.run(ctx, []string{"a", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("archive creation with unicode filename failed", res.Stderr)
	}

	extractDir := filepath.Join(dir, "extract")
	res := s.run(ctx, []string{"x", archive, "-o" + extractDir, "-y"}, "")
	if !res.Success || !filesMatch(input, filepath.Join(extractDir, unicodeName)) {
		return failed("unicode filename round trip failed", res.Stderr)
	}
	return passed("unicode filename preserved through round trip")
}

func (s *sevenZipSuite) testIntegrity(ctx context.Context) TestResult {
	dir, err := s.workDir("7z_integrity")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	input := filepath.Join(dir, "integrity_test.txt")
	if err := writeFile(input, "Integrity test content for archive verification."); err != nil {
		return failed("fixture write failed", err.Error())
	}

	archive := filepath.Join(dir, "integrity.7z")
	if res := s.run(ctx, []string{"a", archive, input}, ""); !res.Success || !fileExists(archive) {
		return failed("archive creation failed", res.Stderr)
	}
	if res := s.run(ctx, []string{"t", archive}, ""); !res.Success {
		return failed("integrity check failed", res.Stderr)
	}
	return passed("archive passes integrity check")
}

func (s *sevenZipSuite) testExtraction(ctx context.Context) TestResult {
	archives := s.referenceArchives("7z")
	if len(archives) == 0 {
		return skipped("no 7z reference archives found")
	}
	dir, err := s.workDir("7z_reference_extract")
	if err != nil {
		return failed("workdir setup failed", err.Error())
	}
	res := s.run(ctx, []string{"x", archives[0], "-o" + dir, "-y"}, "")
	if !res.Success {
		return failed("reference archive extraction failed", res.Stderr)
	}
	return passed(fmt.Sprintf("extracted %s", filepath.Base(archives[0])))
}
