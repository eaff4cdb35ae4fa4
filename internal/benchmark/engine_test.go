package benchmark

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkrost/7z/pkg/config"
	"github.com/gkrost/7z/pkg/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TestSettings.TempDir = filepath.Join(t.TempDir(), "tmp")
	cfg.TestSettings.TestDataDir = filepath.Join(t.TempDir(), "test_data")
	return cfg
}

func TestCompressArgs(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		method  string
		level   int
		threads int
		want    []string
	}{
		{
			name: "7z single thread", format: "7z", method: "lzma2", level: 5, threads: 1,
			want: []string{"7zz", "-t7z", "-m0=lzma2", "-mx=5", "a", "out.7z", "in.bin"},
		},
		{
			name: "zip multi thread", format: "zip", method: "deflate", level: 9, threads: 4,
			want: []string{"7zz", "-tzip", "-m0=deflate", "-mx=9", "-mmt4", "a", "out.7z", "in.bin"},
		},
		{
			name: "gz maps to gzip type", format: "gz", method: "deflate", level: 6, threads: 1,
			want: []string{"7zz", "-tgzip", "-m0=deflate", "-mx=6", "a", "out.7z", "in.bin"},
		},
		{
			name: "bz2 maps to bzip2 type", format: "bz2", method: "bzip2", level: 5, threads: 1,
			want: []string{"7zz", "-tbzip2", "-m0=bzip2", "-mx=5", "a", "out.7z", "in.bin"},
		},
		{
			name: "tar passes format through without method", format: "tar", method: "", level: 0, threads: 1,
			want: []string{"7zz", "-ttar", "-mx=0", "a", "out.7z", "in.bin"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compressArgs("7zz", tt.format, tt.method, tt.level, tt.threads, "out.7z", "in.bin")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMethodsForFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.CompressionMethods = map[string][]config.MethodConfig{
		"lzma2":   {{Level: 5, Threads: 1}, {Level: 9, Threads: 4}},
		"deflate": {{Level: 6, Threads: 1}},
		"zstd":    {{Level: 3, Threads: 1}}, // not allowed for any format
	}
	e := NewEngine(cfg, "7zz", logging.NewNoopLogger())

	t.Run("7z picks only allowed configured methods", func(t *testing.T) {
		methods := e.methodsForFormat("7z")
		require.Contains(t, methods, "lzma2")
		assert.Len(t, methods, 1)
		assert.Len(t, methods["lzma2"], 2)
	})

	t.Run("gz falls back to default deflate", func(t *testing.T) {
		cfgNoDeflate := cfg
		cfgNoDeflate.CompressionMethods = map[string][]config.MethodConfig{}
		engine := NewEngine(cfgNoDeflate, "7zz", logging.NewNoopLogger())
		methods := engine.methodsForFormat("gz")
		require.Contains(t, methods, "deflate")
		assert.Equal(t, []config.MethodConfig{{Level: 5, Threads: 1}}, methods["deflate"])
	})

	t.Run("bz2 falls back to bzip2", func(t *testing.T) {
		cfgEmpty := cfg
		cfgEmpty.CompressionMethods = map[string][]config.MethodConfig{}
		engine := NewEngine(cfgEmpty, "7zz", logging.NewNoopLogger())
		methods := engine.methodsForFormat("bz2")
		require.Contains(t, methods, "bzip2")
	})

	t.Run("unknown format yields nothing", func(t *testing.T) {
		assert.Empty(t, e.methodsForFormat("rar"))
	})
}

func TestCollectTestFiles(t *testing.T) {
	cfg := testConfig(t)
	dataDir := cfg.TestSettings.TestDataDir
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "binary"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "text"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "mixed", "proj"), 0755))

	write := func(rel string, size int) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, rel), make([]byte, size), 0644))
	}
	write(filepath.Join("binary", "big.bin"), 3000)
	write(filepath.Join("binary", "small.bin"), 100)
	write(filepath.Join("binary", "empty.bin"), 0) // excluded: empty
	write(filepath.Join("text", "mid.txt"), 800)
	write(filepath.Join("text", "notes.md"), 500) // excluded: unmatched extension
	write(filepath.Join("mixed", "proj", "main.c"), 400)

	e := NewEngine(cfg, "7zz", logging.NewNoopLogger())
	files, err := e.collectTestFiles()
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	// Sorted ascending by size, empty and unmatched files excluded.
	assert.Equal(t, []string{"small.bin", "main.c", "mid.txt", "big.bin"}, names)
}

func TestCollectTestFilesRespectsLimits(t *testing.T) {
	cfg := testConfig(t)
	cfg.Performance.MaxFiles = 2
	cfg.Performance.MaxFileSize = "1KB"
	dataDir := cfg.TestSettings.TestDataDir
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "binary"), 0755))

	write := func(name string, size int) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, "binary", name), make([]byte, size), 0644))
	}
	write("a.bin", 100)
	write("b.bin", 200)
	write("c.bin", 300)
	write("huge.bin", 10000) // excluded: above max_file_size

	e := NewEngine(cfg, "7zz", logging.NewNoopLogger())
	files, err := e.collectTestFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.bin", filepath.Base(files[0]))
	assert.Equal(t, "b.bin", filepath.Base(files[1]))
}

func TestRunWithNoTestFiles(t *testing.T) {
	cfg := testConfig(t)
	// Archiver path that cannot exist: the version probe fails gracefully
	// and no trial is attempted because there are no files.
	e := NewEngine(cfg, filepath.Join(t.TempDir(), "missing-7zz"), logging.NewNoopLogger())

	results, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results.Compression)
	assert.Empty(t, results.Decompression)
	assert.Empty(t, results.Summary.Compression)
	assert.Equal(t, "unknown", results.Metadata.ArchiverVersion)
	assert.NotEmpty(t, results.Metadata.RunID)
}

func TestSafeRatioAndThroughput(t *testing.T) {
	assert.Zero(t, safeRatio(10, 0))
	assert.InDelta(t, 0.5, safeRatio(1, 2), 0.001)
	assert.Zero(t, throughputMBps(1024, 0))
	assert.InDelta(t, 1.0, throughputMBps(1024*1024, time.Second), 0.001)
}
