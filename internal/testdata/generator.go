// Package testdata synthesizes the benchmark input corpus: binary files
// with different entropy profiles, structured text, and a small mixed
// project tree.
package testdata

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/gkrost/7z/pkg/logging"
)

// Sizes of the generated fixtures.
const (
	smallSize  = 16 * 1024
	mediumSize = 256 * 1024
)

var loremWords = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing",
	"elit", "sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore",
	"et", "dolore", "magna", "aliqua", "enim", "ad", "minim", "veniam",
}

type Generator struct {
	dir    string
	rng    *rand.Rand
	logger logging.Logger
}

func NewGenerator(dir string, seed int64, logger logging.Logger) *Generator {
	return &Generator{
		dir:    dir,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// expectedFiles is also the completeness marker: generation is skipped when
// every listed file already exists.
func (g *Generator) expectedFiles() []string {
	return []string{
		filepath.Join(g.dir, "binary", "random_small.bin"),
		filepath.Join(g.dir, "binary", "random_medium.bin"),
		filepath.Join(g.dir, "binary", "compressible_medium.bin"),
		filepath.Join(g.dir, "binary", "pattern_small.bin"),
		filepath.Join(g.dir, "text", "plain.txt"),
		filepath.Join(g.dir, "text", "repetitive.txt"),
		filepath.Join(g.dir, "text", "data.json"),
		filepath.Join(g.dir, "text", "data.csv"),
		filepath.Join(g.dir, "mixed", "project", "src", "main.c"),
		filepath.Join(g.dir, "mixed", "project", "docs", "README.md"),
		filepath.Join(g.dir, "mixed", "project", "config.yaml"),
	}
}

// Complete reports whether all fixtures already exist.
func (g *Generator) Complete() bool {
	for _, path := range g.expectedFiles() {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// GenerateAll creates the full corpus, skipping work when it is already
// complete.
func (g *Generator) GenerateAll() error {
	if g.Complete() {
		g.logger.Info("test data already complete, skipping generation")
		return nil
	}

	for _, sub := range []string{"binary", "text", filepath.Join("mixed", "project", "src"), filepath.Join("mixed", "project", "docs")} {
		if err := os.MkdirAll(filepath.Join(g.dir, sub), 0755); err != nil {
			return fmt.Errorf("failed to create test data directory: %w", err)
		}
	}

	if err := g.generateBinary(); err != nil {
		return err
	}
	if err := g.generateText(); err != nil {
		return err
	}
	if err := g.generateMixed(); err != nil {
		return err
	}
	g.logger.Infof("test data generated under %s", g.dir)
	return nil
}

func (g *Generator) generateBinary() error {
	files := []struct {
		name string
		data []byte
	}{
		{"random_small.bin", g.randomBytes(smallSize)},
		{"random_medium.bin", g.randomBytes(mediumSize)},
		{"compressible_medium.bin", g.compressibleBytes(mediumSize)},
		{"pattern_small.bin", patternBytes(smallSize)},
	}
	for _, f := range files {
		if err := g.write(filepath.Join("binary", f.name), f.data); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateText() error {
	if err := g.write(filepath.Join("text", "plain.txt"), []byte(g.loremText(400))); err != nil {
		return err
	}
	if err := g.write(filepath.Join("text", "repetitive.txt"), bytes.Repeat([]byte("abcdef"), 5000)); err != nil {
		return err
	}

	var jsonBuf bytes.Buffer
	jsonBuf.WriteString("[\n")
	for i := 0; i < 200; i++ {
		if i > 0 {
			jsonBuf.WriteString(",\n")
		}
		fmt.Fprintf(&jsonBuf, `  {"id": %d, "name": "record_%d", "value": %d, "active": %t}`,
			i, i, g.rng.Intn(100000), g.rng.Intn(2) == 0)
	}
	jsonBuf.WriteString("\n]\n")
	if err := g.write(filepath.Join("text", "data.json"), jsonBuf.Bytes()); err != nil {
		return err
	}

	var csvBuf bytes.Buffer
	csvBuf.WriteString("id,name,value,category\n")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&csvBuf, "%d,item_%d,%d,cat_%d\n", i, i, g.rng.Intn(10000), g.rng.Intn(8))
	}
	return g.write(filepath.Join("text", "data.csv"), csvBuf.Bytes())
}

func (g *Generator) generateMixed() error {
	mainC := `#include <stdio.h>

int main(void) {
    for (int i = 0; i < 10; i++) {
        printf("iteration %d\n", i);
    }
    return 0;
}
`
	readme := "# Sample Project\n\nGenerated fixture used by archive round-trip tests.\n\n" + g.loremText(120) + "\n"
	configYAML := "name: sample-project\nversion: 1.0.0\ndebug: false\nworkers: 4\n"

	files := map[string]string{
		filepath.Join("mixed", "project", "src", "main.c"):     mainC,
		filepath.Join("mixed", "project", "docs", "README.md"): readme,
		filepath.Join("mixed", "project", "config.yaml"):       configYAML,
	}
	for rel, content := range files {
		if err := g.write(rel, []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) randomBytes(size int) []byte {
	data := make([]byte, size)
	g.rng.Read(data)
	return data
}

// compressibleBytes mixes short random runs with long zero runs so the
// result compresses well without being trivial.
func (g *Generator) compressibleBytes(size int) []byte {
	data := make([]byte, 0, size)
	for len(data) < size {
		run := make([]byte, 64)
		g.rng.Read(run)
		data = append(data, run...)
		data = append(data, make([]byte, 192)...)
	}
	return data[:size]
}

func patternBytes(size int) []byte {
	pattern := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0xFF, 0x55, 0xAA}
	data := make([]byte, size)
	for i := range data {
		data[i] = pattern[i%len(pattern)]
	}
	return data
}

func (g *Generator) loremText(words int) string {
	var sb strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			if i%12 == 0 {
				sb.WriteString(".\n")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(loremWords[g.rng.Intn(len(loremWords))])
	}
	sb.WriteString(".\n")
	return sb.String()
}

func (g *Generator) write(rel string, data []byte) error {
	path := filepath.Join(g.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}
