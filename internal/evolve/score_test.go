package evolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleBenchOutput = `
7-Zip (z) 24.09 (x64) : Igor Pavlov : Public domain

RAM size:   31890 MB,  # CPU hardware threads:   8
RAM usage:    882 MB,  # Benchmark threads:      4

                       Compressing  |                  Decompressing
Dict     Speed Usage    R/U Rating  |      Speed Usage    R/U Rating
         KiB/s     %   MIPS   MIPS  |      KiB/s     %   MIPS   MIPS

22:      31651   332   9278  30790  |  22:   356921   395   7712  30443
23:      29925   331   9218  30494  |  23:   351961   396   7656  30452
24:      28620   334   9223  30777  |  24:   345101   397   7628  30283
`

func TestParseSpeed(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		scoreMode string
		want      float64
	}{
		{"compress best", TargetCompress, ScoreModeBest, 31651},
		{"compress average", TargetCompress, ScoreModeAverage, (31651 + 29925 + 28620) / 3.0},
		{"decompress best", TargetDecompress, ScoreModeBest, 356921},
		{"balanced best", TargetBalanced, ScoreModeBest, (31651 + 356921) / 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSpeed(sampleBenchOutput, tt.target, tt.scoreMode)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestParseSpeedNoMatches(t *testing.T) {
	assert.Zero(t, ParseSpeed("no benchmark table here", TargetCompress, ScoreModeBest))
	assert.Zero(t, ParseSpeed("", TargetBalanced, ScoreModeAverage))
}

func TestParseSpeedWithoutDecompressHalf(t *testing.T) {
	output := "22:      1000   332   9278  30790\n23:      2000   331   9218  30494\n"
	assert.Equal(t, 2000.0, ParseSpeed(output, TargetCompress, ScoreModeBest))
	assert.Zero(t, ParseSpeed(output, TargetDecompress, ScoreModeBest))
	// Balanced averages a real compress score with a zero decompress score.
	assert.Equal(t, 1000.0, ParseSpeed(output, TargetBalanced, ScoreModeBest))
}

func TestScoreValues(t *testing.T) {
	values := []float64{10, 30, 20}
	assert.Equal(t, 30.0, ScoreValues(values, ScoreModeBest))
	assert.Equal(t, 20.0, ScoreValues(values, ScoreModeAverage))
	assert.Zero(t, ScoreValues(nil, ScoreModeBest))
	assert.Zero(t, ScoreValues(nil, ScoreModeAverage))
}
