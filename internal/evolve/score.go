package evolve

import (
	"regexp"
	"strconv"
	"strings"
)

// dictLineRe matches one row of the archiver's benchmark-mode table:
// leading whitespace, dictionary size, colon, speed.
var dictLineRe = regexp.MustCompile(`^\s*(\d+):\s+(\d+)\s+`)

// ParseSpeed extracts the per-dictionary-size speed samples from benchmark
// output and reduces them to one scalar. Lines may carry compress and
// decompress halves separated by a pipe. In balanced mode the two targets
// are scored independently and averaged; samples are never merged.
func ParseSpeed(output, target, scoreMode string) float64 {
	var compressSpeeds, decompressSpeeds []float64

	for _, rawLine := range strings.Split(output, "\n") {
		if !strings.Contains(rawLine, ":") {
			continue
		}
		parts := strings.SplitN(rawLine, "|", 2)
		compressPart := parts[0]
		decompressPart := ""
		if len(parts) > 1 {
			decompressPart = parts[1]
		}
		if m := dictLineRe.FindStringSubmatch(compressPart); m != nil {
			if speed, err := strconv.ParseFloat(m[2], 64); err == nil {
				compressSpeeds = append(compressSpeeds, speed)
			}
		}
		if m := dictLineRe.FindStringSubmatch(decompressPart); m != nil {
			if speed, err := strconv.ParseFloat(m[2], 64); err == nil {
				decompressSpeeds = append(decompressSpeeds, speed)
			}
		}
	}

	switch target {
	case TargetCompress:
		return ScoreValues(compressSpeeds, scoreMode)
	case TargetDecompress:
		return ScoreValues(decompressSpeeds, scoreMode)
	}
	compressScore := ScoreValues(compressSpeeds, scoreMode)
	decompressScore := ScoreValues(decompressSpeeds, scoreMode)
	return (compressScore + decompressScore) / 2.0
}

// ScoreValues reduces speed samples to one scalar: mean for "average",
// max otherwise. An empty sample set scores 0.0 in any mode.
func ScoreValues(values []float64, scoreMode string) float64 {
	if len(values) == 0 {
		return 0.0
	}
	if scoreMode == ScoreModeAverage {
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	return best
}
