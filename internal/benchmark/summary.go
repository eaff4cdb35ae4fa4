package benchmark

// Summarize groups successful trials by format_method and computes the
// per-group aggregates plus the global winners.
func Summarize(compression, decompression []Result) Summary {
	summary := Summary{
		Compression:   make(map[string]GroupStats),
		Decompression: make(map[string]GroupStats),
	}

	compGroups := groupSuccessful(compression)
	decompGroups := groupSuccessful(decompression)

	for key, results := range compGroups {
		stats := GroupStats{TestCount: len(results)}
		var throughputSum, ratioSum, durationSum float64
		stats.BestCompressionRatio = results[0].CompressionRatio
		for _, r := range results {
			throughputSum += r.Throughput
			ratioSum += r.CompressionRatio
			durationSum += r.Duration.Seconds()
			if r.Throughput > stats.MaxThroughput {
				stats.MaxThroughput = r.Throughput
			}
			if r.CompressionRatio < stats.BestCompressionRatio {
				stats.BestCompressionRatio = r.CompressionRatio
			}
		}
		n := float64(len(results))
		stats.AvgThroughput = throughputSum / n
		stats.AvgCompressionRatio = ratioSum / n
		stats.AvgDuration = durationSum / n
		summary.Compression[key] = stats
	}

	for key, results := range decompGroups {
		stats := GroupStats{TestCount: len(results)}
		var throughputSum, durationSum float64
		for _, r := range results {
			throughputSum += r.Throughput
			durationSum += r.Duration.Seconds()
			if r.Throughput > stats.MaxThroughput {
				stats.MaxThroughput = r.Throughput
			}
		}
		n := float64(len(results))
		stats.AvgThroughput = throughputSum / n
		stats.AvgDuration = durationSum / n
		summary.Decompression[key] = stats
	}

	if bestRatio, fastest := winners(compGroups); bestRatio != nil {
		summary.BestCompressionRatio = bestRatio
		summary.FastestCompression = fastest
	}
	if fastestDecomp := fastestBy(decompGroups); fastestDecomp != nil {
		summary.FastestDecompression = fastestDecomp
	}

	return summary
}

func groupSuccessful(results []Result) map[string][]Result {
	groups := make(map[string][]Result)
	for _, r := range results {
		if r.Success {
			groups[r.GroupKey()] = append(groups[r.GroupKey()], r)
		}
	}
	return groups
}

func winners(groups map[string][]Result) (*RatioWinner, *SpeedWinner) {
	var best *Result
	var fastest *Result
	for _, results := range groups {
		for i := range results {
			r := &results[i]
			if best == nil || r.CompressionRatio < best.CompressionRatio {
				best = r
			}
			if fastest == nil || r.Throughput > fastest.Throughput {
				fastest = r
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	return &RatioWinner{Format: best.GroupKey(), Level: best.Level, Ratio: best.CompressionRatio},
		&SpeedWinner{Format: fastest.GroupKey(), Level: fastest.Level, Throughput: fastest.Throughput}
}

func fastestBy(groups map[string][]Result) *SpeedWinner {
	var fastest *Result
	for _, results := range groups {
		for i := range results {
			r := &results[i]
			if fastest == nil || r.Throughput > fastest.Throughput {
				fastest = r
			}
		}
	}
	if fastest == nil {
		return nil
	}
	return &SpeedWinner{Format: fastest.GroupKey(), Throughput: fastest.Throughput}
}
