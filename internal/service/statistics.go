package service

import (
	"sort"

	"latemate_console/internal/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SummarizeLatencies reduces per-run change points (nil = no change detected)
// to a latency summary in milliseconds.
func SummarizeLatencies(outcomes []*float64) models.LatencyStats {
	out := models.LatencyStats{Runs: len(outcomes)}
	if len(outcomes) == 0 {
		out.Kind = models.StatsNoRuns
		return out
	}

	millis := make([]float64, 0, len(outcomes))
	for _, v := range outcomes {
		if v != nil {
			millis = append(millis, *v)
		}
	}
	out.Samples = len(millis)
	out.HasMissing = len(millis) != len(outcomes)

	switch len(millis) {
	case 0:
		out.Kind = models.StatsNoSuccesses
		return out
	case 1:
		out.Kind = models.StatsSingle
		out.MeanMS = millis[0]
		out.MedianMS = millis[0]
		out.MinMS = millis[0]
		out.MaxMS = millis[0]
		return out
	}

	sort.Float64s(millis)
	out.Kind = models.StatsMultiple
	out.MeanMS, out.StdDevMS = stat.MeanStdDev(millis, nil)
	out.MedianMS = median(millis)
	out.MinMS = floats.Min(millis)
	out.MaxMS = floats.Max(millis)
	return out
}

// median of an already sorted, non-empty slice; even lengths average the middle pair.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
