package models

import "time"

// Sample is one light level reading, offset from the start report.
type Sample struct {
	OffsetUS uint32 `json:"offset_us"`
	Level    uint32 `json:"level"`
}

// SampleSeries is ordered by non-decreasing OffsetUS.
type SampleSeries []Sample

// MeasurementResult is one completed dispatch. Change is nil when the device
// detected no change within the scenario duration.
type MeasurementResult struct {
	Series        SampleSeries
	MaxLightLevel uint32
	Change        *uint32 // microseconds
	FollowupUS    *uint32
}

// Result converts a wire measurement, trimming any leading samples whose
// time runs past a later sample.
func (m *Measurement) Result() MeasurementResult {
	res := MeasurementResult{
		MaxLightLevel: m.MaxLightLevel,
		Change:        m.ChangeUS,
		FollowupUS:    m.FollowupHIDUS,
	}
	if len(m.LightLevels) == 0 {
		return res
	}

	keep := len(m.LightLevels)
	last := m.LightLevels[len(m.LightLevels)-1][0]
	for i := len(m.LightLevels) - 1; i >= 0; i-- {
		if m.LightLevels[i][0] > last {
			break
		}
		last = m.LightLevels[i][0]
		keep = i
	}

	res.Series = make(SampleSeries, 0, len(m.LightLevels)-keep)
	for _, p := range m.LightLevels[keep:] {
		res.Series = append(res.Series, Sample{OffsetUS: p[0], Level: p[1]})
	}
	return res
}

// SeriesPoint is a normalized sample: milliseconds and percent of max level.
type SeriesPoint struct {
	OffsetMS     float64 `json:"x"`
	LevelPercent float64 `json:"y"`
}

// Normalize converts the series to (ms, %) points.
func (r MeasurementResult) Normalize() []SeriesPoint {
	out := make([]SeriesPoint, 0, len(r.Series))
	for _, s := range r.Series {
		p := SeriesPoint{OffsetMS: MicrosToMillis(s.OffsetUS)}
		if r.MaxLightLevel > 0 {
			p.LevelPercent = float64(s.Level) / float64(r.MaxLightLevel) * 100
		}
		out = append(out, p)
	}
	return out
}

// ChangeMS returns the change annotation in milliseconds, or nil.
func (r MeasurementResult) ChangeMS() *float64 {
	if r.Change == nil {
		return nil
	}
	ms := MicrosToMillis(*r.Change)
	return &ms
}

func MicrosToMillis(us uint32) float64 { return float64(us) / 1000 }

// ScatterPoint is one change point in the statistical history. Jitter only
// separates overlapping points on screen; it is not measured data.
type ScatterPoint struct {
	DelayMS float64 `json:"x"`
	Jitter  float64 `json:"y"`
}

// MeasurementView is what the telemetry display draws for the latest result.
type MeasurementView struct {
	Series     []SeriesPoint `json:"series"`
	ChangeMS   *float64      `json:"change_ms"`
	DurationMS int           `json:"duration_ms"`
}

// ScatterView is the change-point history since the scenario last changed.
type ScatterView struct {
	Points     []ScatterPoint `json:"points"`
	DurationMS int            `json:"duration_ms"`
}

// MeasurementRecord is a persisted result.
type MeasurementRecord struct {
	ID            string       `json:"id"`
	RecordedAt    time.Time    `json:"recorded_at"`
	ScenarioKey   string       `json:"scenario_key"`
	DurationMS    int          `json:"duration_ms"`
	MaxLightLevel uint32       `json:"max_light_level"`
	ChangeUS      *uint32      `json:"change_us,omitempty"`
	Series        SampleSeries `json:"series,omitempty"`
}

// LatencyStats summarizes change points in milliseconds.
type LatencyStats struct {
	Kind       string  `json:"kind"` // no_runs | no_successes | single | multiple
	Runs       int     `json:"runs"`
	Samples    int     `json:"samples"`
	HasMissing bool    `json:"has_missing"`
	MeanMS     float64 `json:"mean_ms,omitempty"`
	StdDevMS   float64 `json:"stddev_ms,omitempty"`
	MedianMS   float64 `json:"median_ms,omitempty"`
	MinMS      float64 `json:"min_ms,omitempty"`
	MaxMS      float64 `json:"max_ms,omitempty"`
}

const (
	StatsNoRuns      = "no_runs"
	StatsNoSuccesses = "no_successes"
	StatsSingle      = "single"
	StatsMultiple    = "multiple"
)

// BatchState describes a running repeat batch.
type BatchState struct {
	ID         string   `json:"id"`
	Scenario   Scenario `json:"scenario"`
	Remaining  int      `json:"remaining"`
	IntervalMS int64    `json:"interval_ms"`
	Cancelled  bool     `json:"cancelled"`
}
