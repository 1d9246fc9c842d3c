package models

import "time"

type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
)

// SweepPhase is the calibration state machine position.
type SweepPhase string

const (
	PhaseIdle     SweepPhase = "IDLE"
	PhaseSweepX   SweepPhase = "SWEEP_X"
	PhaseSweepY   SweepPhase = "SWEEP_Y"
	PhaseFound    SweepPhase = "FOUND"
	PhaseNotFound SweepPhase = "NOT_FOUND"
)

// SweepState lives only while a sweep runs.
type SweepState struct {
	Axis          Axis `json:"axis"`
	Position      int  `json:"position"`
	Step          int  `json:"step"`
	CooldownArmed bool `json:"cooldown_armed"`
}

// Color of a painted band on the sweep surface.
type Color string

const (
	Black Color = "black"
	White Color = "white"
)

// Rect is a band on the sweep surface in surface pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// CalibrationResult is the located sensor capture point.
type CalibrationResult struct {
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	FoundAt time.Time `json:"found_at"`
}

// CalibrationView reports the sweep phase plus the last known result.
type CalibrationView struct {
	Phase  SweepPhase         `json:"phase"`
	State  *SweepState        `json:"state,omitempty"`
	Failed Axis               `json:"failed_axis,omitempty"`
	Result *CalibrationResult `json:"result,omitempty"`
}
