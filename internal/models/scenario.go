package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Report types carried in the "type" discriminant of an InputReport.
const (
	ReportKeyboard = "keyboard"
	ReportMouse    = "mouse"
)

// MessageMeasure is the discriminant of an outbound scenario request.
const MessageMeasure = "measure"

const (
	// MaxScenarioDurationMS is the longest scenario the device accepts.
	MaxScenarioDurationMS = 5000
	mouseAxisLimit        = 127
)

var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrInvalidReport   = errors.New("invalid hid report")
)

// InputReport is one simulated keyboard or mouse state.
type InputReport struct {
	Type string `json:"type"` // keyboard | mouse

	Modifiers   []string `json:"modifiers,omitempty"`
	PressedKeys []string `json:"pressed_keys,omitempty"`

	Buttons []string `json:"buttons,omitempty"`
	X       *int     `json:"x,omitempty"`
	Y       *int     `json:"y,omitempty"`
	Wheel   *int     `json:"wheel,omitempty"`
	Pan     *int     `json:"pan,omitempty"`
}

// Validate checks the discriminant and that no fields of the other variant are set.
func (r InputReport) Validate() error {
	switch r.Type {
	case ReportKeyboard:
		if len(r.Buttons) > 0 || r.X != nil || r.Y != nil || r.Wheel != nil || r.Pan != nil {
			return fmt.Errorf("%w: keyboard report carries mouse fields", ErrInvalidReport)
		}
	case ReportMouse:
		if len(r.Modifiers) > 0 || len(r.PressedKeys) > 0 {
			return fmt.Errorf("%w: mouse report carries keyboard fields", ErrInvalidReport)
		}
		for name, v := range map[string]*int{"x": r.X, "y": r.Y, "wheel": r.Wheel, "pan": r.Pan} {
			if v != nil && (*v < -mouseAxisLimit || *v > mouseAxisLimit) {
				return fmt.Errorf("%w: mouse %s=%d out of range", ErrInvalidReport, name, *v)
			}
		}
	case "":
		return fmt.Errorf("%w: missing type", ErrInvalidReport)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidReport, r.Type)
	}
	return nil
}

// ParseInputReport decodes and validates a single report.
func ParseInputReport(raw []byte) (InputReport, error) {
	var r InputReport
	if err := decodeStrict(raw, &r); err != nil {
		return InputReport{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if err := r.Validate(); err != nil {
		return InputReport{}, err
	}
	return r, nil
}

// Followup is a report sent a fixed delay after the start report.
type Followup struct {
	AfterMS int         `json:"after_ms"`
	Report  InputReport `json:"hid_report"`
}

// Scenario is a scripted input sequence plus the recording duration.
// Two scenarios are the same scenario when their Key values match.
type Scenario struct {
	DurationMS int           `json:"duration_ms"`
	Before     []InputReport `json:"before"`
	Start      InputReport   `json:"start"`
	Followup   *Followup     `json:"followup"`
	After      []InputReport `json:"after"`
}

// Validate enforces duration bounds and validates every report.
func (s Scenario) Validate() error {
	if s.DurationMS < 0 || s.DurationMS > MaxScenarioDurationMS {
		return fmt.Errorf("%w: duration_ms %d outside 0..%d", ErrInvalidScenario, s.DurationMS, MaxScenarioDurationMS)
	}
	if err := s.Start.Validate(); err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidScenario, err)
	}
	if s.Followup != nil {
		if s.Followup.AfterMS < 0 {
			return fmt.Errorf("%w: followup after_ms must be >= 0", ErrInvalidScenario)
		}
		if err := s.Followup.Report.Validate(); err != nil {
			return fmt.Errorf("%w: followup: %v", ErrInvalidScenario, err)
		}
	}
	for i, r := range s.Before {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: before[%d]: %v", ErrInvalidScenario, i, err)
		}
	}
	for i, r := range s.After {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: after[%d]: %v", ErrInvalidScenario, i, err)
		}
	}
	return nil
}

// normalized replaces nil sequences with empty ones so that equal scenarios serialize equally.
func (s Scenario) normalized() Scenario {
	if s.Before == nil {
		s.Before = []InputReport{}
	}
	if s.After == nil {
		s.After = []InputReport{}
	}
	return s
}

// Key is the structural identity of the scenario: its serialized form.
func (s Scenario) Key() string {
	b, err := json.Marshal(s.normalized())
	if err != nil {
		// only reachable with unmarshalable fields, which the struct does not have
		return ""
	}
	return string(b)
}

// MeasureRequest is the outbound {type:"measure", ...Scenario} message.
type MeasureRequest struct {
	Type string `json:"type"`
	Scenario
}

// NewMeasureRequest wraps a scenario for the wire.
func NewMeasureRequest(s Scenario) MeasureRequest {
	return MeasureRequest{Type: MessageMeasure, Scenario: s.normalized()}
}

// ParseScenario decodes a measure request typed by the operator. The "type" discriminant
// must be "measure"; nothing about the scenario is trusted until this returns nil.
func ParseScenario(raw []byte) (Scenario, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Scenario{}, fmt.Errorf("%w: empty input", ErrInvalidScenario)
	}
	var req MeasureRequest
	if err := decodeStrict(raw, &req); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if req.Type != MessageMeasure {
		return Scenario{}, fmt.Errorf("%w: type must be %q, got %q", ErrInvalidScenario, MessageMeasure, req.Type)
	}
	if err := req.Scenario.Validate(); err != nil {
		return Scenario{}, err
	}
	return req.Scenario.normalized(), nil
}

func decodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
