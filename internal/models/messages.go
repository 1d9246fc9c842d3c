package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Outbound message types (console -> device).
const (
	MessageSendHIDReport   = "send_hid_report"
	MessageStartMonitoring = "start_monitoring"
	MessageStopMonitoring  = "stop_monitoring"
	MessageStatus          = "status"
)

// Inbound message types (device -> console).
const (
	MessageMeasurement          = "measurement"
	MessageBackgroundLightLevel = "background_light_level"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Command is an outbound message that carries nothing but its type.
type Command struct {
	Type string `json:"type"`
}

// SendHIDReport asks the device to emit a single report right away.
type SendHIDReport struct {
	Type   string      `json:"type"`
	Report InputReport `json:"hid_report"`
}

func NewSendHIDReport(r InputReport) SendHIDReport {
	return SendHIDReport{Type: MessageSendHIDReport, Report: r}
}

// Inbound is any decoded device -> console message.
type Inbound interface {
	MessageType() string
}

// Measurement is the raw reply to a measure request. Times are microseconds
// since the start report; levels are raw sensor units up to MaxLightLevel.
type Measurement struct {
	MaxLightLevel uint32      `json:"max_light_level"`
	LightLevels   [][2]uint32 `json:"light_levels"`
	FollowupHIDUS *uint32     `json:"followup_hid_us"`
	ChangeUS      *uint32     `json:"change_us"`
}

func (*Measurement) MessageType() string { return MessageMeasurement }

// BackgroundLightLevel is the averaged live light level, 0..1.
type BackgroundLightLevel struct {
	Avg float64 `json:"avg"`
}

func (*BackgroundLightLevel) MessageType() string { return MessageBackgroundLightLevel }

type Version struct {
	Hardware uint8  `json:"hardware"`
	Firmware uint32 `json:"firmware"`
}

// DeviceStatus is the reply to a status request.
type DeviceStatus struct {
	Version       Version `json:"version"`
	MaxLightLevel uint32  `json:"max_light_level"`
}

func (*DeviceStatus) MessageType() string { return MessageStatus }

// DecodeInbound parses one text frame from the device.
func DecodeInbound(data []byte) (Inbound, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	var msg Inbound
	switch head.Type {
	case MessageMeasurement:
		msg = &Measurement{}
	case MessageBackgroundLightLevel:
		msg = &BackgroundLightLevel{}
	case MessageStatus:
		msg = &DeviceStatus{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, head.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return msg, nil
}
