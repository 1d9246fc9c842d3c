package models

// PortInfo is a host serial port that matches the instrument's USB ids.
type PortInfo struct {
	Name         string `json:"name"`
	VID          string `json:"vid"`
	PID          string `json:"pid"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// StatusView is what the status page shows.
type StatusView struct {
	Connected bool          `json:"connected"`
	Device    *DeviceStatus `json:"device,omitempty"`
	Ports     []PortInfo    `json:"ports"`
	PortsErr  string        `json:"ports_error,omitempty"`
}
