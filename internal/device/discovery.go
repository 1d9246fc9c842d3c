package device

import (
	"fmt"
	"strings"

	"latemate_console/internal/models"

	"go.bug.st/serial/enumerator"
)

// Default USB ids of the instrument.
const (
	DefaultVID = "2E8A"
	DefaultPID = "108B"
)

// Discovery finds serial ports whose USB ids match the instrument.
type Discovery struct {
	vid, pid string
	list     func() ([]*enumerator.PortDetails, error)
}

func NewDiscovery(vid, pid string) *Discovery {
	if vid == "" {
		vid = DefaultVID
	}
	if pid == "" {
		pid = DefaultPID
	}
	return &Discovery{vid: vid, pid: pid, list: enumerator.GetDetailedPortsList}
}

func (d *Discovery) Discover() ([]models.PortInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return matchPorts(ports, d.vid, d.pid), nil
}

// matchPorts keeps USB ports with the given ids; hex case is ignored.
func matchPorts(ports []*enumerator.PortDetails, vid, pid string) []models.PortInfo {
	out := make([]models.PortInfo, 0, 1)
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		if !strings.EqualFold(p.VID, vid) || !strings.EqualFold(p.PID, pid) {
			continue
		}
		out = append(out, models.PortInfo{
			Name:         p.Name,
			VID:          strings.ToUpper(p.VID),
			PID:          strings.ToUpper(p.PID),
			SerialNumber: p.SerialNumber,
		})
	}
	return out
}
